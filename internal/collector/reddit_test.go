package collector

import (
	"fmt"
	"strings"
	"testing"
)

func redditBody(posts ...string) []byte {
	children := make([]string, 0, len(posts))
	for _, p := range posts {
		children = append(children, `{"data":`+p+`}`)
	}
	return []byte(`{"data":{"children":[` + strings.Join(children, ",") + `]}}`)
}

func TestParseRedditListingSkipsStickied(t *testing.T) {
	body := redditBody(
		`{"title":"Daily discussion","permalink":"/r/CryptoCurrency/comments/1/daily/","created_utc":1767607200,"stickied":true}`,
		`{"title":"ETH &amp; L2 fees","permalink":"/r/CryptoCurrency/comments/2/eth/","created_utc":1767607200}`,
		`{"title":"   ","permalink":"/r/CryptoCurrency/comments/3/blank/"}`,
		`{"title":"No permalink","permalink":"https://evil.example/x"}`,
	)

	got, err := ParseRedditListing(body, "rcrypto", 7)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Title != "ETH & L2 fees" {
		t.Fatalf("title = %q", got[0].Title)
	}
	if got[0].Link != "https://reddit.com/r/CryptoCurrency/comments/2/eth/" {
		t.Fatalf("link = %q", got[0].Link)
	}
	if got[0].PubDate != "2026-01-05T10:00:00.000Z" {
		t.Fatalf("pubDate = %q", got[0].PubDate)
	}
	if got[1].Link != "#" {
		t.Fatalf("absolute permalink = %q, want #", got[1].Link)
	}
}

func TestParseRedditListingCapsAtLimit(t *testing.T) {
	posts := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		posts = append(posts, fmt.Sprintf(`{"title":"post %d","permalink":"/r/x/%d/"}`, i, i))
	}
	got, err := ParseRedditListing(redditBody(posts...), "rbitcoin", 7)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
}

func TestParseRedditListingBadJSON(t *testing.T) {
	if _, err := ParseRedditListing([]byte("<html>"), "rcrypto", 7); err == nil {
		t.Fatalf("expected error for non-json body")
	}
}
