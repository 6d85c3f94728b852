package collector

import (
	"fmt"
	"strings"
	"testing"
)

func TestParseFeedRSSWithCDATA(t *testing.T) {
	xml := `<?xml version="1.0"?><rss><channel>
<item>
  <title><![CDATA[Bitcoin &amp; <b>ETF</b> flows]]></title>
  <link>https://example.com/a?x=1&amp;y=2</link>
  <pubDate>Mon, 05 Jan 2026 10:00:00 +0000</pubDate>
</item>
<item><title>   </title><link>https://example.com/empty</link></item>
<item><title>No link</title><link>javascript:void(0)</link></item>
</channel></rss>`

	got := ParseFeed(xml, "coindesk", 7)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	first := got[0]
	if first.Title != "Bitcoin & ETF flows" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.Link != "https://example.com/a?x=1&y=2" {
		t.Fatalf("link = %q", first.Link)
	}
	if first.PubDate != "2026-01-05T10:00:00.000Z" {
		t.Fatalf("pubDate = %q", first.PubDate)
	}
	if first.Source != "coindesk" {
		t.Fatalf("source = %q", first.Source)
	}
	if got[1].Link != "#" {
		t.Fatalf("unsafe link = %q, want #", got[1].Link)
	}
}

func TestParseFeedAtomPrefersAlternateLink(t *testing.T) {
	xml := `<feed xmlns="http://www.w3.org/2005/Atom">
<entry>
  <title type="html">Rekt: bridge exploit</title>
  <link rel="self" href="https://rekt.news/self"/>
  <link rel="alternate" href="https://rekt.news/bridge-rekt/"/>
  <published>2026-01-04T08:30:00Z</published>
</entry>
</feed>`

	got := ParseFeed(xml, "rektnews", 7)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Link != "https://rekt.news/bridge-rekt/" {
		t.Fatalf("link = %q", got[0].Link)
	}
	if got[0].PubDate != "2026-01-04T08:30:00.000Z" {
		t.Fatalf("pubDate = %q", got[0].PubDate)
	}
}

func TestParseFeedAppliesLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<rss><channel>")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "<item><title>story %d</title><link>https://example.com/%d</link></item>", i, i)
	}
	b.WriteString("</channel></rss>")

	if got := ParseFeed(b.String(), "decrypt", 10); len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got := ParseFeed(b.String(), "coindesk", 0); len(got) != 7 {
		t.Fatalf("default limit len = %d, want 7", len(got))
	}
}

func TestParseFeedFallsBackToGenericParser(t *testing.T) {
	body := `{"version":"https://jsonfeed.org/version/1.1","title":"blog","items":[{"id":"1","title":"Json feed story","url":"https://example.com/json/1"}]}`

	got := ParseFeed(body, "blog", 7)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Title != "Json feed story" || got[0].Link != "https://example.com/json/1" {
		t.Fatalf("article = %+v", got[0])
	}
}

func TestParseFeedGarbage(t *testing.T) {
	if got := ParseFeed("not a feed at all", "x", 7); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}
