package collector

import (
	"reflect"
	"testing"
)

const digestPost = `<b>Jan 5</b><br/>Here's what's happening today<br/><br/>` +
	`<i class="emoji" style="background-image:url('x')"><b>📰</b></i> News<br/>` +
	`- Base ships <a href="https://x.com/base/status/1">new bridge</a> [L2] | infra<br/>` +
	`- <a href="https://x.com/uniswap">@uniswap</a> launches v5 hooks<br/><br/>` +
	`[Launches]<br/>` +
	`- Token X goes live &amp; trades<br/>` +
	`- ab<br/>` +
	`Website<br/>` +
	`My links:<br/>` +
	`[Tools]<br/>` +
	`- never reached`

func TestParseChannelPost(t *testing.T) {
	d, ok := ParseChannelPost(digestPost, "https://t.me/c4dotgg/100")
	if !ok {
		t.Fatalf("ParseChannelPost ok = false")
	}
	if d.Date != "Jan 5" || d.PostURL != "https://t.me/c4dotgg/100" {
		t.Fatalf("digest header = %q %q", d.Date, d.PostURL)
	}
	if len(d.Sections) != 2 {
		t.Fatalf("sections = %d, want 2: %+v", len(d.Sections), d.Sections)
	}

	news := d.Sections[0]
	if news.Category != "News" || news.Emoji != "📰" {
		t.Fatalf("news header = %q %q", news.Category, news.Emoji)
	}
	wantFirst := DigestItem{
		Text: "Base ships new bridge",
		URL:  "https://x.com/base/status/1",
		Tags: []string{"L2", "infra"},
	}
	if !reflect.DeepEqual(news.Items[0], wantFirst) {
		t.Fatalf("first item = %+v, want %+v", news.Items[0], wantFirst)
	}
	second := news.Items[1]
	if second.Handle != "uniswap" || second.URL != "https://x.com/uniswap" {
		t.Fatalf("second item = %+v", second)
	}

	launches := d.Sections[1]
	if launches.Category != "Launches" || launches.Emoji != "" {
		t.Fatalf("launches header = %+v", launches)
	}
	if len(launches.Items) != 1 || launches.Items[0].Text != "Token X goes live & trades" {
		t.Fatalf("launches items = %+v", launches.Items)
	}
}

func TestParseChannelPostWithoutSections(t *testing.T) {
	if _, ok := ParseChannelPost("just a chat message<br/>nothing else", "u"); ok {
		t.Fatalf("ok = true for message without sections")
	}
	if _, ok := ParseChannelPost("[Empty]<br/>- x", "u"); ok {
		t.Fatalf("ok = true for section without items")
	}
}

func TestSelectDigestPicksNewestWithTwoSections(t *testing.T) {
	page := `<div class="tgme_widget_message" data-post="c4dotgg/100"><div class="tgme_widget_message_text js-message_text" dir="auto">` + digestPost + `</div></div>` +
		`<div class="tgme_widget_message" data-post="c4dotgg/101"><div class="tgme_widget_message_text js-message_text">[News]<br/>- only one section here</div></div>` +
		`<div class="tgme_widget_message" data-post="c4dotgg/102"><div class="tgme_widget_message_text">gm</div></div>`

	msgs := ExtractChannelMessages(page, "c4dotgg")
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if msgs[2].PostURL != "https://t.me/c4dotgg/102" {
		t.Fatalf("post url = %q", msgs[2].PostURL)
	}

	d, ok := SelectDigest(msgs)
	if !ok {
		t.Fatalf("SelectDigest ok = false")
	}
	if d.PostURL != "https://t.me/c4dotgg/100" {
		t.Fatalf("selected = %q, want post 100", d.PostURL)
	}
}

func TestExtractChannelMessagesWithoutPostIDs(t *testing.T) {
	page := `<div class="tgme_widget_message_text">hello</div>`
	msgs := ExtractChannelMessages(page, "c4dotgg")
	if len(msgs) != 1 || msgs[0].PostURL != "https://t.me/c4dotgg" || msgs[0].HTML != "hello" {
		t.Fatalf("messages = %+v", msgs)
	}
}
