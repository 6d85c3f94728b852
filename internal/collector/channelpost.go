package collector

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/crypturls/internal/fetch"
)

const (
	digestTimeout     = 8 * time.Second
	digestMinSections = 2
	linkTextMinRunes  = 3
	itemMinRunes      = 3
	itemPrefixRunes   = 30
)

type DigestItem struct {
	Text   string   `json:"text"`
	URL    string   `json:"url,omitempty"`
	Handle string   `json:"handle,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type DigestSection struct {
	Category string       `json:"category"`
	Emoji    string       `json:"emoji,omitempty"`
	Items    []DigestItem `json:"items"`
}

// Digest 一条频道帖子拆出来的分段内容
type Digest struct {
	Date     string          `json:"date"`
	PostURL  string          `json:"postUrl"`
	Sections []DigestSection `json:"sections"`
}

// EmptyDigest 没有可用帖子时返回
func EmptyDigest() Digest {
	return Digest{Sections: []DigestSection{}}
}

// ChannelMessage 预览页上的一条消息
type ChannelMessage struct {
	HTML    string
	PostURL string
}

var (
	postBlockRe    = regexp.MustCompile(`(?s)data-post="([^"]+)".*?class="tgme_widget_message_text[^"]*"[^>]*>(.*?)</div>`)
	messageTextRe  = regexp.MustCompile(`(?s)class="tgme_widget_message_text[^"]*"[^>]*>(.*?)</div>`)
	digestDateRe   = regexp.MustCompile(`<b>([A-Z][a-z]+ \d{1,2})</b>`)
	lineBreakRe    = regexp.MustCompile(`(?i)<br\s*/?>`)
	emojiMarkupRe  = regexp.MustCompile(`<i class="emoji"[^>]*><b>([^<]*)</b></i>`)
	anchorRe       = regexp.MustCompile(`<a\s+href="([^"]+)"[^>]*>([^<]+)</a>`)
	monthLineRe    = regexp.MustCompile(`(?i)^(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d`)
	fillerLineRe   = regexp.MustCompile(`(?i)follow my|here'?s what'?s happening|don'?t forget`)
	linksMarkerRe  = regexp.MustCompile(`(?i)^my links:`)
	emojiHeaderRe  = regexp.MustCompile(`(?i)^(📰|🚀|💎|📋|🔗|📊|⚡|🧵|💰|🏗️|🔥)\s*(News|Launches?|New Projects?|Project Updates?|Threads?/?Reads?|Updates?|Airdrops?|Funding|Tools?)\s*$`)
	bracketHeadRe  = regexp.MustCompile(`^\[([^\]]+)\]$`)
	bulletRe       = regexp.MustCompile(`^-\s*`)
	handleRe       = regexp.MustCompile(`@(\w+)`)
	bracketTagRe   = regexp.MustCompile(`\[([^\]]+)\]`)
	pipeSplitRe    = regexp.MustCompile(`\s*\|\s*`)
	pipeResidueRe  = regexp.MustCompile(`\|\s*`)
	sectionMarkers = []string{"News", "Project", "Launches"}
)

// linkMap 可见文字 -> 链接，按首次出现顺序匹配；重复文字覆盖链接但保留位置
type linkMap struct {
	order []string
	href  map[string]string
}

func newLinkMap() *linkMap {
	return &linkMap{href: map[string]string{}}
}

func (m *linkMap) set(text, href string) {
	if _, ok := m.href[text]; !ok {
		m.order = append(m.order, text)
	}
	m.href[text] = href
}

// resolve 第一个满足"条目包含链接文字"或"链接文字包含条目前 30 个字符"的链接胜出。
// 多个链接文字互相重叠时结果取决于出现顺序，不保证是作者的本意。
func (m *linkMap) resolve(text, handle string) string {
	prefix := TruncateRunes(text, itemPrefixRunes)
	for _, lt := range m.order {
		if strings.Contains(text, lt) || (prefix != "" && strings.Contains(lt, prefix)) {
			return m.href[lt]
		}
	}
	if handle != "" {
		return m.href["@"+handle]
	}
	return ""
}

// ParseChannelPost 把一条消息的 HTML 拆成分段。没有任何非空分段时返回 false。
func ParseChannelPost(msgHTML, postURL string) (Digest, bool) {
	date := ""
	if m := digestDateRe.FindStringSubmatch(msgHTML); m != nil {
		date = m[1]
	}

	text := lineBreakRe.ReplaceAllString(msgHTML, "\n")
	text = emojiMarkupRe.ReplaceAllString(text, "$1")

	links := newLinkMap()
	for _, m := range anchorRe.FindAllStringSubmatch(text, -1) {
		lt := DecodeEntities(strings.TrimSpace(m[2]))
		if utf8.RuneCountInString(lt) > linkTextMinRunes {
			links.set(lt, m[1])
		}
	}

	text = DecodeEntities(StripTags(text))

	var (
		sections []*DigestSection
		current  *DigestSection
	)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if monthLineRe.MatchString(line) || fillerLineRe.MatchString(line) {
			continue
		}
		if linksMarkerRe.MatchString(line) {
			break
		}
		if line == "Website" {
			continue
		}

		if m := emojiHeaderRe.FindStringSubmatch(line); m != nil {
			current = &DigestSection{Category: m[2], Emoji: m[1]}
			sections = append(sections, current)
			continue
		}
		if m := bracketHeadRe.FindStringSubmatch(line); m != nil {
			current = &DigestSection{Category: m[1]}
			sections = append(sections, current)
			continue
		}
		if current == nil {
			continue
		}

		item, ok := parseDigestItem(line, links)
		if !ok {
			continue
		}
		current.Items = append(current.Items, item)
	}

	out := Digest{Date: date, PostURL: postURL}
	for _, s := range sections {
		if len(s.Items) > 0 {
			out.Sections = append(out.Sections, *s)
		}
	}
	if len(out.Sections) == 0 {
		return Digest{}, false
	}
	return out, true
}

func parseDigestItem(line string, links *linkMap) (DigestItem, bool) {
	itemText := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
	if utf8.RuneCountInString(itemText) < itemMinRunes {
		return DigestItem{}, false
	}

	handle := ""
	if m := handleRe.FindStringSubmatch(itemText); m != nil {
		handle = m[1]
	}

	var tags []string
	for _, m := range bracketTagRe.FindAllStringSubmatch(itemText, -1) {
		tags = append(tags, m[1])
	}
	clean := strings.TrimSpace(bracketTagRe.ReplaceAllString(itemText, ""))

	var parts []string
	for _, p := range pipeSplitRe.Split(clean, -1) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 1 {
		clean = parts[0]
		tags = append(tags, parts[1:]...)
	}
	clean = strings.TrimSpace(pipeResidueRe.ReplaceAllString(clean, ""))
	if clean == "" {
		return DigestItem{}, false
	}

	return DigestItem{
		Text:   clean,
		URL:    links.resolve(clean, handle),
		Handle: handle,
		Tags:   tags,
	}, true
}

// ExtractChannelMessages 优先带 data-post 的消息块，取不到时只取正文块并使用频道地址
func ExtractChannelMessages(html, channel string) []ChannelMessage {
	var out []ChannelMessage
	for _, m := range postBlockRe.FindAllStringSubmatch(html, -1) {
		out = append(out, ChannelMessage{HTML: m[2], PostURL: "https://t.me/" + m[1]})
	}
	if len(out) > 0 {
		return out
	}
	for _, m := range messageTextRe.FindAllStringSubmatch(html, -1) {
		out = append(out, ChannelMessage{HTML: m[1], PostURL: "https://t.me/" + channel})
	}
	return out
}

// SelectDigest 从最新的消息往前找，第一条至少有两个分段的消息胜出
func SelectDigest(messages []ChannelMessage) (Digest, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if !hasSectionMarker(msg.HTML) {
			continue
		}
		d, ok := ParseChannelPost(msg.HTML, msg.PostURL)
		if ok && len(d.Sections) >= digestMinSections {
			return d, true
		}
	}
	return Digest{}, false
}

func hasSectionMarker(s string) bool {
	for _, m := range sectionMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// FetchDigest 抓取频道预览页并挑出最新的一期
func FetchDigest(ctx context.Context, g Getter, channel string) (Digest, bool, error) {
	html, err := g.Text(ctx, "https://t.me/s/"+channel, fetch.Options{Timeout: digestTimeout, Headers: browserHeaders})
	if err != nil {
		return Digest{}, false, fmt.Errorf("digest: fetch %s: %w", channel, err)
	}
	d, ok := SelectDigest(ExtractChannelMessages(html, channel))
	return d, ok, nil
}
