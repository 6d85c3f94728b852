package collector

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/logging"
	"github.com/LJTian/crypturls/internal/sources"
)

const feedTimeout = 10 * time.Second

var (
	itemBlockRe  = regexp.MustCompile(`(?is)<item(?:\s[^>]*)?>(.*?)</item>`)
	entryBlockRe = regexp.MustCompile(`(?is)<entry(?:\s[^>]*)?>(.*?)</entry>`)
	linkTagRe    = regexp.MustCompile(`(?is)<link\b[^>]*>`)
	hrefAttrRe   = regexp.MustCompile(`(?i)\bhref\s*=\s*["']([^"']+)["']`)
	relAttrRe    = regexp.MustCompile(`(?i)\brel\s*=\s*["']([^"']+)["']`)

	tagRes = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{"title", "link", "pubDate", "dc:date", "published", "updated"} {
		q := regexp.QuoteMeta(tag)
		tagRes[tag] = regexp.MustCompile(`(?is)<` + q + `(?:\s[^>]*)?>\s*(?:<!\[CDATA\[(.*?)\]\]>\s*|(.*?))</` + q + `>`)
	}
}

// extractTag 取第一个 tag 元素的文本，兼容 CDATA
func extractTag(block, tag string) string {
	re, ok := tagRes[tag]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}

// extractAtomLink 优先 rel="alternate"（或没有 rel）的 href
func extractAtomLink(block string) string {
	first := ""
	for _, tag := range linkTagRe.FindAllString(block, -1) {
		href := hrefAttrRe.FindStringSubmatch(tag)
		if href == nil {
			continue
		}
		rel := relAttrRe.FindStringSubmatch(tag)
		if rel == nil || strings.EqualFold(rel[1], "alternate") {
			return href[1]
		}
		if first == "" {
			first = href[1]
		}
	}
	return first
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC3339Nano,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstDate(block string, tags ...string) (time.Time, bool) {
	for _, tag := range tags {
		if t, ok := parseDate(extractTag(block, tag)); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFeed 用边界扫描解析 RSS <item> 或 Atom <entry>；
// 两者都找不到时交给 gofeed 再读一次（RDF 等写法）
func ParseFeed(xml, sourceKey string, limit int) []Article {
	if limit <= 0 {
		limit = sources.DefaultArticleLimit
	}
	now := time.Now()

	var out []Article
	items := itemBlockRe.FindAllStringSubmatch(xml, -1)
	for _, m := range items {
		if len(out) >= limit {
			break
		}
		block := m[1]
		link := extractTag(block, "link")
		if link == "" {
			link = extractAtomLink(block)
		}
		a, err := newArticle(extractTag(block, "title"), link, sourceKey, now, block, "pubDate", "dc:date", "published", "updated")
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	if len(items) > 0 {
		return out
	}

	entries := entryBlockRe.FindAllStringSubmatch(xml, -1)
	for _, m := range entries {
		if len(out) >= limit {
			break
		}
		block := m[1]
		link := extractAtomLink(block)
		if link == "" {
			link = extractTag(block, "link")
		}
		a, err := newArticle(extractTag(block, "title"), link, sourceKey, now, block, "published", "updated", "pubDate", "dc:date")
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	if len(entries) > 0 {
		return out
	}

	return parseFeedGeneric(xml, sourceKey, limit, now)
}

func newArticle(rawTitle, link, sourceKey string, now time.Time, block string, dateTags ...string) (Article, error) {
	title := CleanText(rawTitle)
	if title == "" {
		return Article{}, ErrParseSkip
	}
	pub, ok := firstDate(block, dateTags...)
	if !ok {
		pub = now
	}
	return Article{
		Title:   title,
		Link:    SanitizeURL(DecodeEntities(link)),
		PubDate: ISO(pub),
		Source:  sourceKey,
	}, nil
}

func parseFeedGeneric(xml, sourceKey string, limit int, now time.Time) []Article {
	feed, err := gofeed.NewParser().ParseString(xml)
	if err != nil || feed == nil {
		return nil
	}
	var out []Article
	for _, it := range feed.Items {
		if len(out) >= limit {
			break
		}
		title := CleanText(it.Title)
		if title == "" {
			continue
		}
		link := it.Link
		if link == "" && len(it.Links) > 0 {
			link = it.Links[0]
		}
		pub := now
		switch {
		case it.PublishedParsed != nil:
			pub = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			pub = *it.UpdatedParsed
		}
		out = append(out, Article{
			Title:   title,
			Link:    SanitizeURL(link),
			PubDate: ISO(pub),
			Source:  sourceKey,
		})
	}
	return out
}

// FeedFetcher 抓取一个 RSS/Atom 源
type FeedFetcher struct {
	getter Getter
	src    sources.Source
}

func (f *FeedFetcher) Name() string {
	return f.src.Key
}

func (f *FeedFetcher) Fetch(ctx context.Context) ([]Article, error) {
	log.Debug().Str(logging.FieldSource, f.src.Key).Str(logging.FieldURL, f.src.URL).Msg("fetch feed")

	body, err := f.getter.Text(ctx, f.src.URL, fetch.Options{
		Timeout: feedTimeout,
		Headers: map[string]string{"Accept": "application/rss+xml, application/xml, text/xml"},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: fetch feed: %w", f.src.Key, err)
	}
	return ParseFeed(body, f.src.Key, sources.FetchLimit(f.src.Key)), nil
}
