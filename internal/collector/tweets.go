package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/LJTian/crypturls/internal/fetch"
)

const (
	tweetMediaMax = 20
	tweetTimeout  = 8 * time.Second
	timelineURL   = "https://syndication.twitter.com/srv/timeline-profile/screen-name/"
)

// TweetMedia 一张推文图片及其所在推文
type TweetMedia struct {
	ImageURL string `json:"imageUrl"`
	TweetURL string `json:"tweetUrl"`
}

var (
	tweetUserRe     = regexp.MustCompile(`^[a-zA-Z0-9_]{1,15}$`)
	nextDataRe      = regexp.MustCompile(`(?is)<script id="__NEXT_DATA__" type="application/json">(.*?)</script>`)
	mediaURLRe      = regexp.MustCompile(`https://pbs\.twimg\.com/media/[^"'\s<>]+`)
	tweetBlockIDRe  = regexp.MustCompile(`data-tweet-id="(\d+)"`)
	statusIDRe      = regexp.MustCompile(`/status/(\d+)`)
	mediaURLValidRe = regexp.MustCompile(`^https://pbs\.twimg\.com/media/`)
)

// ValidTweetUser 账号名格式检查，不判断是否允许抓取
func ValidTweetUser(user string) bool {
	return tweetUserRe.MatchString(user)
}

type nextData struct {
	Props struct {
		PageProps struct {
			Timeline struct {
				Entries []struct {
					Content struct {
						Tweet *timelineTweet `json:"tweet"`
					} `json:"content"`
				} `json:"entries"`
			} `json:"timeline"`
		} `json:"pageProps"`
	} `json:"props"`
}

type tweetEntities struct {
	Media []struct {
		MediaURLHTTPS string `json:"media_url_https"`
	} `json:"media"`
}

type timelineTweet struct {
	Permalink        string         `json:"permalink"`
	ExtendedEntities tweetEntities  `json:"extended_entities"`
	Entities         tweetEntities  `json:"entities"`
	QuotedStatus     *timelineTweet `json:"quoted_status"`
}

func (t *timelineTweet) mediaURLs() []string {
	var out []string
	groups := []tweetEntities{t.ExtendedEntities, t.Entities}
	if t.QuotedStatus != nil {
		groups = append(groups, t.QuotedStatus.ExtendedEntities, t.QuotedStatus.Entities)
	}
	for _, g := range groups {
		for _, m := range g.Media {
			out = append(out, m.MediaURLHTTPS)
		}
	}
	return out
}

// nextDataScript goquery 找不到时再用正则
func nextDataScript(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if s := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text()); s != "" {
			return s
		}
	}
	if m := nextDataRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

func parseNextDataMedia(html, user string) []TweetMedia {
	script := nextDataScript(html)
	if script == "" {
		return nil
	}
	var data nextData
	if err := json.Unmarshal([]byte(script), &data); err != nil {
		return nil
	}

	seen := map[string]bool{}
	var out []TweetMedia
	for _, e := range data.Props.PageProps.Timeline.Entries {
		tw := e.Content.Tweet
		if tw == nil {
			continue
		}
		permalink := "https://x.com/" + user
		if strings.HasPrefix(tw.Permalink, "/") {
			permalink = "https://x.com" + tw.Permalink
		}
		for _, u := range tw.mediaURLs() {
			if !mediaURLValidRe.MatchString(u) || seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, TweetMedia{ImageURL: u, TweetURL: permalink})
		}
		if len(out) >= tweetMediaMax {
			break
		}
	}
	return out
}

// parseBlockMedia 按 data-tweet-id 切块，块内图片归属该推文
func parseBlockMedia(html, user string) []TweetMedia {
	locs := tweetBlockIDRe.FindAllStringSubmatchIndex(html, -1)
	seen := map[string]bool{}
	var out []TweetMedia
	for i, loc := range locs {
		end := len(html)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		id := html[loc[2]:loc[3]]
		for _, img := range mediaURLRe.FindAllString(html[loc[0]:end], -1) {
			if seen[img] {
				continue
			}
			seen[img] = true
			out = append(out, TweetMedia{ImageURL: img, TweetURL: statusURL(user, id)})
		}
	}
	return out
}

// parseSequentialMedia 图片与状态 ID 按出现顺序一一配对
func parseSequentialMedia(html, user string) []TweetMedia {
	idRe := regexp.MustCompile(`(?i)\\?/` + regexp.QuoteMeta(user) + `\\?/status\\?/(\d+)`)
	var ids []string
	seenID := map[string]bool{}
	for _, m := range idRe.FindAllStringSubmatch(html, -1) {
		if !seenID[m[1]] {
			seenID[m[1]] = true
			ids = append(ids, m[1])
		}
	}

	seen := map[string]bool{}
	var out []TweetMedia
	for _, img := range mediaURLRe.FindAllString(html, -1) {
		if seen[img] {
			continue
		}
		seen[img] = true
		tweetURL := "https://x.com/" + user
		if i := len(out); i < len(ids) {
			tweetURL = statusURL(user, ids[i])
		}
		out = append(out, TweetMedia{ImageURL: img, TweetURL: tweetURL})
	}
	return out
}

func statusURL(user, id string) string {
	return fmt.Sprintf("https://x.com/%s/status/%s", user, id)
}

func tweetID(tweetURL string) string {
	if m := statusIDRe.FindStringSubmatch(tweetURL); m != nil {
		return strings.TrimLeft(m[1], "0")
	}
	return ""
}

// lessNumeric 十进制 ID 比较：先比长度再逐位比较
func lessNumeric(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// SortTweetMedia 按推文 ID 从新到旧，没有 ID 的排最后
func SortTweetMedia(items []TweetMedia) {
	sort.SliceStable(items, func(i, j int) bool {
		return lessNumeric(tweetID(items[j].TweetURL), tweetID(items[i].TweetURL))
	})
}

// ParseTweetMedia 先读 __NEXT_DATA__，再退回按块配对和顺序配对
func ParseTweetMedia(html, user string) []TweetMedia {
	out := parseNextDataMedia(html, user)
	if len(out) == 0 {
		out = parseBlockMedia(html, user)
	}
	if len(out) == 0 {
		out = parseSequentialMedia(html, user)
	}
	SortTweetMedia(out)
	if len(out) > tweetMediaMax {
		out = out[:tweetMediaMax]
	}
	if out == nil {
		out = []TweetMedia{}
	}
	return out
}

// FetchTweetMedia 抓取账号公开时间线的嵌入页
func FetchTweetMedia(ctx context.Context, g Getter, user string) ([]TweetMedia, error) {
	html, err := g.Text(ctx, timelineURL+user, fetch.Options{Timeout: tweetTimeout, Headers: map[string]string{
		"User-Agent": fetch.BrowserUserAgent,
		"Accept":     "text/html",
	}})
	if err != nil {
		return nil, fmt.Errorf("tweets: fetch %s: %w", user, err)
	}
	return ParseTweetMedia(html, user), nil
}
