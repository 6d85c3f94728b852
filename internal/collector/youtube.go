package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/sources"
)

const (
	videosPerChannel = 5
	futureSkew       = 5 * time.Minute
	videoTimeout     = 10 * time.Second
	channelFeedURL   = "https://www.youtube.com/feeds/videos.xml?channel_id="
	thumbnailURL     = "https://img.youtube.com/vi/%s/mqdefault.jpg"
	publishedLayout  = "Jan 2"
)

type Video struct {
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Views       string `json:"views"`
	VideoID     string `json:"videoId"`
	Thumbnail   string `json:"thumbnail"`
	Color       string `json:"color"`
	Published   string `json:"published"`
	PublishedTs int64  `json:"publishedTs"`
	IsShort     bool   `json:"isShort"`
}

var (
	cryptoKeywordsRe = regexp.MustCompile(`(?i)bitcoin|btc|crypto|ethereum|eth|solana|sol|altcoin|defi|nft|blockchain|web3|token|coin|binance|cardano|xrp|chain|stablecoin|memecoin|hodl|bull|bear|halving|mining|wallet|ledger|staking`)
	upcomingRe       = regexp.MustCompile(`(?i)\b(LIVE\s+in\b|Starting\s+Soon|Premieres?\s+(in|at)\b|Scheduled|Going\s+Live\s+at\b|Upcoming\s+Live)`)
	shortsTagRe      = regexp.MustCompile(`(?i)#shorts?\b`)

	videoIDRe     = regexp.MustCompile(`<yt:videoId>([^<]+)</yt:videoId>`)
	viewsAttrRe   = regexp.MustCompile(`<media:statistics[^>]*\bviews="(\d+)"`)
	initialDataRe = regexp.MustCompile(`(?s)var ytInitialData\s*=\s*(\{.*?\});\s*(?:</script>|\z)`)
	relativeRe    = regexp.MustCompile(`(?i)(\d+)\s+(second|minute|hour|day|week|month|year)s?\s+ago`)
)

var relativeUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"year":   365 * 24 * time.Hour,
}

// IsShort 只看标题里的 #shorts 标签，不请求视频站判断。
// 标题带这个标签的普通视频会被误判为短视频，没带标签的短视频会被当作普通视频。
func IsShort(title string) bool {
	return shortsTagRe.MatchString(title)
}

// IsUpcoming 直播预告、首映等还没开始的视频
func IsUpcoming(title string) bool {
	return upcomingRe.MatchString(title)
}

func acceptVideo(ch sources.Channel, title string, ts int64, now time.Time) bool {
	if title == "" {
		return false
	}
	if ch.CryptoOnly && !cryptoKeywordsRe.MatchString(title) {
		return false
	}
	if IsUpcoming(title) {
		return false
	}
	if ch.TitleFilter != nil && !ch.TitleFilter.MatchString(title) {
		return false
	}
	return ts <= now.Add(futureSkew).UnixMilli()
}

func newVideo(ch sources.Channel, id, title, views string, published time.Time) Video {
	v := Video{
		Title:     title,
		Channel:   ch.Name,
		Views:     views,
		VideoID:   id,
		Thumbnail: fmt.Sprintf(thumbnailURL, id),
		Color:     ch.Color,
		IsShort:   IsShort(title),
	}
	if !published.IsZero() {
		v.PublishedTs = published.UnixMilli()
		v.Published = published.UTC().Format(publishedLayout)
	}
	return v
}

// ParseChannelFeed 解析频道 RSS 的 <entry>
func ParseChannelFeed(xml string, ch sources.Channel, now time.Time) []Video {
	var out []Video
	for _, m := range entryBlockRe.FindAllStringSubmatch(xml, -1) {
		if len(out) >= videosPerChannel {
			break
		}
		block := m[1]
		id := videoIDRe.FindStringSubmatch(block)
		if id == nil || strings.TrimSpace(id[1]) == "" {
			continue
		}
		title := CleanText(extractTag(block, "title"))
		published, _ := parseDate(extractTag(block, "published"))
		if !acceptVideo(ch, title, published.UnixMilli(), now) {
			continue
		}
		views := ""
		if vm := viewsAttrRe.FindStringSubmatch(block); vm != nil {
			if n, err := strconv.ParseInt(vm[1], 10, 64); err == nil {
				views = humanize.Comma(n) + " views"
			}
		}
		out = append(out, newVideo(ch, strings.TrimSpace(id[1]), title, views, published))
	}
	return out
}

type ytInitialData struct {
	Contents struct {
		TwoColumnBrowseResultsRenderer struct {
			Tabs []struct {
				TabRenderer struct {
					Title   string `json:"title"`
					Content struct {
						RichGridRenderer struct {
							Contents []struct {
								RichItemRenderer struct {
									Content struct {
										VideoRenderer *ytVideoRenderer `json:"videoRenderer"`
									} `json:"content"`
								} `json:"richItemRenderer"`
							} `json:"contents"`
						} `json:"richGridRenderer"`
					} `json:"content"`
				} `json:"tabRenderer"`
			} `json:"tabs"`
		} `json:"twoColumnBrowseResultsRenderer"`
	} `json:"contents"`
}

type ytVideoRenderer struct {
	VideoID string `json:"videoId"`
	Title   struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"title"`
	PublishedTimeText struct {
		SimpleText string `json:"simpleText"`
	} `json:"publishedTimeText"`
	ViewCountText struct {
		SimpleText string `json:"simpleText"`
	} `json:"viewCountText"`
}

// ParseChannelPage 解析 /videos 页面里的 ytInitialData；参数可以是整页 HTML 或单个 script 内容
func ParseChannelPage(page string, ch sources.Channel, now time.Time) ([]Video, error) {
	m := initialDataRe.FindStringSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("youtube: %s: ytInitialData not found", ch.Handle)
	}
	var data ytInitialData
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return nil, fmt.Errorf("youtube: %s: unmarshal ytInitialData: %w", ch.Handle, err)
	}

	var out []Video
	for _, tab := range data.Contents.TwoColumnBrowseResultsRenderer.Tabs {
		if tab.TabRenderer.Title != "Videos" {
			continue
		}
		for _, item := range tab.TabRenderer.Content.RichGridRenderer.Contents {
			if len(out) >= videosPerChannel {
				break
			}
			v := item.RichItemRenderer.Content.VideoRenderer
			if v == nil || v.VideoID == "" || len(v.Title.Runs) == 0 {
				continue
			}
			title := strings.TrimSpace(v.Title.Runs[0].Text)
			published := relativeTime(v.PublishedTimeText.SimpleText, now)
			if !acceptVideo(ch, title, published.UnixMilli(), now) {
				continue
			}
			out = append(out, newVideo(ch, v.VideoID, title, v.ViewCountText.SimpleText, published))
		}
	}
	return out, nil
}

// relativeTime 把 "3 days ago" 换算成时间点，无法识别时返回零值
func relativeTime(s string, now time.Time) time.Time {
	m := relativeRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}
	}
	return now.Add(-time.Duration(n) * relativeUnits[strings.ToLower(m[2])])
}

func sortNewest(videos []Video) []Video {
	sorted := append([]Video(nil), videos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedTs > sorted[j].PublishedTs
	})
	return sorted
}

// SelectRegular 每个频道只保留最新的一个非短视频，整体按时间倒序
func SelectRegular(videos []Video, limit int) []Video {
	seen := map[string]bool{}
	out := []Video{}
	for _, v := range sortNewest(videos) {
		if v.IsShort || seen[v.Channel] {
			continue
		}
		seen[v.Channel] = true
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// CollectShorts 所有短视频，按时间倒序
func CollectShorts(videos []Video) []Video {
	out := []Video{}
	for _, v := range sortNewest(videos) {
		if v.IsShort {
			out = append(out, v)
		}
	}
	return out
}

// Episode 频道最新一期节目
type Episode struct {
	VideoID   string
	Title     string
	Published string
}

// LatestEpisode 取第一个满足标题过滤的 entry
func LatestEpisode(xml string, titleFilter *regexp.Regexp) Episode {
	for _, m := range entryBlockRe.FindAllStringSubmatch(xml, -1) {
		block := m[1]
		title := CleanText(extractTag(block, "title"))
		if titleFilter != nil && !titleFilter.MatchString(title) {
			continue
		}
		ep := Episode{Title: title}
		if id := videoIDRe.FindStringSubmatch(block); id != nil {
			ep.VideoID = strings.TrimSpace(id[1])
		}
		if t, ok := parseDate(extractTag(block, "published")); ok {
			ep.Published = t.UTC().Format(publishedLayout)
		}
		return ep
	}
	return Episode{}
}

// ChannelFeedURL 频道 RSS 地址
func ChannelFeedURL(channelID string) string {
	return channelFeedURL + channelID
}

// FetchChannelVideos 有频道 ID 的走 RSS，RSS 失败或没有 ID 时抓 /videos 页面
func FetchChannelVideos(ctx context.Context, g Getter, pages PageCollector, ch sources.Channel, now time.Time) ([]Video, error) {
	var feedErr error
	if ch.ChannelID != "" {
		xml, err := g.Text(ctx, ChannelFeedURL(ch.ChannelID), fetch.Options{Timeout: videoTimeout})
		if err == nil {
			return ParseChannelFeed(xml, ch, now), nil
		}
		feedErr = fmt.Errorf("youtube: %s: fetch feed: %w", ch.Name, err)
	}
	if pages == nil || ch.Handle == "" {
		if feedErr == nil {
			feedErr = fmt.Errorf("youtube: %s: no channel id or handle", ch.Name)
		}
		return nil, feedErr
	}
	page, err := pages.ChannelPage(ctx, ch.Handle)
	if err != nil {
		return nil, fmt.Errorf("youtube: %s: fetch page: %w", ch.Name, err)
	}
	return ParseChannelPage(page, ch, now)
}

// FetchLatestEpisode 读取频道 RSS 的最新一期
func FetchLatestEpisode(ctx context.Context, g Getter, channelID string, titleFilter *regexp.Regexp) (Episode, error) {
	xml, err := g.Text(ctx, ChannelFeedURL(channelID), fetch.Options{Timeout: videoTimeout})
	if err != nil {
		return Episode{}, fmt.Errorf("youtube: fetch feed %s: %w", channelID, err)
	}
	return LatestEpisode(xml, titleFilter), nil
}
