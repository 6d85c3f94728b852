package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/sources"
)

const (
	redditUserAgent = "CryptUrls/1.0 (by /u/crypturls)"
	redditTimeout   = 10 * time.Second
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
	Stickied   bool    `json:"stickied"`
}

// ParseRedditListing 解析 listing JSON，过滤置顶帖
func ParseRedditListing(body []byte, sourceKey string, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = sources.DefaultArticleLimit
	}
	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("reddit: unmarshal listing: %w", err)
	}

	out := make([]Article, 0, limit)
	for _, child := range listing.Data.Children {
		if len(out) >= limit {
			break
		}
		var p redditPost
		if err := json.Unmarshal(child.Data, &p); err != nil {
			continue
		}
		if p.Stickied {
			continue
		}
		title := CleanText(p.Title)
		if title == "" {
			continue
		}
		link := "#"
		if strings.HasPrefix(p.Permalink, "/") {
			link = SanitizeURL("https://reddit.com" + p.Permalink)
		}
		pub := time.Now()
		if p.CreatedUTC > 0 {
			pub = time.UnixMilli(int64(p.CreatedUTC * 1000))
		}
		out = append(out, Article{
			Title:   title,
			Link:    link,
			PubDate: ISO(pub),
			Source:  sourceKey,
		})
	}
	return out, nil
}

// RedditFetcher 抓取一个 subreddit 当日热门
type RedditFetcher struct {
	getter Getter
	src    sources.Source
}

func (r *RedditFetcher) Name() string {
	return r.src.Key
}

func (r *RedditFetcher) Fetch(ctx context.Context) ([]Article, error) {
	body, err := r.getter.Text(ctx, r.src.URL, fetch.Options{
		Timeout: redditTimeout,
		Headers: map[string]string{"User-Agent": redditUserAgent},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: fetch listing: %w", r.src.Key, err)
	}
	return ParseRedditListing([]byte(body), r.src.Key, sources.DefaultArticleLimit)
}
