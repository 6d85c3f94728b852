package collector

import (
	"context"
	"errors"
	"time"

	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/sources"
)

// Article 统一后的新闻条目
type Article struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	PubDate string `json:"pubDate"`
	Source  string `json:"source"`
}

// Getter 有超时约束的上游请求；由 fetch.Client 实现
type Getter interface {
	Text(ctx context.Context, url string, opts fetch.Options) (string, error)
	JSON(ctx context.Context, url string, out any, opts fetch.Options) error
}

// Fetcher 抽象每一个新闻/社区数据源
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]Article, error)
}

// NewFetcher 按数据源类型选择解析器
func NewFetcher(g Getter, src sources.Source) Fetcher {
	switch src.Kind {
	case sources.KindReddit:
		return &RedditFetcher{getter: g, src: src}
	case sources.KindChan:
		return &CatalogFetcher{getter: g, src: src}
	default:
		return &FeedFetcher{getter: g, src: src}
	}
}

// ErrParseSkip 单条数据格式不对，丢弃该条继续解析，不会返回给调用方
var ErrParseSkip = errors.New("collector: skip malformed item")

// ISO 输出与浏览器 toISOString 一致的时间格式
func ISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

var browserHeaders = map[string]string{
	"User-Agent":      fetch.BrowserUserAgent,
	"Accept":          "text/html",
	"Accept-Language": "en-US,en;q=0.9",
}
