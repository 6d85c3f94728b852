package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/logging"
)

const (
	youtubeBaseURL = "https://www.youtube.com/"
	pageTimeout    = 10 * time.Second
	initialDataVar = "var ytInitialData"
)

// errNoInitialData 页面里找不到 ytInitialData 脚本
var errNoInitialData = errors.New("youtube: ytInitialData script not found")

// PageCollector 读取频道 /videos 页面，返回包含 ytInitialData 的内容
type PageCollector interface {
	ChannelPage(ctx context.Context, handle string) (string, error)
}

// CollyPageCollector 用 colly 访问频道页，只保留 ytInitialData 所在的 script
type CollyPageCollector struct {
	BaseURL string
	Timeout time.Duration
}

func (p *CollyPageCollector) ChannelPage(ctx context.Context, handle string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = pageTimeout
	}

	c := colly.NewCollector(colly.UserAgent(fetch.BrowserUserAgent))
	c.SetRequestTimeout(timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var script string
	c.OnHTML("script", func(e *colly.HTMLElement) {
		if script == "" && strings.Contains(e.Text, initialDataVar) {
			script = e.Text
		}
	})

	if err := c.Visit(channelVideosURL(p.BaseURL, handle)); err != nil {
		return "", fmt.Errorf("youtube: visit %s: %w", handle, err)
	}
	if script == "" {
		return "", errNoInitialData
	}
	return script, nil
}

// HTTPPageCollector 直接 GET 整页 HTML
type HTTPPageCollector struct {
	Getter  Getter
	BaseURL string
}

func (p *HTTPPageCollector) ChannelPage(ctx context.Context, handle string) (string, error) {
	html, err := p.Getter.Text(ctx, channelVideosURL(p.BaseURL, handle), fetch.Options{Timeout: pageTimeout, Headers: browserHeaders})
	if err != nil {
		return "", err
	}
	if !strings.Contains(html, initialDataVar) {
		return "", errNoInitialData
	}
	return html, nil
}

// FallbackPageCollector 依次尝试，第一个成功的结果胜出
type FallbackPageCollector []PageCollector

func (f FallbackPageCollector) ChannelPage(ctx context.Context, handle string) (string, error) {
	var errs []error
	for _, p := range f {
		page, err := p.ChannelPage(ctx, handle)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Debug().Err(err).Str(logging.FieldSource, handle).Msg("channel page collector failed, trying next")
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", errNoInitialData
	}
	return "", errors.Join(errs...)
}

// NewPageCollector colly 优先，失败时直接 GET
func NewPageCollector(g Getter) PageCollector {
	return FallbackPageCollector{
		&CollyPageCollector{},
		&HTTPPageCollector{Getter: g},
	}
}

func channelVideosURL(base, handle string) string {
	if base == "" {
		base = youtubeBaseURL
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(handle, "/") + "/videos"
}
