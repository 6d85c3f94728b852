package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 8 * time.Second
	DefaultUserAgent = "CryptUrls/1.0 (https://crypturls.com)"
	// BrowserUserAgent is sent to sites that serve bots a stripped page.
	BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// CoinGeckoHost 免费接口有调用频率限制
	CoinGeckoHost = "api.coingecko.com"

	maxBodyBytes = 8 << 20 // 8MB
)

// TimeoutError 上游在截止时间内没有响应
type TimeoutError struct {
	URL   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetch %s: timed out after %s", e.URL, e.After)
}

// HTTPStatusError 上游返回非 2xx
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
}

// DecodeError 响应体无法按 JSON 解码
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fetch %s: decode: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Options 单次请求的参数；Timeout 为 0 时使用客户端默认值
type Options struct {
	Timeout time.Duration
	Headers map[string]string
}

type Client struct {
	http      *http.Client
	userAgent string
	timeout   time.Duration
	limiters  map[string]*rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHostLimit 对同一域名的请求限速，两次请求至少间隔 every；burst 为允许的突发数
func WithHostLimit(host string, every time.Duration, burst int) Option {
	return func(c *Client) {
		if every <= 0 {
			return
		}
		c.limiters[host] = rate.NewLimiter(rate.Every(every), max(1, burst))
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{},
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		limiters:  map[string]*rate.Limiter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Text 获取响应体文本
func (c *Client) Text(ctx context.Context, url string, opts Options) (string, error) {
	body, err := c.do(ctx, url, opts)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON 获取并解码 JSON 到 out
func (c *Client) JSON(ctx context.Context, url string, out any, opts Options) error {
	body, err := c.do(ctx, url, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}

// wait 排队时间计入单次请求的超时；等不到令牌就超过截止时间时按超时处理
func (c *Client) wait(ctx context.Context, url string, timeout time.Duration) error {
	if len(c.limiters) == 0 {
		return nil
	}
	u, err := neturl.Parse(url)
	if err != nil {
		return nil
	}
	l, ok := c.limiters[u.Hostname()]
	if !ok {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(context.Cause(ctx), errDeadline) {
			return ctxErr
		}
		if _, ok := ctx.Deadline(); ok {
			return &TimeoutError{URL: url, After: timeout}
		}
		return fmt.Errorf("fetch %s: rate limiter: %w", url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string, opts Options) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, errDeadline)
	defer cancel()

	if err := c.wait(ctx, url, timeout); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: build request: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.wrap(ctx, url, timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 读掉剩余内容以便连接复用
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPStatusError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.wrap(ctx, url, timeout, err)
	}
	return body, nil
}

var errDeadline = errors.New("per-request deadline")

func (c *Client) wrap(ctx context.Context, url string, timeout time.Duration, err error) error {
	if errors.Is(context.Cause(ctx), errDeadline) {
		return &TimeoutError{URL: url, After: timeout}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("fetch %s: %w", url, err)
}

// IsTimeout 判断错误是否为超时
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// StatusCode 返回 HTTPStatusError 的状态码，其它错误返回 0
func StatusCode(err error) int {
	var he *HTTPStatusError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}
