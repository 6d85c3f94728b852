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

	"github.com/LJTian/crypturls/internal/fetch"
)

const (
	MomentumPageURL = "https://aixbt.tech/projects"
	MomentumAPIURL  = "https://api.aixbt.tech/v2/projects?limit=20&sort=momentum"
	MarketsURL      = "https://api.coingecko.com/api/v3/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=250&sparkline=false&price_change_percentage=24h"

	momentumChunkBytes = 3000
	momentumMaxRows    = 15
	momentumTimeout    = 8 * time.Second
)

// Project 一行 momentum 数据；PriceChange 找不到对应币种时为空
type Project struct {
	Name        string   `json:"name"`
	Ticker      string   `json:"ticker"`
	Momentum    int      `json:"momentum"`
	Snapshot    string   `json:"snapshot"`
	PriceChange *float64 `json:"priceChange,omitempty"`
}

var (
	projectRowRe      = regexp.MustCompile(`data-project-id="[^"]*"`)
	projectScoreRe    = regexp.MustCompile(`font-bold uppercase">(\d{2,3})</span>`)
	projectNameRe     = regexp.MustCompile(`font-bold whitespace-nowrap uppercase">([^<]+)</span>`)
	projectTickerRe   = regexp.MustCompile(`\$<!-- -->([^<]+)</span>`)
	projectSnapshotRe = regexp.MustCompile(`line-clamp-2 h-full w-full[^>]*>([^<]+)</span>`)
	headerLabelRe     = regexp.MustCompile(`(?i)^(momentum|score|name|snapshot)`)

	snapshotUnescaper = strings.NewReplacer("&#x27;", "'", "&quot;", `"`, "&amp;", "&")
)

// IsHeaderLabel 表头单元格与数据行结构相同，按名称识别并丢弃。
// 名称恰好以这些词开头的项目（如 "Momentum Finance"）也会被误判。
func IsHeaderLabel(name string) bool {
	return headerLabelRe.MatchString(strings.TrimSpace(name))
}

// ParseMomentumProjects 按行标记切分页面，每块只看前 3000 字节，防止未闭合的行吞掉后面的内容
func ParseMomentumProjects(html string) []Project {
	locs := projectRowRe.FindAllStringIndex(html, -1)
	var out []Project
	for i, loc := range locs {
		end := len(html)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunk := html[loc[1]:end]
		if len(chunk) > momentumChunkBytes {
			chunk = chunk[:momentumChunkBytes]
		}
		p, err := parseProjectRow(chunk)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func parseProjectRow(chunk string) (Project, error) {
	score := projectScoreRe.FindStringSubmatch(chunk)
	name := projectNameRe.FindStringSubmatch(chunk)
	if score == nil || name == nil {
		return Project{}, ErrParseSkip
	}
	n := strings.TrimSpace(name[1])
	if n == "" || IsHeaderLabel(n) {
		return Project{}, ErrParseSkip
	}
	momentum, err := strconv.Atoi(score[1])
	if err != nil {
		return Project{}, ErrParseSkip
	}
	p := Project{Name: n, Momentum: momentum}
	if t := projectTickerRe.FindStringSubmatch(chunk); t != nil {
		p.Ticker = strings.ToUpper(strings.TrimSpace(t[1]))
	}
	if s := projectSnapshotRe.FindStringSubmatch(chunk); s != nil {
		p.Snapshot = strings.TrimSpace(snapshotUnescaper.Replace(s[1]))
	}
	return p, nil
}

type momentumAPIResponse struct {
	Data []struct {
		Name     string   `json:"name"`
		Ticker   string   `json:"ticker"`
		Symbol   string   `json:"symbol"`
		Momentum *float64 `json:"momentum"`
		Score    *float64 `json:"score"`
		Snapshot string   `json:"snapshot"`
		Category string   `json:"category"`
	} `json:"data"`
}

// ParseMomentumAPI 解析 aixbt 官方 API 的返回
func ParseMomentumAPI(body []byte) ([]Project, error) {
	var resp momentumAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("momentum api: unmarshal: %w", err)
	}
	out := make([]Project, 0, len(resp.Data))
	for _, d := range resp.Data {
		if len(out) >= momentumMaxRows {
			break
		}
		p := Project{
			Name:     firstNonEmpty(d.Name, "Unknown"),
			Ticker:   strings.ToUpper(firstNonEmpty(d.Ticker, d.Symbol, "???")),
			Snapshot: firstNonEmpty(d.Snapshot, d.Category),
		}
		switch {
		case d.Momentum != nil:
			p.Momentum = int(*d.Momentum)
		case d.Score != nil:
			p.Momentum = int(*d.Score)
		}
		out = append(out, p)
	}
	return out, nil
}

// TrendingMomentum 用 CoinGecko 热门币拼出替代数据，名次越靠前分数越高
func TrendingMomentum(resp TrendingResponse) []Project {
	out := make([]Project, 0, momentumMaxRows)
	for idx, c := range resp.Coins {
		if idx >= momentumMaxRows {
			break
		}
		snapshot := "Trending on CoinGecko"
		if c.Item.MarketCapRank > 0 {
			snapshot = fmt.Sprintf("Trending — rank #%d", c.Item.MarketCapRank)
		}
		out = append(out, Project{
			Name:     firstNonEmpty(c.Item.Name, "Unknown"),
			Ticker:   strings.ToUpper(firstNonEmpty(c.Item.Symbol, "???")),
			Momentum: max(5, 100-idx*7),
			Snapshot: snapshot,
		})
	}
	return out
}

type marketCoin struct {
	Symbol    string   `json:"symbol"`
	Change24h *float64 `json:"price_change_percentage_24h"`
}

// ParseMarketChanges 生成 ticker -> 24h 涨跌幅
func ParseMarketChanges(body []byte) (map[string]float64, error) {
	var coins []marketCoin
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("markets: unmarshal: %w", err)
	}
	out := make(map[string]float64, len(coins))
	for _, c := range coins {
		if c.Symbol == "" || c.Change24h == nil {
			continue
		}
		sym := strings.ToUpper(c.Symbol)
		// 按市值排序，同名 ticker 保留市值更大的那个
		if _, ok := out[sym]; !ok {
			out[sym] = *c.Change24h
		}
	}
	return out, nil
}

// EnrichPriceChanges 返回带 PriceChange 的副本，不修改缓存中的原切片
func EnrichPriceChanges(projects []Project, changes map[string]float64) []Project {
	out := make([]Project, len(projects))
	for i, p := range projects {
		if v, ok := changes[p.Ticker]; ok && p.Ticker != "" {
			change := v
			p.PriceChange = &change
		}
		out[i] = p
	}
	return out
}

// SortByMomentum 分数从高到低，分数相同保持原顺序
func SortByMomentum(projects []Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].Momentum > projects[j].Momentum
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// FetchMomentumPage 抓取项目列表页并解析
func FetchMomentumPage(ctx context.Context, g Getter) ([]Project, error) {
	html, err := g.Text(ctx, MomentumPageURL, fetch.Options{Timeout: momentumTimeout, Headers: browserHeaders})
	if err != nil {
		return nil, fmt.Errorf("momentum: fetch page: %w", err)
	}
	rows := ParseMomentumProjects(html)
	if len(rows) > momentumMaxRows {
		rows = rows[:momentumMaxRows]
	}
	return rows, nil
}

// FetchMomentumAPI 需要 API key
func FetchMomentumAPI(ctx context.Context, g Getter, apiKey string) ([]Project, error) {
	body, err := g.Text(ctx, MomentumAPIURL, fetch.Options{
		Timeout: momentumTimeout,
		Headers: map[string]string{"x-api-key": apiKey},
	})
	if err != nil {
		return nil, fmt.Errorf("momentum: fetch api: %w", err)
	}
	return ParseMomentumAPI([]byte(body))
}

func FetchMarketChanges(ctx context.Context, g Getter) (map[string]float64, error) {
	body, err := g.Text(ctx, MarketsURL, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("markets: fetch: %w", err)
	}
	return ParseMarketChanges([]byte(body))
}
