package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/sources"
)

const (
	coingeckoBase = "https://api.coingecko.com/api/v3"
	TrendingURL   = coingeckoBase + "/search/trending"
	FearGreedURL  = "https://api.alternative.me/fng/?limit=1"
	PolymarketURL = "https://gamma-api.polymarket.com/events?active=true&closed=false&limit=12&order=volume24hr&ascending=false"
	KalshiURL     = "https://api.elections.kalshi.com/trade-api/v2/events?status=open&with_nested_markets=true&limit=50"

	trendingMax       = 12
	predictionsMax    = 9
	outcomesMax       = 3
	predictionTimeout = 10 * time.Second
	missingPrice      = "—"
	zeroChange        = "0.00%"
)

// PricesURL 生成 simple/price 请求地址
func PricesURL(coins []sources.Coin) string {
	ids := make([]string, 0, len(coins))
	for _, c := range coins {
		ids = append(ids, c.ID)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	return coingeckoBase + "/simple/price?" + q.Encode()
}

type Price struct {
	Sym    string `json:"sym"`
	Price  string `json:"price"`
	Change string `json:"change"`
	Up     bool   `json:"up"`
}

type simplePrice struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

// ParsePrices 按 coins 的顺序输出；缺失的币种用占位值
func ParsePrices(body []byte, coins []sources.Coin) ([]Price, error) {
	var data map[string]simplePrice
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("prices: unmarshal: %w", err)
	}
	out := make([]Price, 0, len(coins))
	for _, c := range coins {
		info, ok := data[c.ID]
		if !ok || info.USD == nil || *info.USD == 0 {
			out = append(out, placeholderPrice(c))
			continue
		}
		change := 0.0
		if info.Change24h != nil {
			change = *info.Change24h
		}
		out = append(out, Price{
			Sym:    c.Sym,
			Price:  FormatPrice(*info.USD),
			Change: fmt.Sprintf("%+.2f%%", change),
			Up:     change >= 0,
		})
	}
	return out, nil
}

func placeholderPrice(c sources.Coin) Price {
	return Price{Sym: c.Sym, Price: missingPrice, Change: zeroChange, Up: false}
}

// PlaceholderPrices 上游不可用时的兜底
func PlaceholderPrices(coins []sources.Coin) []Price {
	out := make([]Price, 0, len(coins))
	for _, c := range coins {
		out = append(out, placeholderPrice(c))
	}
	return out
}

// FormatPrice 大额带千分位不带小数，1 以上两位小数，小额保留 3~4 位
func FormatPrice(p float64) string {
	switch {
	case p >= 1000:
		return humanize.Comma(int64(math.Round(p)))
	case p >= 1:
		return strconv.FormatFloat(p, 'f', 2, 64)
	default:
		s := strconv.FormatFloat(p, 'f', 4, 64)
		return strings.TrimSuffix(s, "0")
	}
}

type TrendingCoin struct {
	Sym string `json:"sym"`
	Pct string `json:"pct"`
	Tag string `json:"tag"`
	Up  bool   `json:"up"`
}

type TrendingResponse struct {
	Coins []struct {
		Item struct {
			Name          string `json:"name"`
			Symbol        string `json:"symbol"`
			MarketCapRank int    `json:"market_cap_rank"`
			Data          struct {
				PriceChange24h struct {
					USD *float64 `json:"usd"`
				} `json:"price_change_percentage_24h"`
			} `json:"data"`
		} `json:"item"`
	} `json:"coins"`
}

func ParseTrending(resp TrendingResponse) []TrendingCoin {
	out := make([]TrendingCoin, 0, trendingMax)
	for _, c := range resp.Coins {
		if len(out) >= trendingMax {
			break
		}
		if c.Item.Symbol == "" {
			continue
		}
		pct := 0.0
		if c.Item.Data.PriceChange24h.USD != nil {
			pct = *c.Item.Data.PriceChange24h.USD
		}
		out = append(out, TrendingCoin{
			Sym: strings.ToUpper(c.Item.Symbol),
			Pct: fmt.Sprintf("%+.1f%%", pct),
			Tag: c.Item.Name,
			Up:  pct >= 0,
		})
	}
	return out
}

func FetchTrending(ctx context.Context, g Getter) (TrendingResponse, error) {
	var resp TrendingResponse
	if err := g.JSON(ctx, TrendingURL, &resp, fetch.Options{}); err != nil {
		return resp, fmt.Errorf("trending: fetch: %w", err)
	}
	return resp, nil
}

type FearGreed struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// NeutralFearGreed 上游不可用时的中性值
var NeutralFearGreed = FearGreed{Value: 50, Label: "Neutral"}

func ParseFearGreed(body []byte) (FearGreed, error) {
	var resp struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return FearGreed{}, fmt.Errorf("fng: unmarshal: %w", err)
	}
	if len(resp.Data) == 0 {
		return FearGreed{}, fmt.Errorf("fng: empty data")
	}
	v, err := strconv.Atoi(strings.TrimSpace(resp.Data[0].Value))
	if err != nil || v < 0 || v > 100 {
		return FearGreed{}, fmt.Errorf("fng: bad value %q", resp.Data[0].Value)
	}
	return FearGreed{Value: v, Label: firstNonEmpty(resp.Data[0].Classification, "Neutral")}, nil
}

type Outcome struct {
	Label       string `json:"label"`
	Probability int    `json:"probability"`
}

type PredictionEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Outcomes    []Outcome `json:"outcomes"`
	TotalVolume float64   `json:"totalVolume"`

	volume24h float64
}

// flexFloat 上游有时用字符串表示数字
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type gammaEvent struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Volume    flexFloat       `json:"volume"`
	Volume24h flexFloat       `json:"volume24hr"`
	Markets   []struct {
		Question       string    `json:"question"`
		GroupItemTitle string    `json:"groupItemTitle"`
		Outcomes       string    `json:"outcomes"`
		OutcomePrices  string    `json:"outcomePrices"`
		Volume         flexFloat `json:"volume"`
		Volume24h      flexFloat `json:"volume24hr"`
		Closed         bool      `json:"closed"`
	} `json:"markets"`
}

// ParsePolymarket 单一市场取各选项价格；分组事件取每个子市场的 Yes 价格
func ParsePolymarket(body []byte) ([]PredictionEvent, error) {
	var events []gammaEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("polymarket: unmarshal: %w", err)
	}
	out := make([]PredictionEvent, 0, len(events))
	for _, e := range events {
		if len(e.Markets) == 0 || e.Title == "" {
			continue
		}
		ev := PredictionEvent{
			ID:        strings.Trim(string(e.ID), `"`),
			Title:     e.Title,
			URL:       SanitizeURL("https://polymarket.com/event/" + e.Slug),
			volume24h: float64(e.Volume24h),
		}
		var total, vol24 float64
		if len(e.Markets) == 1 {
			m := e.Markets[0]
			labels, prices := decodeStringList(m.Outcomes), decodeStringList(m.OutcomePrices)
			for i := 0; i < len(labels) && i < len(prices); i++ {
				p, err := strconv.ParseFloat(prices[i], 64)
				if err != nil {
					continue
				}
				ev.Outcomes = append(ev.Outcomes, Outcome{Label: labels[i], Probability: toPercent(p)})
			}
		} else {
			for _, m := range e.Markets {
				if m.Closed {
					continue
				}
				prices := decodeStringList(m.OutcomePrices)
				if len(prices) == 0 {
					continue
				}
				p, err := strconv.ParseFloat(prices[0], 64)
				if err != nil {
					continue
				}
				ev.Outcomes = append(ev.Outcomes, Outcome{
					Label:       firstNonEmpty(m.GroupItemTitle, m.Question),
					Probability: toPercent(p),
				})
			}
		}
		for _, m := range e.Markets {
			total += float64(m.Volume)
			vol24 += float64(m.Volume24h)
		}
		ev.TotalVolume = float64(e.Volume)
		if ev.TotalVolume == 0 {
			ev.TotalVolume = total
		}
		if ev.volume24h == 0 {
			ev.volume24h = vol24
		}
		if len(ev.Outcomes) == 0 {
			continue
		}
		out = append(out, ev)
	}
	return rankPredictions(out), nil
}

type kalshiResponse struct {
	Events []struct {
		EventTicker  string `json:"event_ticker"`
		SeriesTicker string `json:"series_ticker"`
		Title        string `json:"title"`
		Markets      []struct {
			Title       string    `json:"title"`
			YesSubTitle string    `json:"yes_sub_title"`
			LastPrice   flexFloat `json:"last_price"`
			Volume      flexFloat `json:"volume"`
			Volume24h   flexFloat `json:"volume_24h"`
		} `json:"markets"`
	} `json:"events"`
}

// ParseKalshi 价格单位是美分，直接作为百分比
func ParseKalshi(body []byte) ([]PredictionEvent, error) {
	var resp kalshiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kalshi: unmarshal: %w", err)
	}
	out := make([]PredictionEvent, 0, len(resp.Events))
	for _, e := range resp.Events {
		if len(e.Markets) == 0 || e.Title == "" || e.EventTicker == "" {
			continue
		}
		series := firstNonEmpty(e.SeriesTicker, e.EventTicker)
		ev := PredictionEvent{
			ID:    e.EventTicker,
			Title: e.Title,
			URL:   SanitizeURL("https://kalshi.com/markets/" + strings.ToLower(series)),
		}
		for _, m := range e.Markets {
			ev.TotalVolume += float64(m.Volume)
			ev.volume24h += float64(m.Volume24h)
			ev.Outcomes = append(ev.Outcomes, Outcome{
				Label:       firstNonEmpty(m.YesSubTitle, m.Title, "Yes"),
				Probability: clampPercent(int(math.Round(float64(m.LastPrice)))),
			})
		}
		out = append(out, ev)
	}
	return rankPredictions(out), nil
}

// rankPredictions 去掉零成交的事件，按 24h 成交量（其次总量）排序并截断
func rankPredictions(events []PredictionEvent) []PredictionEvent {
	out := events[:0]
	for _, ev := range events {
		if ev.TotalVolume <= 0 && ev.volume24h <= 0 {
			continue
		}
		sort.SliceStable(ev.Outcomes, func(i, j int) bool {
			return ev.Outcomes[i].Probability > ev.Outcomes[j].Probability
		})
		if len(ev.Outcomes) > outcomesMax {
			ev.Outcomes = ev.Outcomes[:outcomesMax]
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].volume24h != out[j].volume24h {
			return out[i].volume24h > out[j].volume24h
		}
		return out[i].TotalVolume > out[j].TotalVolume
	})
	if len(out) > predictionsMax {
		out = out[:predictionsMax]
	}
	return out
}

func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil
	}
	return list
}

func toPercent(p float64) int {
	return clampPercent(int(math.Round(p * 100)))
}

func clampPercent(v int) int {
	return min(100, max(0, v))
}

func FetchPolymarket(ctx context.Context, g Getter) ([]PredictionEvent, error) {
	body, err := g.Text(ctx, PolymarketURL, fetch.Options{Timeout: predictionTimeout})
	if err != nil {
		return nil, fmt.Errorf("polymarket: fetch: %w", err)
	}
	return ParsePolymarket([]byte(body))
}

func FetchKalshi(ctx context.Context, g Getter) ([]PredictionEvent, error) {
	body, err := g.Text(ctx, KalshiURL, fetch.Options{Timeout: predictionTimeout})
	if err != nil {
		return nil, fmt.Errorf("kalshi: fetch: %w", err)
	}
	return ParseKalshi([]byte(body))
}

func FetchPrices(ctx context.Context, g Getter, coins []sources.Coin) ([]Price, error) {
	body, err := g.Text(ctx, PricesURL(coins), fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("prices: fetch: %w", err)
	}
	return ParsePrices([]byte(body), coins)
}

func FetchFearGreed(ctx context.Context, g Getter) (FearGreed, error) {
	body, err := g.Text(ctx, FearGreedURL, fetch.Options{})
	if err != nil {
		return FearGreed{}, fmt.Errorf("fng: fetch: %w", err)
	}
	return ParseFearGreed([]byte(body))
}
