package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/cache"
	"github.com/LJTian/crypturls/internal/collector"
	"github.com/LJTian/crypturls/internal/logging"
)

const (
	keyPrices      = "prices"
	keyTrending    = "trending"
	keyFearGreed   = "fng"
	keyPredictions = "predictions"
	keyMomentum    = "aixbt"
	keyMarkets     = "cg-markets"

	ttlPrices      = 2 * time.Minute
	ttlTrending    = 5 * time.Minute
	ttlFearGreed   = 30 * time.Minute
	ttlPredictions = 5 * time.Minute
	ttlMomentum    = 10 * time.Minute
	ttlMarkets     = 5 * time.Minute

	failTTLFearGreed = 5 * time.Minute
)

// Predictions 两个预测市场各自的热门事件
type Predictions struct {
	Polymarket []collector.PredictionEvent `json:"polymarket"`
	Kalshi     []collector.PredictionEvent `json:"kalshi"`
}

func emptyPredictions() Predictions {
	return Predictions{Polymarket: []collector.PredictionEvent{}, Kalshi: []collector.PredictionEvent{}}
}

func (a *Aggregator) pricesDataset() dataset[[]collector.Price] {
	return dataset[[]collector.Price]{
		key:     keyPrices,
		ttl:     ttlPrices,
		failTTL: failTTLShort,
		empty:   func() []collector.Price { return collector.PlaceholderPrices(a.coins) },
		load: func(ctx context.Context) ([]collector.Price, Mode, error) {
			prices, err := collector.FetchPrices(ctx, a.getter, a.coins)
			if err != nil {
				return nil, "", err
			}
			return prices, ModeLive, nil
		},
	}
}

// Prices 价格栏
func (a *Aggregator) Prices(ctx context.Context) (Result[[]collector.Price], error) {
	return get(ctx, a.cache, a.pricesDataset())
}

func (a *Aggregator) trendingDataset() dataset[[]collector.TrendingCoin] {
	return dataset[[]collector.TrendingCoin]{
		key:     keyTrending,
		ttl:     ttlTrending,
		failTTL: failTTLShort,
		empty:   func() []collector.TrendingCoin { return []collector.TrendingCoin{} },
		load: func(ctx context.Context) ([]collector.TrendingCoin, Mode, error) {
			resp, err := collector.FetchTrending(ctx, a.getter)
			if err != nil {
				return nil, "", err
			}
			coins := collector.ParseTrending(resp)
			if len(coins) == 0 {
				return nil, "", ErrNoData
			}
			return coins, ModeLive, nil
		},
	}
}

// Trending CoinGecko 热门币
func (a *Aggregator) Trending(ctx context.Context) (Result[[]collector.TrendingCoin], error) {
	return get(ctx, a.cache, a.trendingDataset())
}

func (a *Aggregator) fearGreedDataset() dataset[collector.FearGreed] {
	return dataset[collector.FearGreed]{
		key:     keyFearGreed,
		ttl:     ttlFearGreed,
		failTTL: failTTLFearGreed,
		empty:   func() collector.FearGreed { return collector.NeutralFearGreed },
		load: func(ctx context.Context) (collector.FearGreed, Mode, error) {
			fg, err := collector.FetchFearGreed(ctx, a.getter)
			if err != nil {
				return collector.FearGreed{}, "", err
			}
			return fg, ModeLive, nil
		},
	}
}

// FearGreed 恐慌贪婪指数
func (a *Aggregator) FearGreed(ctx context.Context) (Result[collector.FearGreed], error) {
	return get(ctx, a.cache, a.fearGreedDataset())
}

func (a *Aggregator) predictionsDataset() dataset[Predictions] {
	return dataset[Predictions]{
		key:     keyPredictions,
		ttl:     ttlPredictions,
		failTTL: failTTLShort,
		empty:   emptyPredictions,
		load:    a.loadPredictions,
	}
}

// Predictions 两个市场都失败才算失败
func (a *Aggregator) Predictions(ctx context.Context) (Result[Predictions], error) {
	return get(ctx, a.cache, a.predictionsDataset())
}

func (a *Aggregator) loadPredictions(ctx context.Context) (Predictions, Mode, error) {
	out := emptyPredictions()
	fetchers := []struct {
		name  string
		fetch func(context.Context, collector.Getter) ([]collector.PredictionEvent, error)
		dst   *[]collector.PredictionEvent
	}{
		{"polymarket", collector.FetchPolymarket, &out.Polymarket},
		{"kalshi", collector.FetchKalshi, &out.Kalshi},
	}
	errs := make([]error, len(fetchers))

	fanOut(len(fetchers), func(i int) {
		f := fetchers[i]
		events, err := f.fetch(ctx, a.getter)
		if err != nil {
			log.Warn().Err(err).Str(logging.FieldSource, f.name).Msg("prediction market failed")
			errs[i] = err
			return
		}
		if events != nil {
			*f.dst = events
		}
	})

	if errs[0] != nil && errs[1] != nil {
		return Predictions{}, "", errors.Join(errs...)
	}
	return out, ModeLive, nil
}

func (a *Aggregator) momentumDataset() dataset[[]collector.Project] {
	return dataset[[]collector.Project]{
		key:     keyMomentum,
		ttl:     ttlMomentum,
		failTTL: failTTL,
		empty:   func() []collector.Project { return []collector.Project{} },
		load:    a.loadMomentum,
	}
}

// Momentum 页面抓取 -> 官方 API（有 key 时）-> CoinGecko 热门币，逐级降级
func (a *Aggregator) Momentum(ctx context.Context) (Result[[]collector.Project], error) {
	return get(ctx, a.cache, a.momentumDataset())
}

func (a *Aggregator) loadMomentum(ctx context.Context) ([]collector.Project, Mode, error) {
	rows, mode := a.momentumRows(ctx)
	if len(rows) == 0 {
		return nil, "", ErrNoData
	}
	rows = collector.EnrichPriceChanges(rows, a.marketChanges(ctx))
	collector.SortByMomentum(rows)
	return rows, mode, nil
}

func (a *Aggregator) momentumRows(ctx context.Context) ([]collector.Project, Mode) {
	rows, err := collector.FetchMomentumPage(ctx, a.getter)
	if err == nil && len(rows) > 0 {
		return rows, ModeLive
	}
	log.Warn().Err(err).Str(logging.FieldURL, collector.MomentumPageURL).Msg("momentum page unavailable")

	if a.aixbtKey != "" {
		rows, err = collector.FetchMomentumAPI(ctx, a.getter, a.aixbtKey)
		if err == nil && len(rows) > 0 {
			return rows, ModeAPI
		}
		log.Warn().Err(err).Str(logging.FieldURL, collector.MomentumAPIURL).Msg("momentum api unavailable")
	}

	resp, err := collector.FetchTrending(ctx, a.getter)
	if err != nil {
		log.Warn().Err(err).Str(logging.FieldURL, collector.TrendingURL).Msg("momentum trending fallback unavailable")
		return nil, ""
	}
	return collector.TrendingMomentum(resp), ModeFallback
}

// marketChanges 24h 涨跌幅单独缓存；拿不到时只是不填 priceChange
func (a *Aggregator) marketChanges(ctx context.Context) map[string]float64 {
	changes, err := cache.Fetch(ctx, a.cache, keyMarkets, ttlMarkets, func(ctx context.Context) (map[string]float64, error) {
		return collector.FetchMarketChanges(ctx, a.getter)
	})
	if err != nil {
		log.Warn().Err(err).Str(logging.FieldDataset, keyMarkets).Msg("market changes unavailable")
		return nil
	}
	return changes
}
