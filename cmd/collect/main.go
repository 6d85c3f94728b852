package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/aggregator"
	"github.com/LJTian/crypturls/internal/cache"
	"github.com/LJTian/crypturls/internal/config"
	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/logging"
	"github.com/LJTian/crypturls/internal/scheduler"
)

// 只执行一轮全部数据集的抓取后退出：适合手动检查上游是否可用
func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFile)

	c := cache.New(cache.DefaultCleanupInterval)
	client := fetch.New(
		fetch.WithTimeout(cfg.HTTPTimeout),
		fetch.WithHostLimit(fetch.CoinGeckoHost, cfg.CoinGeckoInterval, 3),
	)
	agg := aggregator.New(c, client, aggregator.WithAIXBTKey(cfg.AIXBTAPIKey))

	warmers := agg.Warmers()
	list := make([]scheduler.Warmer, 0, len(warmers))
	for _, w := range warmers {
		list = append(list, w)
	}
	s, err := scheduler.New([]scheduler.Job{{Warmers: list, CronSpec: cfg.WarmCronSpec}})
	if err != nil {
		log.Fatal().Err(err).Msg("init scheduler failed")
	}
	defer s.Stop()

	ctx := context.Background()
	s.RunOnce(ctx)

	report(ctx, agg)
	log.Info().Str(logging.FieldCount, humanize.Comma(int64(c.Len()))).Msg("cache entries after one pass")
}

// report 逐个数据集读取一次缓存，输出来源模式
func report(ctx context.Context, agg *aggregator.Aggregator) {
	logMode := func(name string, mode aggregator.Mode, n int) {
		log.Info().Str(logging.FieldDataset, name).Str(logging.FieldMode, string(mode)).Int(logging.FieldCount, n).Msg("dataset")
	}

	if r, err := agg.Feeds(ctx); err == nil {
		total := 0
		for _, e := range r.Data {
			total += len(e.Articles)
		}
		logMode("feeds", r.Mode, total)
	}
	if r, err := agg.Prices(ctx); err == nil {
		logMode("prices", r.Mode, len(r.Data))
	}
	if r, err := agg.Trending(ctx); err == nil {
		logMode("trending", r.Mode, len(r.Data))
	}
	if r, err := agg.FearGreed(ctx); err == nil {
		logMode("fng", r.Mode, 1)
	}
	if r, err := agg.Predictions(ctx); err == nil {
		logMode("predictions", r.Mode, len(r.Data.Polymarket)+len(r.Data.Kalshi))
	}
	if r, err := agg.Momentum(ctx); err == nil {
		logMode("aixbt", r.Mode, len(r.Data))
	}
	if r, err := agg.Digest(ctx); err == nil {
		logMode("c4dotgg", r.Mode, len(r.Data.Sections))
	}
	if r, err := agg.Podcasts(ctx); err == nil {
		logMode("podcasts", r.Mode, len(r.Data))
	}
	if r, err := agg.Videos(ctx); err == nil {
		logMode("youtube", r.Mode, len(r.Data))
	}
	if r, err := agg.Shorts(ctx); err == nil {
		logMode("youtube-shorts", r.Mode, len(r.Data))
	}
	if r, err := agg.Questions(ctx); err == nil {
		logMode("questions", r.Mode, len(r.Data.Questions))
	}
}
