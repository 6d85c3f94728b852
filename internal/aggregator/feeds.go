package aggregator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/collector"
	"github.com/LJTian/crypturls/internal/logging"
	"github.com/LJTian/crypturls/internal/sources"
)

const (
	keyFeeds = "feeds-all"
	ttlFeeds = 5 * time.Minute
)

// FeedEntry 一个数据源在首页上的一栏
type FeedEntry struct {
	Name     string              `json:"name"`
	Color    string              `json:"color"`
	Domain   string              `json:"domain"`
	Articles []collector.Article `json:"articles"`
}

// Feeds 数据源 key -> 栏目，每个配置的数据源都有一项
type Feeds map[string]FeedEntry

func emptyFeeds(list []sources.Source) Feeds {
	out := make(Feeds, len(list))
	for _, s := range list {
		out[s.Key] = entryFor(s, nil)
	}
	return out
}

func entryFor(s sources.Source, articles []collector.Article) FeedEntry {
	if articles == nil {
		articles = []collector.Article{}
	}
	return FeedEntry{Name: s.Name, Color: s.Color, Domain: s.Domain, Articles: articles}
}

func (a *Aggregator) feedsDataset() dataset[Feeds] {
	return dataset[Feeds]{
		key:     keyFeeds,
		ttl:     ttlFeeds,
		failTTL: failTTLShort,
		empty:   func() Feeds { return emptyFeeds(a.sources) },
		load:    a.loadFeeds,
	}
}

// Feeds 所有新闻与社区源
func (a *Aggregator) Feeds(ctx context.Context) (Result[Feeds], error) {
	return get(ctx, a.cache, a.feedsDataset())
}

func (a *Aggregator) loadFeeds(ctx context.Context) (Feeds, Mode, error) {
	results := make([][]collector.Article, len(a.sources))
	ok := make([]bool, len(a.sources))

	fanOut(len(a.sources), func(i int) {
		src := a.sources[i]
		articles, err := collector.NewFetcher(a.getter, src).Fetch(ctx)
		if err != nil {
			log.Warn().Err(err).Str(logging.FieldSource, src.Key).Str(logging.FieldURL, src.URL).Msg("feed source failed")
			return
		}
		results[i] = a.processor.Process(src.Key, articles)
		ok[i] = true
	})

	out := make(Feeds, len(a.sources))
	succeeded := 0
	for i, src := range a.sources {
		if ok[i] {
			succeeded++
		}
		out[src.Key] = entryFor(src, results[i])
	}
	if succeeded == 0 {
		return nil, "", ErrNoData
	}
	log.Debug().Int(logging.FieldCount, succeeded).Int("total", len(a.sources)).Msg("feeds loaded")
	return out, ModeLive, nil
}

// headlines 每个数据源的第一条标题
func (f Feeds) headlines() []string {
	var out []string
	for _, e := range f {
		if len(e.Articles) > 0 {
			out = append(out, e.Articles[0].Title)
		}
	}
	return out
}
