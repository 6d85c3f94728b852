package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/cache"
	"github.com/LJTian/crypturls/internal/collector"
	"github.com/LJTian/crypturls/internal/logging"
	"github.com/LJTian/crypturls/internal/processor"
	"github.com/LJTian/crypturls/internal/sources"
)

// Mode 标记返回的数据来自哪一级
type Mode string

const (
	ModeLive     Mode = "live"
	ModeAPI      Mode = "api"
	ModeFallback Mode = "fallback"
	ModeDefault  Mode = "default"
)

// Result 一个数据集的值以及它的来源
type Result[T any] struct {
	Data T
	Mode Mode
}

// ErrNoData loader 没有拿到任何可用数据
var ErrNoData = errors.New("aggregator: no usable data")

const (
	failTTLShort = 30 * time.Second
	failTTL      = time.Minute
)

// Aggregator 每个数据集一个方法，都经过缓存
type Aggregator struct {
	cache     *cache.Cache
	getter    collector.Getter
	pages     collector.PageCollector
	processor *processor.SimpleProcessor
	aixbtKey  string
	now       func() time.Time

	sources  []sources.Source
	channels []sources.Channel
	podcasts []sources.Podcast
	coins    []sources.Coin
}

type Option func(*Aggregator)

// WithPageCollector 替换频道页的抓取方式
func WithPageCollector(p collector.PageCollector) Option {
	return func(a *Aggregator) { a.pages = p }
}

// WithAIXBTKey 配置后 momentum 抓取失败时会尝试官方 API
func WithAIXBTKey(key string) Option {
	return func(a *Aggregator) { a.aixbtKey = key }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithSources(list []sources.Source) Option {
	return func(a *Aggregator) { a.sources = list }
}

func WithChannels(list []sources.Channel) Option {
	return func(a *Aggregator) { a.channels = list }
}

func WithPodcasts(list []sources.Podcast) Option {
	return func(a *Aggregator) { a.podcasts = list }
}

func New(c *cache.Cache, g collector.Getter, opts ...Option) *Aggregator {
	a := &Aggregator{
		cache:     c,
		getter:    g,
		processor: processor.NewSimpleProcessor(),
		now:       time.Now,
		sources:   sources.All(),
		channels:  sources.Channels,
		podcasts:  sources.Podcasts,
		coins:     sources.PriceCoins,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.pages == nil {
		a.pages = collector.NewPageCollector(g)
	}
	return a
}

// dataset 描述一个缓存数据集：正常 TTL、失败时缓存默认值的 TTL，以及加载方式
type dataset[T any] struct {
	key     string
	ttl     time.Duration
	failTTL time.Duration
	empty   func() T
	load    func(ctx context.Context) (T, Mode, error)
}

func (ds dataset[T]) loader(ctx context.Context) (Result[T], error) {
	data, mode, err := ds.load(ctx)
	if err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Data: data, Mode: mode}, nil
}

func (ds dataset[T]) fallback() Result[T] {
	return Result[T]{Data: ds.empty(), Mode: ModeDefault}
}

// get 命中或加载成功直接返回。加载失败时写入默认值并短暂缓存；
// 调用方取消时返回默认值和 ctx 错误，不写缓存。
func get[T any](ctx context.Context, c *cache.Cache, ds dataset[T]) (Result[T], error) {
	res, err := cache.Fetch(ctx, c, ds.key, ds.ttl, ds.loader)
	if err == nil {
		return res, nil
	}
	def := ds.fallback()
	if !cache.IsLoadError(err) {
		return def, err
	}
	log.Warn().Err(err).Str(logging.FieldDataset, ds.key).Dur("ttl", ds.failTTL).Msg("dataset unavailable, serving default")
	c.Set(ds.key, def, ds.failTTL)
	return def, nil
}

// refresh 预热用：强制重新加载，失败时保留已有条目
func refresh[T any](ctx context.Context, c *cache.Cache, ds dataset[T]) error {
	_, err := c.Refresh(ctx, ds.key, ds.ttl, func(ctx context.Context) (any, error) {
		return ds.loader(ctx)
	})
	return err
}

// fanOut 并发执行 n 个任务并等待全部结束，单个失败不影响其他任务
func fanOut(n int, task func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task(i)
		}(i)
	}
	wg.Wait()
}

// DatasetWarmer 刷新一个数据集的缓存
type DatasetWarmer struct {
	name string
	warm func(ctx context.Context) error
}

func (w DatasetWarmer) Name() string                  { return w.name }
func (w DatasetWarmer) Warm(ctx context.Context) error { return w.warm(ctx) }

func warmerFor[T any](a *Aggregator, ds dataset[T]) DatasetWarmer {
	return DatasetWarmer{name: ds.key, warm: func(ctx context.Context) error {
		return refresh(ctx, a.cache, ds)
	}}
}

// Warmers 返回所有需要定时预热的数据集；短视频随 Videos 一起刷新
func (a *Aggregator) Warmers() []DatasetWarmer {
	out := []DatasetWarmer{
		warmerFor(a, a.feedsDataset()),
		warmerFor(a, a.pricesDataset()),
		warmerFor(a, a.trendingDataset()),
		warmerFor(a, a.fearGreedDataset()),
		warmerFor(a, a.predictionsDataset()),
		warmerFor(a, a.momentumDataset()),
		warmerFor(a, a.digestDataset()),
		warmerFor(a, a.podcastsDataset()),
		warmerFor(a, a.videosDataset()),
		warmerFor(a, a.questionsDataset()),
	}
	for _, user := range sortedTweetUsers() {
		out = append(out, warmerFor(a, a.tweetsDataset(user)))
	}
	return out
}
