package aggregator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/collector"
	"github.com/LJTian/crypturls/internal/logging"
	"github.com/LJTian/crypturls/internal/sources"
)

const (
	keyDigest      = "c4dotgg"
	keyPodcasts    = "pods"
	keyVideos      = "yt"
	keyShorts      = "yt-shorts"
	tweetKeyPrefix = "tweet-imgs-"

	ttlDigest   = 30 * time.Minute
	ttlPodcasts = 60 * time.Minute
	ttlVideos   = 30 * time.Minute
	ttlTweets   = 30 * time.Minute

	regularVideosMax = 18
)

var (
	ErrInvalidUser     = errors.New("aggregator: invalid tweet user")
	ErrUnsupportedUser = errors.New("aggregator: unsupported tweet user")
)

// ValidateTweetUser 返回小写后的账号名；格式不对或不在允许列表里时报错
func ValidateTweetUser(raw string) (string, error) {
	user := strings.ToLower(raw)
	if !collector.ValidTweetUser(user) {
		return "", ErrInvalidUser
	}
	if !sources.TweetUsers[user] {
		return "", ErrUnsupportedUser
	}
	return user, nil
}

func sortedTweetUsers() []string {
	out := make([]string, 0, len(sources.TweetUsers))
	for u := range sources.TweetUsers {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (a *Aggregator) digestDataset() dataset[collector.Digest] {
	return dataset[collector.Digest]{
		key:     keyDigest,
		ttl:     ttlDigest,
		failTTL: failTTL,
		empty:   collector.EmptyDigest,
		load: func(ctx context.Context) (collector.Digest, Mode, error) {
			d, ok, err := collector.FetchDigest(ctx, a.getter, sources.DigestChannel)
			if err != nil {
				return collector.Digest{}, "", err
			}
			if !ok {
				return collector.Digest{}, "", ErrNoData
			}
			return d, ModeLive, nil
		},
	}
}

// Digest Telegram 频道最新一期摘要
func (a *Aggregator) Digest(ctx context.Context) (Result[collector.Digest], error) {
	return get(ctx, a.cache, a.digestDataset())
}

func (a *Aggregator) podcastsDataset() dataset[[]collector.PodcastCard] {
	return dataset[[]collector.PodcastCard]{
		key:     keyPodcasts,
		ttl:     ttlPodcasts,
		failTTL: failTTL,
		empty:   func() []collector.PodcastCard { return []collector.PodcastCard{} },
		load: func(ctx context.Context) ([]collector.PodcastCard, Mode, error) {
			cards := make([]collector.PodcastCard, len(a.podcasts))
			fanOut(len(a.podcasts), func(i int) {
				cards[i] = collector.FetchPodcast(ctx, a.getter, a.podcasts[i])
			})
			return cards, ModeLive, nil
		},
	}
}

// Podcasts 精选播客，顺序与配置一致
func (a *Aggregator) Podcasts(ctx context.Context) (Result[[]collector.PodcastCard], error) {
	return get(ctx, a.cache, a.podcastsDataset())
}

func (a *Aggregator) videosDataset() dataset[[]collector.Video] {
	return dataset[[]collector.Video]{
		key:     keyVideos,
		ttl:     ttlVideos,
		failTTL: failTTL,
		empty:   func() []collector.Video { return []collector.Video{} },
		load:    a.loadVideos,
	}
}

// Videos 每个频道最新的一个普通视频
func (a *Aggregator) Videos(ctx context.Context) (Result[[]collector.Video], error) {
	return get(ctx, a.cache, a.videosDataset())
}

// loadVideos 同一次抓取同时写入短视频列表
func (a *Aggregator) loadVideos(ctx context.Context) ([]collector.Video, Mode, error) {
	now := a.now()
	perChannel := make([][]collector.Video, len(a.channels))
	ok := make([]bool, len(a.channels))

	fanOut(len(a.channels), func(i int) {
		ch := a.channels[i]
		videos, err := collector.FetchChannelVideos(ctx, a.getter, a.pages, ch, now)
		if err != nil {
			log.Warn().Err(err).Str(logging.FieldSource, ch.Name).Msg("channel videos failed")
			return
		}
		perChannel[i] = videos
		ok[i] = true
	})

	var all []collector.Video
	succeeded := 0
	for i := range a.channels {
		if ok[i] {
			succeeded++
			all = append(all, perChannel[i]...)
		}
	}
	if succeeded == 0 {
		return nil, "", ErrNoData
	}

	a.cache.Set(keyShorts, Result[[]collector.Video]{Data: collector.CollectShorts(all), Mode: ModeLive}, ttlVideos)
	return collector.SelectRegular(all, regularVideosMax), ModeLive, nil
}

// Shorts 没有缓存时重新加载 Videos
func (a *Aggregator) Shorts(ctx context.Context) (Result[[]collector.Video], error) {
	if r, ok := a.cachedShorts(); ok {
		return r, nil
	}
	a.cache.Delete(keyVideos)
	if _, err := a.Videos(ctx); err != nil {
		return Result[[]collector.Video]{Data: []collector.Video{}, Mode: ModeDefault}, err
	}
	if r, ok := a.cachedShorts(); ok {
		return r, nil
	}
	def := Result[[]collector.Video]{Data: []collector.Video{}, Mode: ModeDefault}
	a.cache.Set(keyShorts, def, failTTL)
	return def, nil
}

func (a *Aggregator) cachedShorts() (Result[[]collector.Video], bool) {
	v, ok := a.cache.Get(keyShorts)
	if !ok {
		return Result[[]collector.Video]{}, false
	}
	r, ok := v.(Result[[]collector.Video])
	return r, ok
}

func (a *Aggregator) tweetsDataset(user string) dataset[[]collector.TweetMedia] {
	return dataset[[]collector.TweetMedia]{
		key:     tweetKeyPrefix + user,
		ttl:     ttlTweets,
		failTTL: failTTLShort,
		empty:   func() []collector.TweetMedia { return []collector.TweetMedia{} },
		load: func(ctx context.Context) ([]collector.TweetMedia, Mode, error) {
			media, err := collector.FetchTweetMedia(ctx, a.getter, user)
			if err != nil {
				return nil, "", err
			}
			// 空结果按失败处理，短暂缓存后尽快重试
			if len(media) == 0 {
				return nil, "", ErrNoData
			}
			return media, ModeLive, nil
		},
	}
}

// Tweets 账号需先经过 ValidateTweetUser
func (a *Aggregator) Tweets(ctx context.Context, user string) (Result[[]collector.TweetMedia], error) {
	u, err := ValidateTweetUser(user)
	if err != nil {
		return Result[[]collector.TweetMedia]{Data: []collector.TweetMedia{}, Mode: ModeDefault}, err
	}
	return get(ctx, a.cache, a.tweetsDataset(u))
}
