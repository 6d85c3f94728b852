package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/logging"
	"github.com/LJTian/crypturls/internal/sources"
)

const (
	itunesSearchURL = "https://itunes.apple.com/search?term=%s&media=podcast&limit=1"
	itunesTimeout   = 6 * time.Second
)

type PodcastCard struct {
	Title         string `json:"title"`
	Host          string `json:"host"`
	Color         string `json:"color"`
	ArtworkURL    string `json:"artworkUrl"`
	LatestVideoID string `json:"latestVideoId"`
	LatestEpisode string `json:"latestEpisode"`
	Published     string `json:"published"`
}

// ITunesResult iTunes 搜索的第一条结果
type ITunesResult struct {
	CollectionName string `json:"collectionName"`
	ArtworkURL600  string `json:"artworkUrl600"`
	ArtworkURL100  string `json:"artworkUrl100"`
}

// ParseITunes 没有结果时返回 false
func ParseITunes(body []byte) (ITunesResult, bool, error) {
	var resp struct {
		Results []ITunesResult `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ITunesResult{}, false, fmt.Errorf("itunes: unmarshal: %w", err)
	}
	if len(resp.Results) == 0 {
		return ITunesResult{}, false, nil
	}
	return resp.Results[0], true, nil
}

// BuildPodcastCard iTunes 没有名字时用搜索词的第一个词
func BuildPodcastCard(p sources.Podcast, it ITunesResult, ep Episode) PodcastCard {
	title := it.CollectionName
	if title == "" {
		if words := strings.Fields(p.Term); len(words) > 0 {
			title = words[0]
		}
	}
	return PodcastCard{
		Title:         title,
		Host:          p.Host,
		Color:         p.Color,
		ArtworkURL:    firstNonEmpty(it.ArtworkURL600, it.ArtworkURL100),
		LatestVideoID: ep.VideoID,
		LatestEpisode: ep.Title,
		Published:     ep.Published,
	}
}

func searchITunes(ctx context.Context, g Getter, term string) (ITunesResult, error) {
	body, err := g.Text(ctx, fmt.Sprintf(itunesSearchURL, url.QueryEscape(term)), fetch.Options{Timeout: itunesTimeout})
	if err != nil {
		return ITunesResult{}, fmt.Errorf("itunes: search %q: %w", term, err)
	}
	it, _, err := ParseITunes([]byte(body))
	return it, err
}

// FetchPodcast 并行请求 iTunes 与频道 RSS；任一失败只留空对应字段
func FetchPodcast(ctx context.Context, g Getter, p sources.Podcast) PodcastCard {
	var (
		wg sync.WaitGroup
		it ITunesResult
		ep Episode
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := searchITunes(ctx, g, p.Term)
		if err != nil {
			log.Debug().Err(err).Str(logging.FieldSource, p.Term).Msg("itunes lookup failed")
			return
		}
		it = res
	}()
	go func() {
		defer wg.Done()
		res, err := FetchLatestEpisode(ctx, g, p.ChannelID, p.TitleFilter)
		if err != nil {
			log.Debug().Err(err).Str(logging.FieldSource, p.Term).Msg("latest episode lookup failed")
			return
		}
		ep = res
	}()
	wg.Wait()
	return BuildPodcastCard(p, it, ep)
}
