package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/sources"
)

const (
	catalogPages          = 2
	catalogThreadsPerPage = 5
	catalogTitleRunes     = 120
	catalogThreadURL      = "https://boards.4chan.org/biz/thread/%d"
	catalogTimeout        = 10 * time.Second
)

type catalogPage struct {
	Threads []json.RawMessage `json:"threads"`
}

type catalogThread struct {
	No   int64  `json:"no"`
	Sub  string `json:"sub"`
	Com  string `json:"com"`
	Time int64  `json:"time"`
}

// ParseCatalog 取前几页、每页前几个帖子；标题优先 sub，其次 com
func ParseCatalog(body []byte, sourceKey string) ([]Article, error) {
	var pages []catalogPage
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal: %w", err)
	}
	if len(pages) > catalogPages {
		pages = pages[:catalogPages]
	}

	var out []Article
	for _, page := range pages {
		threads := page.Threads
		if len(threads) > catalogThreadsPerPage {
			threads = threads[:catalogThreadsPerPage]
		}
		for _, raw := range threads {
			a, err := catalogArticle(raw, sourceKey)
			if err != nil {
				continue
			}
			out = append(out, a)
		}
	}
	if len(out) > sources.DefaultArticleLimit {
		out = out[:sources.DefaultArticleLimit]
	}
	return out, nil
}

func catalogArticle(raw json.RawMessage, sourceKey string) (Article, error) {
	var th catalogThread
	if err := json.Unmarshal(raw, &th); err != nil || th.No <= 0 {
		return Article{}, ErrParseSkip
	}
	text := th.Sub
	if CleanText(text) == "" {
		text = th.Com
	}
	title := TruncateRunes(CleanText(text), catalogTitleRunes)
	if title == "" {
		return Article{}, ErrParseSkip
	}
	pub := time.Now()
	if th.Time > 0 {
		pub = time.Unix(th.Time, 0)
	}
	return Article{
		Title:   title,
		Link:    SanitizeURL(fmt.Sprintf(catalogThreadURL, th.No)),
		PubDate: ISO(pub),
		Source:  sourceKey,
	}, nil
}

// CatalogFetcher 抓取 /biz/ 版块目录
type CatalogFetcher struct {
	getter Getter
	src    sources.Source
}

func (c *CatalogFetcher) Name() string {
	return c.src.Key
}

func (c *CatalogFetcher) Fetch(ctx context.Context) ([]Article, error) {
	body, err := c.getter.Text(ctx, c.src.URL, fetch.Options{Timeout: catalogTimeout})
	if err != nil {
		return nil, fmt.Errorf("%s: fetch catalog: %w", c.src.Key, err)
	}
	return ParseCatalog([]byte(body), c.src.Key)
}
