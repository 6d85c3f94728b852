package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/crypturls/internal/aggregator"
	"github.com/LJTian/crypturls/internal/collector"
)

type fakeDatasets struct {
	tweetCalls int
	pricesErr  error
}

func (f *fakeDatasets) Feeds(ctx context.Context) (aggregator.Result[aggregator.Feeds], error) {
	return aggregator.Result[aggregator.Feeds]{
		Data: aggregator.Feeds{"coindesk": {Name: "CoinDesk", Articles: []collector.Article{}}},
		Mode: aggregator.ModeLive,
	}, nil
}

func (f *fakeDatasets) Prices(ctx context.Context) (aggregator.Result[[]collector.Price], error) {
	if f.pricesErr != nil {
		return aggregator.Result[[]collector.Price]{Data: []collector.Price{}, Mode: aggregator.ModeDefault}, f.pricesErr
	}
	return aggregator.Result[[]collector.Price]{Data: []collector.Price{}, Mode: aggregator.ModeLive}, nil
}

func (f *fakeDatasets) Trending(ctx context.Context) (aggregator.Result[[]collector.TrendingCoin], error) {
	return aggregator.Result[[]collector.TrendingCoin]{Data: []collector.TrendingCoin{}, Mode: aggregator.ModeLive}, nil
}

func (f *fakeDatasets) FearGreed(ctx context.Context) (aggregator.Result[collector.FearGreed], error) {
	return aggregator.Result[collector.FearGreed]{Mode: aggregator.ModeDefault}, nil
}

func (f *fakeDatasets) Predictions(ctx context.Context) (aggregator.Result[aggregator.Predictions], error) {
	return aggregator.Result[aggregator.Predictions]{Mode: aggregator.ModeLive}, nil
}

func (f *fakeDatasets) Momentum(ctx context.Context) (aggregator.Result[[]collector.Project], error) {
	return aggregator.Result[[]collector.Project]{Data: []collector.Project{}, Mode: aggregator.ModeFallback}, nil
}

func (f *fakeDatasets) Digest(ctx context.Context) (aggregator.Result[collector.Digest], error) {
	return aggregator.Result[collector.Digest]{Data: collector.EmptyDigest(), Mode: aggregator.ModeDefault}, nil
}

func (f *fakeDatasets) Podcasts(ctx context.Context) (aggregator.Result[[]collector.PodcastCard], error) {
	return aggregator.Result[[]collector.PodcastCard]{Data: []collector.PodcastCard{}, Mode: aggregator.ModeLive}, nil
}

func (f *fakeDatasets) Videos(ctx context.Context) (aggregator.Result[[]collector.Video], error) {
	return aggregator.Result[[]collector.Video]{Data: []collector.Video{}, Mode: aggregator.ModeLive}, nil
}

func (f *fakeDatasets) Shorts(ctx context.Context) (aggregator.Result[[]collector.Video], error) {
	return aggregator.Result[[]collector.Video]{Data: []collector.Video{}, Mode: aggregator.ModeLive}, nil
}

func (f *fakeDatasets) Tweets(ctx context.Context, user string) (aggregator.Result[[]collector.TweetMedia], error) {
	f.tweetCalls++
	return aggregator.Result[[]collector.TweetMedia]{
		Data: []collector.TweetMedia{{ImageURL: "https://pbs.twimg.com/media/a.jpg", TweetURL: "https://x.com/" + user + "/status/1"}},
		Mode: aggregator.ModeLive,
	}, nil
}

func (f *fakeDatasets) Questions(ctx context.Context) (aggregator.Result[aggregator.Questions], error) {
	return aggregator.Result[aggregator.Questions]{Data: aggregator.Questions{Questions: []string{"q"}}, Mode: aggregator.ModeLive}, nil
}

func setupRouter(data Datasets) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewServer(data).RegisterRoutes(r)
	return r
}

func doGet(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doGet(setupRouter(&fakeDatasets{}), "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != `{"status":"ok"}` {
		t.Fatalf("body = %q", got)
	}
}

func TestDatasetRoutesSetMode(t *testing.T) {
	r := setupRouter(&fakeDatasets{})
	cases := []struct {
		path string
		mode aggregator.Mode
	}{
		{"/api/v1/feeds", aggregator.ModeLive},
		{"/api/v1/prices", aggregator.ModeLive},
		{"/api/v1/trending", aggregator.ModeLive},
		{"/api/v1/fng", aggregator.ModeDefault},
		{"/api/v1/predictions", aggregator.ModeLive},
		{"/api/v1/aixbt", aggregator.ModeFallback},
		{"/api/v1/c4dotgg", aggregator.ModeDefault},
		{"/api/v1/podcasts", aggregator.ModeLive},
		{"/api/v1/youtube", aggregator.ModeLive},
		{"/api/v1/youtube-shorts", aggregator.ModeLive},
		{"/api/v1/questions", aggregator.ModeLive},
	}
	for _, tc := range cases {
		w := doGet(r, tc.path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", tc.path, w.Code)
		}
		if got := w.Header().Get(HeaderDataMode); got != string(tc.mode) {
			t.Fatalf("%s mode = %q, want %q", tc.path, got, tc.mode)
		}
		if !json.Valid(w.Body.Bytes()) {
			t.Fatalf("%s body is not json: %q", tc.path, w.Body.String())
		}
	}
}

func TestLoadErrorStillServesDefault(t *testing.T) {
	r := setupRouter(&fakeDatasets{pricesErr: errors.New("boom")})
	w := doGet(r, "/api/v1/prices")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
	if got := w.Header().Get(HeaderDataMode); got != string(aggregator.ModeDefault) {
		t.Fatalf("mode = %q, want default", got)
	}
}

func TestTweetsValidation(t *testing.T) {
	data := &fakeDatasets{}
	r := setupRouter(data)

	cases := []struct {
		query  string
		status int
		errMsg string
	}{
		{"/api/v1/tweets", http.StatusBadRequest, "Invalid user param"},
		{"/api/v1/tweets?user=bad-name!", http.StatusBadRequest, "Invalid user param"},
		{"/api/v1/tweets?user=%20inversebrah%20", http.StatusBadRequest, "Invalid user param"},
		{"/api/v1/tweets?user=someone_else", http.StatusBadRequest, "Unsupported user"},
	}
	for _, tc := range cases {
		w := doGet(r, tc.query)
		if w.Code != tc.status {
			t.Fatalf("%s status = %d, want %d", tc.query, w.Code, tc.status)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s body decode: %v", tc.query, err)
		}
		if body["error"] != tc.errMsg {
			t.Fatalf("%s error = %q, want %q", tc.query, body["error"], tc.errMsg)
		}
	}
	if data.tweetCalls != 0 {
		t.Fatalf("tweet loads = %d, want 0 for rejected users", data.tweetCalls)
	}
}

func TestTweetsSupportedUser(t *testing.T) {
	data := &fakeDatasets{}
	r := setupRouter(data)

	w := doGet(r, "/api/v1/tweets?user=inversebrah")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got []collector.TweetMedia
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].TweetURL != "https://x.com/inversebrah/status/1" {
		t.Fatalf("tweets = %+v", got)
	}
	if data.tweetCalls != 1 {
		t.Fatalf("tweet loads = %d, want 1", data.tweetCalls)
	}
}

func TestNewRouterLogsAndRecovers(t *testing.T) {
	r := NewRouter(&fakeDatasets{})
	w := doGet(r, "/api/v1/feeds")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := doGet(r, "/api/v1/unknown").Code; got != http.StatusNotFound {
		t.Fatalf("unknown route status = %d, want 404", got)
	}
}
