package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/aggregator"
	"github.com/LJTian/crypturls/internal/collector"
	"github.com/LJTian/crypturls/internal/logging"
)

// HeaderDataMode 标记数据来源：live / api / fallback / default
const HeaderDataMode = "X-Data-Mode"

// Datasets 路由依赖的数据集，由 *aggregator.Aggregator 实现
type Datasets interface {
	Feeds(ctx context.Context) (aggregator.Result[aggregator.Feeds], error)
	Prices(ctx context.Context) (aggregator.Result[[]collector.Price], error)
	Trending(ctx context.Context) (aggregator.Result[[]collector.TrendingCoin], error)
	FearGreed(ctx context.Context) (aggregator.Result[collector.FearGreed], error)
	Predictions(ctx context.Context) (aggregator.Result[aggregator.Predictions], error)
	Momentum(ctx context.Context) (aggregator.Result[[]collector.Project], error)
	Digest(ctx context.Context) (aggregator.Result[collector.Digest], error)
	Podcasts(ctx context.Context) (aggregator.Result[[]collector.PodcastCard], error)
	Videos(ctx context.Context) (aggregator.Result[[]collector.Video], error)
	Shorts(ctx context.Context) (aggregator.Result[[]collector.Video], error)
	Tweets(ctx context.Context, user string) (aggregator.Result[[]collector.TweetMedia], error)
	Questions(ctx context.Context) (aggregator.Result[aggregator.Questions], error)
}

type Server struct {
	data Datasets
}

func NewServer(data Datasets) *Server {
	return &Server{data: data}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/feeds", serve(s.data.Feeds))
		v1.GET("/prices", serve(s.data.Prices))
		v1.GET("/trending", serve(s.data.Trending))
		v1.GET("/fng", serve(s.data.FearGreed))
		v1.GET("/predictions", serve(s.data.Predictions))
		v1.GET("/aixbt", serve(s.data.Momentum))
		v1.GET("/c4dotgg", serve(s.data.Digest))
		v1.GET("/podcasts", serve(s.data.Podcasts))
		v1.GET("/youtube", serve(s.data.Videos))
		v1.GET("/youtube-shorts", serve(s.data.Shorts))
		v1.GET("/tweets", s.tweets)
		v1.GET("/questions", serve(s.data.Questions))
	}
}

// NewRouter release 模式的 gin 引擎，带 recovery 与请求日志
func NewRouter(data Datasets) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())
	NewServer(data).RegisterRoutes(r)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// serve 数据集出错时 Result 仍是可返回的默认值，读路径不返回 5xx
func serve[T any](load func(ctx context.Context) (aggregator.Result[T], error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := load(c.Request.Context())
		if err != nil {
			log.Debug().Err(err).Str(logging.FieldPath, c.FullPath()).Msg("serving default after load error")
		}
		writeResult(c, res)
	}
}

func writeResult[T any](c *gin.Context, res aggregator.Result[T]) {
	mode := res.Mode
	if mode == "" {
		mode = aggregator.ModeDefault
	}
	c.Header(HeaderDataMode, string(mode))
	c.JSON(http.StatusOK, res.Data)
}

func (s *Server) tweets(c *gin.Context) {
	user, err := aggregator.ValidateTweetUser(c.Query("user"))
	switch {
	case errors.Is(err, aggregator.ErrInvalidUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user param"})
		return
	case errors.Is(err, aggregator.ErrUnsupportedUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported user"})
		return
	}

	res, err := s.data.Tweets(c.Request.Context(), user)
	if err != nil {
		log.Debug().Err(err).Str(logging.FieldUser, user).Msg("serving default tweets after load error")
	}
	writeResult(c, res)
}
