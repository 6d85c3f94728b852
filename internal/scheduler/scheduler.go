package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/logging"
)

// Warmer 刷新一个数据集的缓存
type Warmer interface {
	Name() string
	Warm(ctx context.Context) error
}

// Job 一组按同一个 cron 表达式执行的 warmer
type Job struct {
	Warmers  []Warmer
	CronSpec string
}

type Scheduler struct {
	cron         *cron.Cron
	warmers      []Warmer
	startupDelay time.Duration
	jobTimeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Scheduler)

// WithStartupDelay 首轮预热的延迟
func WithStartupDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.startupDelay = d }
}

// WithJobTimeout 单个 warmer 的最长执行时间
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.jobTimeout = d }
}

const (
	defaultStartupDelay = 15 * time.Second
	defaultJobTimeout   = 2 * time.Minute
)

func New(jobs []Job, opts ...Option) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:         cron.New(),
		startupDelay: defaultStartupDelay,
		jobTimeout:   defaultJobTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, j := range jobs {
		warmers := j.Warmers
		if _, err := s.cron.AddFunc(j.CronSpec, func() { s.run(s.ctx, warmers) }); err != nil {
			cancel()
			return nil, err
		}
		s.warmers = append(s.warmers, warmers...)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮预热，避免与用户首次打开页面的请求争抢资源，首屏加载更快
	time.AfterFunc(s.startupDelay, func() {
		go s.run(s.ctx, s.warmers)
	})
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发预热
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.run(ctx, s.warmers)
}

// Cron 暴露底层 cron，便于查看下次执行时间
func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}

func (s *Scheduler) run(ctx context.Context, warmers []Warmer) {
	if ctx.Err() != nil {
		return
	}
	log.Info().Int(logging.FieldCount, len(warmers)).Msg("start warm job")
	start := time.Now()

	var wg sync.WaitGroup
	for _, w := range warmers {
		warmer := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := warmer.Name()
			jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
			defer cancel()

			begin := time.Now()
			if err := warmer.Warm(jobCtx); err != nil {
				log.Warn().Err(err).Str(logging.FieldJob, name).Msg("warm failed")
				return
			}
			log.Debug().Str(logging.FieldJob, name).Dur(logging.FieldLatency, time.Since(begin)).Msg("warm done")
		}()
	}

	wg.Wait()
	log.Info().Dur(logging.FieldLatency, time.Since(start)).Msg("warm job done (all datasets)")
}
