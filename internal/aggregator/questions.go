package aggregator

import (
	"context"
	"time"

	"github.com/LJTian/crypturls/internal/collector"
	"github.com/LJTian/crypturls/internal/processor"
)

const (
	keyQuestions = "questions"
	ttlQuestions = 15 * time.Minute
)

type Questions struct {
	Questions []string `json:"questions"`
}

func fallbackQuestions() Questions {
	return Questions{Questions: append([]string(nil), processor.FallbackQuestions...)}
}

func (a *Aggregator) questionsDataset() dataset[Questions] {
	return dataset[Questions]{
		key:     keyQuestions,
		ttl:     ttlQuestions,
		failTTL: failTTL,
		empty:   fallbackQuestions,
		load:    a.loadQuestions,
	}
}

// Questions 根据情绪指数、热门币和头条生成提问建议
func (a *Aggregator) Questions(ctx context.Context) (Result[Questions], error) {
	return get(ctx, a.cache, a.questionsDataset())
}

// loadQuestions 三个输入都只有默认值时视为没有数据
func (a *Aggregator) loadQuestions(ctx context.Context) (Questions, Mode, error) {
	var (
		fng      Result[collector.FearGreed]
		trending Result[[]collector.TrendingCoin]
		feeds    Result[Feeds]
	)
	tasks := []func(){
		func() { fng, _ = a.FearGreed(ctx) },
		func() { trending, _ = a.Trending(ctx) },
		func() { feeds, _ = a.Feeds(ctx) },
	}
	fanOut(len(tasks), func(i int) { tasks[i]() })

	in := processor.QuestionInputs{}
	live := false
	if fng.Mode != ModeDefault && fng.Mode != "" {
		fg := fng.Data
		in.FearGreed = &fg
		live = true
	}
	if trending.Mode != ModeDefault && trending.Mode != "" {
		in.Trending = trending.Data
		live = true
	}
	if feeds.Mode != ModeDefault && feeds.Mode != "" {
		in.Headlines = feeds.Data.headlines()
		live = true
	}
	if !live {
		return Questions{}, "", ErrNoData
	}
	return Questions{Questions: processor.BuildQuestions(in)}, ModeLive, nil
}
