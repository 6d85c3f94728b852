package processor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/LJTian/crypturls/internal/collector"
)

const (
	questionsMin = 8
	questionsMax = 10
	moverPct     = 5.0
)

// FallbackQuestions 行情数据全部不可用时使用
var FallbackQuestions = []string{
	"Where is the market headed next?",
	"What should I be watching right now?",
	"Which coins have the best fundamentals?",
	"What's the safest way to store crypto?",
	"What are the biggest risks right now?",
	"Is DCA still the best strategy?",
}

var evergreenQuestions = []string{
	"What should beginners know about crypto?",
	"Which coins have the best fundamentals?",
	"What's the safest way to store crypto?",
	"How do I evaluate a new token?",
	"What are the biggest risks right now?",
	"Is DCA still the best strategy?",
}

// 按顺序匹配标题关键词（小写子串）
var topicQuestions = []struct {
	keyword  string
	question string
}{
	{"hack", "Are my funds safe on exchanges?"},
	{"etf", "What's happening with crypto ETFs?"},
	{"sec", "How will SEC decisions affect crypto?"},
	{"regulation", "What new crypto regulations are coming?"},
	{"stablecoin", "Why do stablecoins matter right now?"},
	{"tariff", "How do tariffs impact crypto markets?"},
	{"bitcoin", "Where is Bitcoin headed this week?"},
	{"ethereum", "What's next for Ethereum?"},
	{"solana", "Is Solana still a good bet?"},
	{"ai ", "How is AI changing crypto?"},
	{"defi", "What's happening in DeFi right now?"},
	{"memecoin", "Are memecoins dead?"},
	{"nft", "Is the NFT market recovering?"},
	{"layer 2", "Which Layer 2 is winning?"},
	{"airdrop", "What airdrops should I be farming?"},
}

// QuestionInputs 生成问题用到的数据；FearGreed 为 nil 表示没有拿到
type QuestionInputs struct {
	FearGreed *collector.FearGreed
	Trending  []collector.TrendingCoin
	Headlines []string
}

type questionList struct {
	items []string
	seen  map[string]bool
}

func (l *questionList) add(qs ...string) {
	for _, q := range qs {
		if l.seen[q] {
			continue
		}
		l.seen[q] = true
		l.items = append(l.items, q)
	}
}

// BuildQuestions 情绪、涨跌幅和头条关键词各出几条，不足 8 条用常青问题补齐，最多 10 条
func BuildQuestions(in QuestionInputs) []string {
	l := &questionList{seen: map[string]bool{}}

	if fg := in.FearGreed; fg != nil {
		l.add(sentimentQuestions(fg.Value)...)
	}
	l.add(moverQuestions(in.Trending)...)

	text := strings.ToLower(strings.Join(in.Headlines, " "))
	for _, tq := range topicQuestions {
		if strings.Contains(text, tq.keyword) {
			l.add(tq.question)
		}
	}

	for _, q := range evergreenQuestions {
		if len(l.items) >= questionsMin {
			break
		}
		if l.seen[q] {
			break
		}
		l.add(q)
	}

	if len(l.items) > questionsMax {
		return l.items[:questionsMax]
	}
	return l.items
}

func sentimentQuestions(v int) []string {
	switch {
	case v <= 20:
		return []string{
			fmt.Sprintf("Why is Fear & Greed at %d?", v),
			"Is now a good time to buy the dip?",
			"How bad can this crash get?",
		}
	case v <= 40:
		return []string{"Is the market about to recover?", "What's driving the current fear?"}
	case v >= 80:
		return []string{"Is the market overheated?", "Should I take profits now?", "Are we near a top?"}
	case v >= 60:
		return []string{"How long can this rally last?", "What's fueling the current optimism?"}
	default:
		return []string{"Where is the market headed next?", "What should I be watching right now?"}
	}
}

func moverQuestions(trending []collector.TrendingCoin) []string {
	if len(trending) == 0 {
		return nil
	}
	sorted := append([]collector.TrendingCoin(nil), trending...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return parsePct(sorted[i].Pct) > parsePct(sorted[j].Pct)
	})

	var out []string
	if top := sorted[0]; parsePct(top.Pct) > moverPct {
		out = append(out, fmt.Sprintf("Why is %s up %s?", top.Sym, top.Pct))
	}
	if bottom := sorted[len(sorted)-1]; parsePct(bottom.Pct) < -moverPct {
		out = append(out, fmt.Sprintf("What happened to %s (%s)?", bottom.Sym, bottom.Pct))
	}
	mid := trending[len(trending)/2]
	out = append(out, fmt.Sprintf("What is %s and should I buy it?", firstNonEmpty(mid.Tag, mid.Sym)))
	return out
}

// parsePct "+12.3%" -> 12.3，无法解析时为 0
func parsePct(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
