package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/LJTian/crypturls/internal/collector"
	"github.com/LJTian/crypturls/internal/sources"
)

// 纯 AI 新闻；同时命中加密关键词的保留
var (
	aiNoiseRe      = regexp.MustCompile(`(?i)\b(openai|anthropic|deepmind|chatgpt|gpt-[0-9]|midjourney|stable.?diffusion|samsung.*\bai\b|nvidia.*(?:earnings|ai\b)|xai\b.*(?:lawsuit|trade.?secret)|ai\s+(?:race|phone|coding|models?|spending|war|safety|benchmark))\b`)
	cryptoSignalRe = regexp.MustCompile(`(?i)\b(bitcoin|btc|ethereum|eth|solana|sol|crypto|blockchain|defi|nft|tokens?|coins?|stablecoin|binance|coinbase|uniswap|dex|dao|web3|memecoin|altcoin|mining|wallet|airdrop|stak(?:ing|ed)|polkadot|cardano|xrp|ripple|tether|usdc|usdt|circle|exchange|ledger|metamask|l[12]|layer.?[12]|rollup|bridge|swap|yield|liquidity|on.?chain)\b`)
)

// aiFilteredSources 需要过滤纯 AI 新闻的数据源
var aiFilteredSources = map[string]bool{"decrypt": true}

// IsNonCryptoAI 命中 AI 噪声且不含任何加密关键词
func IsNonCryptoAI(title string) bool {
	return aiNoiseRe.MatchString(title) && !cryptoSignalRe.MatchString(title)
}

// SimpleProcessor 做最基础的数据清洗与去重
type SimpleProcessor struct{}

func NewSimpleProcessor() *SimpleProcessor {
	return &SimpleProcessor{}
}

// Process 去掉空标题、按链接去重，再做数据源相关的过滤与截断
func (p *SimpleProcessor) Process(sourceKey string, items []collector.Article) []collector.Article {
	out := make([]collector.Article, 0, len(items))
	seen := make(map[string]struct{})

	for _, it := range items {
		it.Title = strings.TrimSpace(it.Title)
		if it.Title == "" {
			continue
		}
		id := dedupeKey(it)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if aiFilteredSources[sourceKey] && IsNonCryptoAI(it.Title) {
			continue
		}
		out = append(out, it)
	}

	if aiFilteredSources[sourceKey] && len(out) > sources.DefaultArticleLimit {
		out = out[:sources.DefaultArticleLimit]
	}
	return out
}

// dedupeKey 无效链接都被替换成 "#"，这时退回用标题区分
func dedupeKey(a collector.Article) string {
	if a.Link == "" || a.Link == "#" {
		return hashURL("title:" + a.Title)
	}
	return hashURL(a.Link)
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
