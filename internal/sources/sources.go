package sources

import "regexp"

// Kind 决定用哪个解析器处理上游内容
type Kind string

const (
	KindRSS    Kind = "rss"
	KindReddit Kind = "reddit"
	KindChan   Kind = "chan"
)

// Source 描述一个新闻/社区数据源，启动时静态配置
type Source struct {
	Key    string
	Name   string
	Color  string
	Domain string
	URL    string
	Kind   Kind
}

func reddit(key, name, color, sub string) Source {
	return Source{
		Key:    key,
		Name:   name,
		Color:  color,
		Domain: "reddit.com",
		URL:    "https://www.reddit.com/r/" + sub + "/top.json?t=day&limit=8",
		Kind:   KindReddit,
	}
}

var News = []Source{
	{Key: "coindesk", Name: "COINDESK", Color: "#0052FF", Domain: "coindesk.com", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/", Kind: KindRSS},
	{Key: "theblock", Name: "THE BLOCK", Color: "#A8B3CF", Domain: "theblock.co", URL: "https://www.theblock.co/rss.xml", Kind: KindRSS},
	{Key: "decrypt", Name: "DECRYPT", Color: "#00D4AA", Domain: "decrypt.co", URL: "https://decrypt.co/feed", Kind: KindRSS},
	{Key: "cointelegraph", Name: "COINTELEGRAPH", Color: "#FFC107", Domain: "cointelegraph.com", URL: "https://cointelegraph.com/rss", Kind: KindRSS},
	{Key: "cryptoslate", Name: "CRYPTOSLATE", Color: "#8B5CF6", Domain: "cryptoslate.com", URL: "https://cryptoslate.com/feed/", Kind: KindRSS},
	{Key: "messari", Name: "MESSARI", Color: "#4DA6FF", Domain: "messari.io", URL: "https://messari.io/rss", Kind: KindRSS},
	{Key: "blockworks", Name: "BLOCKWORKS", Color: "#E8453C", Domain: "blockworks.co", URL: "https://blockworks.co/feed", Kind: KindRSS},
	{Key: "dlnews", Name: "DL NEWS", Color: "#FF4081", Domain: "dlnews.com", URL: "https://www.dlnews.com/arc/outboundfeeds/rss/", Kind: KindRSS},
	{Key: "bitcoinmag", Name: "BITCOIN MAGAZINE", Color: "#FF6B35", Domain: "bitcoinmagazine.com", URL: "https://bitcoinmagazine.com/feed", Kind: KindRSS},
	{Key: "bankless", Name: "BANKLESS", Color: "#E84142", Domain: "bankless.com", URL: "https://www.bankless.com/feed", Kind: KindRSS},
	{Key: "thedefiant", Name: "THE DEFIANT", Color: "#A855F7", Domain: "thedefiant.io", URL: "https://thedefiant.io/feed", Kind: KindRSS},
	{Key: "unchained", Name: "UNCHAINED", Color: "#1DB954", Domain: "unchainedcrypto.com", URL: "https://unchainedcrypto.com/feed/", Kind: KindRSS},
	{Key: "rektnews", Name: "REKT NEWS", Color: "#FF0420", Domain: "rekt.news", URL: "https://rekt.news/rss/feed.xml", Kind: KindRSS},
}

var Community = []Source{
	reddit("rcrypto", "R/CRYPTOCURRENCY", "#FF4500", "CryptoCurrency"),
	reddit("rbitcoin", "R/BITCOIN", "#F7931A", "Bitcoin"),
	reddit("rmoonshots", "R/CRYPTOMOONSHOTS", "#9B59B6", "CryptoMoonShots"),
	reddit("rethfinance", "R/ETHFINANCE", "#627EEA", "ethfinance"),
	reddit("rsolana", "R/SOLANA", "#14F195", "solana"),
	{Key: "biz", Name: "/BIZ/", Color: "#789922", Domain: "4chan.org/biz/catalog", URL: "https://a.4cdn.org/biz/catalog.json", Kind: KindChan},
}

// All 新闻源在前，社区源在后
func All() []Source {
	out := make([]Source, 0, len(News)+len(Community))
	out = append(out, News...)
	return append(out, Community...)
}

const DefaultArticleLimit = 7

// overfetch 需要后置过滤的源多取一些，过滤后再截断到 DefaultArticleLimit
var overfetch = map[string]int{
	"decrypt": 15,
}

// FetchLimit 返回解析阶段该源最多保留的条数
func FetchLimit(key string) int {
	if n, ok := overfetch[key]; ok {
		return n
	}
	return DefaultArticleLimit
}

// Coin 价格栏展示的币种
type Coin struct {
	ID  string
	Sym string
}

var PriceCoins = []Coin{
	{ID: "bitcoin", Sym: "BTC"},
	{ID: "ethereum", Sym: "ETH"},
	{ID: "solana", Sym: "SOL"},
	{ID: "binancecoin", Sym: "BNB"},
	{ID: "ripple", Sym: "XRP"},
	{ID: "cardano", Sym: "ADA"},
	{ID: "avalanche-2", Sym: "AVAX"},
	{ID: "dogecoin", Sym: "DOGE"},
	{ID: "polkadot", Sym: "DOT"},
	{ID: "chainlink", Sym: "LINK"},
	{ID: "uniswap", Sym: "UNI"},
	{ID: "polygon-ecosystem-token", Sym: "POL"},
}

// Channel 一个 YouTube 频道。ChannelID 已知时走 RSS，否则抓取 /videos 页面。
type Channel struct {
	Handle      string
	ChannelID   string
	Name        string
	Color       string
	CryptoOnly  bool
	TitleFilter *regexp.Regexp
}

// ranOnly 共享频道里只保留 Ran 主持的节目
var ranOnly = regexp.MustCompile(`(?i)\bran\b`)

var Channels = []Channel{
	{Handle: "@CoinBureau", ChannelID: "UCqK_GSMbpiV8spgD3ZGloSw", Name: "Coin Bureau", Color: "#E74C3C"},
	{Handle: "@Bankless", ChannelID: "UCAl9Ld79qaZxp9JzEOwd3aA", Name: "Bankless", Color: "#9B59B6"},
	{Handle: "@AltcoinDaily", Name: "Altcoin Daily", Color: "#3498DB"},
	{Handle: "@intothecryptoverse", ChannelID: "UCRvqjQPSeaWn-uEx-w0XOIg", Name: "Benjamin Cowen", Color: "#F39C12"},
	{Handle: "@AnthonyPompliano", ChannelID: "UCevXpeL8cNyAnww-NqJ4m2w", Name: "Anthony Pompliano", Color: "#E67E22"},
	{Handle: "@PaulBarronNetwork", Name: "Paul Barron Network", Color: "#16A085"},
	{Handle: "@VirtualBacon", Name: "Virtual Bacon", Color: "#FF6B35"},
	{Handle: "channel/UC7B3Y1yrg4S7mmgoR-NsfxA", ChannelID: "UC7B3Y1yrg4S7mmgoR-NsfxA", Name: "Taiki Maeda", Color: "#AB47BC"},
	{Handle: "@RealVisionFinance", ChannelID: "UCBH5VZE_Y4F3CMcPIzPEB5A", Name: "Real Vision", Color: "#1E88E5"},
	{Handle: "@CryptoBanterGroup", ChannelID: "UCN9Nj4tjXbVTLYWN0EKly_Q", Name: "Crypto Banter", Color: "#8E44AD", TitleFilter: ranOnly},
	{Handle: "@Finematics", Name: "Finematics", Color: "#2ECC71"},
	{Handle: "@CryptosRUs", Name: "CryptosRUs", Color: "#FF7043"},
	{Handle: "@InvestAnswers", Name: "InvestAnswers", Color: "#00BCD4", CryptoOnly: true},
	{Handle: "channel/UC0zGwzu0zzCImC1BwPuWyXQ", ChannelID: "UC0zGwzu0zzCImC1BwPuWyXQ", Name: "Bob Loukas", Color: "#2196F3"},
	{Handle: "@scottmelker", Name: "Wolf Of All Streets", Color: "#FF5252"},
	{Handle: "@WhiteboardCrypto", Name: "Whiteboard Crypto", Color: "#4CAF50"},
}

// Podcast 精选播客：iTunes 搜索词 + 对应 YouTube 频道
type Podcast struct {
	Term        string
	Host        string
	Color       string
	ChannelID   string
	TitleFilter *regexp.Regexp
}

var Podcasts = []Podcast{
	{Term: "Bankless podcast", Host: "Ryan & David", Color: "#9B59B6", ChannelID: "UCAl9Ld79qaZxp9JzEOwd3aA"},
	{Term: "Unchained Laura Shin", Host: "Laura Shin", Color: "#00BCD4", ChannelID: "UCWiiMnsnw5Isc2PP1to9nNw"},
	{Term: "The Breakdown NLW crypto", Host: "NLW", Color: "#E74C3C", ChannelID: "UCMKxYhVC2lJat7iB9Gec5kw"},
	{Term: "Empire Blockworks podcast", Host: "Blockworks", Color: "#E8453C", ChannelID: "UCgK_jxvgUZ7iJKlZUS3YvuA"},
	{Term: "Bell Curve crypto podcast", Host: "Jason & Mike", Color: "#3498DB", ChannelID: "UC9aOLLMQht_1FKRxbQe60NA"},
	{Term: "The Bitcoin Standard podcast", Host: "Saifedean", Color: "#F7931A", ChannelID: "UCPsCJ1j0G45FnRGqJhCHLiA"},
	{Term: "Into The Cryptoverse", Host: "Benjamin Cowen", Color: "#F39C12", ChannelID: "UCRvqjQPSeaWn-uEx-w0XOIg"},
	{Term: "The Pomp Podcast crypto", Host: "Anthony Pompliano", Color: "#E67E22", ChannelID: "UCevXpeL8cNyAnww-NqJ4m2w"},
	{Term: "Real Vision Crypto", Host: "Real Vision", Color: "#1E88E5", ChannelID: "UCBH5VZE_Y4F3CMcPIzPEB5A"},
	{Term: "Crypto Banter podcast", Host: "Ran Neuner", Color: "#8E44AD", ChannelID: "UCN9Nj4tjXbVTLYWN0EKly_Q", TitleFilter: ranOnly},
	{Term: "Coin Bureau podcast", Host: "Guy Turner", Color: "#FF9800", ChannelID: "UCqK_GSMbpiV8spgD3ZGloSw"},
	{Term: "Uncommon Core crypto podcast", Host: "Hasu & Jon Charbonneau", Color: "#26A69A", ChannelID: "UC89nA9flQdXLzQSL49lPGNw"},
	{Term: "threadguy NotThreadGuy", Host: "threadguy", Color: "#00D4FF", ChannelID: "UCyLaBb4OibRL7KMdd4wZ0OQ"},
	{Term: "The Daily Bone Podcast", Host: "Chris Maddern", Color: "#FF6B6B", ChannelID: "UCKZh-NaE79AbeBmZhOezRsQ"},
	{Term: "When Shift Happens", Host: "Kevin Follonier", Color: "#2ECC71", ChannelID: "UCKc3w9FKFGdBR9PIkfngzPg"},
	{Term: "The Block Runner", Host: "William & Iman", Color: "#F39C12", ChannelID: "UCwfsHLKyCp98lbZEHyrGA-g"},
	{Term: "SmolTalk crypto podcast", Host: "SmolTalk", Color: "#FF69B4", ChannelID: "UC7sx8xvqqNrmZQ5WPB6CmFQ"},
	{Term: "Bob Loukas market cycles", Host: "Bob Loukas", Color: "#607D8B", ChannelID: "UC0zGwzu0zzCImC1BwPuWyXQ"},
}

// TweetUsers 允许抓取图片的账号（小写）
var TweetUsers = map[string]bool{
	"inversebrah":  true,
	"boldleonidas": true,
}

// DigestChannel Telegram 频道预览页
const DigestChannel = "c4dotgg"
