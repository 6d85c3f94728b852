package config

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	ConfigFileName = ".env"

	// 指定其它配置文件路径
	ConfigFile = "CONFIG_FILE"

	AppPort = "APP_PORT"

	// Zerolog values from [trace, debug, info, warn, error, fatal, panic].
	LogLevel = "LOG_LEVEL"

	// 为空时只输出到 stderr
	LogFile = "LOG_FILE"

	// 单次上游请求的默认超时，Duration 类型
	HTTPTimeout = "HTTP_TIMEOUT"

	// 缓存预热的 cron 表达式
	WarmCronSpec     = "WARM_CRON_SPEC"
	WarmStartupDelay = "WARM_STARTUP_DELAY"
	WarmEnabled      = "WARM_ENABLED"

	// 可选；配置后 momentum 数据在抓取失败时改用官方 API
	AIXBTAPIKey = "AIXBT_API_KEY"

	ShutdownTimeout = "SHUTDOWN_TIMEOUT"

	// CoinGecko 免费接口的最小请求间隔，0 表示不限速
	CoinGeckoInterval = "COINGECKO_INTERVAL"

	defaultAppPort           = "9000"
	defaultLogLevel          = "info"
	defaultHTTPTimeout       = 8 * time.Second
	defaultWarmCronSpec      = "*/5 * * * *"
	defaultWarmStartupDelay  = 15 * time.Second
	defaultWarmEnabled       = true
	defaultShutdownTimeout   = 10 * time.Second
	defaultCoinGeckoInterval = 2 * time.Second
)

type Config struct {
	AppPort string

	LogLevel string
	LogFile  string

	HTTPTimeout time.Duration

	WarmCronSpec     string
	WarmStartupDelay time.Duration
	WarmEnabled      bool

	AIXBTAPIKey string

	ShutdownTimeout time.Duration

	CoinGeckoInterval time.Duration
}

func Defaults() map[string]any {
	return map[string]any{
		AppPort:           defaultAppPort,
		LogLevel:          defaultLogLevel,
		LogFile:           "",
		HTTPTimeout:       defaultHTTPTimeout,
		WarmCronSpec:      defaultWarmCronSpec,
		WarmStartupDelay:  defaultWarmStartupDelay,
		WarmEnabled:       defaultWarmEnabled,
		AIXBTAPIKey:       "",
		ShutdownTimeout:   defaultShutdownTimeout,
		CoinGeckoInterval: defaultCoinGeckoInterval,
	}
}

// Load 读取默认值、可选的 .env 文件与环境变量，环境变量优先
func Load() *Config {
	v := viper.New()
	for key, def := range Defaults() {
		v.SetDefault(key, def)
	}

	file := ConfigFileName
	if f := os.Getenv(ConfigFile); f != "" {
		file = f
	}
	v.SetConfigFile(file)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("fileName", file).Msg("Failed to read config file, continue...")
	}
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:           v.GetString(AppPort),
		LogLevel:          v.GetString(LogLevel),
		LogFile:           v.GetString(LogFile),
		HTTPTimeout:       v.GetDuration(HTTPTimeout),
		WarmCronSpec:      v.GetString(WarmCronSpec),
		WarmStartupDelay:  v.GetDuration(WarmStartupDelay),
		WarmEnabled:       v.GetBool(WarmEnabled),
		AIXBTAPIKey:       v.GetString(AIXBTAPIKey),
		ShutdownTimeout:   v.GetDuration(ShutdownTimeout),
		CoinGeckoInterval: v.GetDuration(CoinGeckoInterval),
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	log.Debug().
		Str("port", cfg.AppPort).
		Str("warmCron", cfg.WarmCronSpec).
		Bool("aixbtKey", cfg.AIXBTAPIKey != "").
		Msg("config loaded")
	return cfg
}
