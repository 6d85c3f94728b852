package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志字段名
const (
	FieldSource  = "source"
	FieldURL     = "url"
	FieldDataset = "dataset"
	FieldMode    = "mode"
	FieldCount   = "count"
	FieldUser    = "user"
	FieldJob     = "job"
	FieldPath    = "path"
	FieldStatus  = "status"
	FieldLatency = "latency"
)

const fallbackLevel = zerolog.InfoLevel

// Setup 初始化全局 logger。file 非空时额外写入滚动日志文件。
func Setup(level, file string) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	if file != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(fallbackLevel)
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Err(err).Msgf("Log level not set, continue with %s...", fallbackLevel)
		return
	}
	zerolog.SetGlobalLevel(lvl)
	log.Debug().Msgf("Logger level set to '%s'", lvl)
}
