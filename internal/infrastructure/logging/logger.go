package logging

import (
	"io"
	"os"
	"time"

	"guardianledger/internal/config"

	"github.com/charmbracelet/log"
)

// New 根据配置创建日志器，format 支持 text / json
func New(cfg *config.LogConfig) *log.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

func NewWithWriter(w io.Writer, cfg *config.LogConfig) *log.Logger {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}

	formatter := log.TextFormatter
	if cfg.Format == "json" {
		formatter = log.JSONFormatter
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
		Formatter:       formatter,
	})
}

// Discard 测试用，丢弃所有输出
func Discard() *log.Logger {
	return log.New(io.Discard)
}
