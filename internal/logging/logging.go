package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arashthr/shelfmark/internal/config"
)

// Logger is the process-wide logger. It is usable before Init is called.
var Logger = zap.NewNop().Sugar()

// DefaultLogger is returned when no request logger is found in a context.
var DefaultLogger = Logger

func Init(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Logging.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	if cfg.Logging.LogFile != "" {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.Logging.LogFile)
	}

	initTelegram(cfg)
	logger, err := zapConfig.Build(zap.Hooks(Telegram.hook))
	if err != nil {
		panic(err)
	}
	Logger = logger.Sugar()
	DefaultLogger = Logger
}

func Sync() {
	_ = Logger.Sync()
}
