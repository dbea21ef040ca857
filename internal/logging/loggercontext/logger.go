package loggercontext

import (
	"context"

	"go.uber.org/zap"

	"github.com/arashthr/shelfmark/internal/logging"
)

type key string

const loggerKey key = "loggerKey"

func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request logger, or the process logger outside of a request.
func Logger(ctx context.Context) *zap.SugaredLogger {
	value := ctx.Value(loggerKey)
	logger, ok := value.(*zap.SugaredLogger)
	if !ok {
		return logging.DefaultLogger
	}
	return logger
}
