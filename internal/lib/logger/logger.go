package logger

import (
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/linemk/clothing-shop/internal/lib/logger/handlers/slogpretty"
)

// switching logger
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// SetupLogger инициализирует логгер в зависимости от переданного окружения
// для локальной разработки используется цветной вывод (pretty), а для dev/prod – JSON
func SetupLogger(env string, out io.Writer) *slog.Logger {
	switch env {
	case EnvLocal:
		return setupPrettySlog(out)
	case EnvDev:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

func setupPrettySlog(out io.Writer) *slog.Logger {
	color.NoColor = false

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	return slog.New(opts.NewPrettyHandler(out))
}

// NewDiscard — логгер, который ничего не пишет (для тестов)
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
