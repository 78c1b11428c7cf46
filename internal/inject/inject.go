// Package inject wires the components of both binaries.
package inject

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/samber/do"

	"pajangan-promoshot/internal/batch"
	"pajangan-promoshot/internal/config"
	"pajangan-promoshot/internal/gemini"
	"pajangan-promoshot/internal/handlers"
	"pajangan-promoshot/internal/httpclient"
	"pajangan-promoshot/internal/preview"
	"pajangan-promoshot/internal/telegram"
	"pajangan-promoshot/internal/web"
)

// StaticFS names the embedded web page in the injector.
const StaticFS = "static"

// Setup registers every provider. Nothing is built until it is invoked, so the
// web binary never touches the Telegram providers.
func Setup(ctx context.Context, cfg config.Config, logger *slog.Logger) *do.Injector {
	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		},
	})

	do.ProvideValue[config.Config](injector, cfg)
	do.ProvideValue[*slog.Logger](injector, logger)

	do.Provide[*http.Client](injector, func(i *do.Injector) (*http.Client, error) {
		return httpclient.New(httpclient.Options{
			PreferIPv4: cfg.PreferIPv4,
			Timeout:    cfg.HTTPTimeout,
			Logger:     debugLogger(cfg, logger),
		}), nil
	})

	do.Provide[*gemini.Client](injector, func(i *do.Injector) (*gemini.Client, error) {
		return gemini.New(ctx, gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			HTTPClient: do.MustInvoke[*http.Client](i),
			Logger:     logger,
		})
	})

	do.Provide[*batch.Orchestrator](injector, func(i *do.Injector) (*batch.Orchestrator, error) {
		return batch.New(batch.Options{
			Generator: do.MustInvoke[*gemini.Client](i),
			Logger:    logger,
		})
	})

	do.Provide[*web.Server](injector, func(i *do.Injector) (*web.Server, error) {
		// optional: the static page is registered by cmd/web only
		static, _ := do.InvokeNamed[fs.FS](i, StaticFS)
		return web.New(web.Options{
			Generator:      do.MustInvoke[*batch.Orchestrator](i),
			Logger:         logger,
			Static:         static,
			MaxUploadBytes: cfg.MaxUploadBytes,
		})
	})

	do.Provide[*preview.Store](injector, func(i *do.Injector) (*preview.Store, error) {
		return preview.NewStore(), nil
	})

	do.Provide[*telegram.Client](injector, func(i *do.Injector) (*telegram.Client, error) {
		return telegram.New(telegram.Options{
			Token:      cfg.TelegramToken,
			HTTPClient: do.MustInvoke[*http.Client](i),
			Logger:     logger,
			Debug:      cfg.Debug,
		})
	})

	do.Provide[*handlers.Handler](injector, func(i *do.Injector) (*handlers.Handler, error) {
		return handlers.New(handlers.Options{
			Telegram:  do.MustInvoke[*telegram.Client](i),
			Generator: do.MustInvoke[*batch.Orchestrator](i),
			States:    do.MustInvoke[*preview.Store](i),
			Logger:    logger,
		}), nil
	})

	return injector
}

// NewLogger builds the JSON logger both binaries write to stdout.
func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func debugLogger(cfg config.Config, logger *slog.Logger) *slog.Logger {
	if !cfg.Debug {
		return nil
	}
	return logger
}
