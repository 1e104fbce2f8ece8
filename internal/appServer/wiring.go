package appServer

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"

	"github.com/ds124wfegd/fractal-bot/config"
	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/ds124wfegd/fractal-bot/internal/logger"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/compositor"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/storage"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/telegram"
	"github.com/ds124wfegd/fractal-bot/internal/service"
)

// NewStorage opens the background store selected by cfg.Driver.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (storage.FileStorage, error) {
	switch cfg.Driver {
	case config.StorageFile, "":
		return storage.NewFileStorage(cfg.Path), nil
	case config.StorageS3:
		return storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
	case config.StorageAzure:
		return storage.NewAzureStorage(storage.AzureOptions{
			AccountName: cfg.Azure.AccountName,
			AccountKey:  cfg.Azure.AccountKey,
			Container:   cfg.Azure.Container,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// LoadFont reads a TTF/OTF file; an empty path means the embedded default.
func LoadFont(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func LayoutFromConfig(cfg *config.Config) compositor.Layout {
	l := cfg.Layout
	return compositor.Layout{
		FontSize:   l.FontSize,
		LineHeight: l.LineHeight,
		WidthRatio: l.WidthRatio,
		PaddingX:   l.PaddingX,
		PaddingY:   l.PaddingY,
		Radius:     l.Radius,
		BoxColor:   compositor.Black(l.BoxOpacity),
		TextColor:  color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		Shadow: compositor.Shadow{
			Color:   compositor.Black(l.ShadowOpacity),
			Blur:    l.ShadowBlur,
			OffsetX: l.ShadowOffsetX,
			OffsetY: l.ShadowOffsetY,
		},
		Placeholder: cfg.Bot.Messages.Placeholder,
	}
}

type updatePoller interface {
	Poll(ctx context.Context, timeout int, handle telegram.UpdateHandler) error
}

// StartPolling feeds updates from poller into svc in the background. The
// returned channel is closed once polling has stopped and the last update
// has been handled.
func StartPolling(ctx context.Context, poller updatePoller, timeout int, svc service.RenderService) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := poller.Poll(ctx, timeout, func(ctx context.Context, update entity.Update) {
			if err := svc.HandleUpdate(ctx, update); err != nil {
				logger.WithField("update_id", update.UpdateID).WithError(err).Debug("update handled with error")
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("polling stopped")
		}
	}()
	return done
}
