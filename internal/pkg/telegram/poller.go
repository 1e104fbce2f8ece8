package telegram

import (
	"context"
	"time"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/ds124wfegd/fractal-bot/internal/logger"
)

type UpdateHandler func(ctx context.Context, update entity.Update)

// Poll long-polls getUpdates and hands every update to handle, one at a time,
// until ctx is cancelled.
func (b *Bot) Poll(ctx context.Context, timeout int, handle UpdateHandler) error {
	var offset int64

	logger.WithField("timeout", timeout).Info("Telegram long polling started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pollCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second+10*time.Second)
		updates, err := b.GetUpdates(pollCtx, offset, timeout)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.WithError(err).Warn("getUpdates failed, polling paused")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.pollPause):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			handle(ctx, update)
		}
	}
}
