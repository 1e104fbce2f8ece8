package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/ds124wfegd/fractal-bot/internal/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	photoFilename = "image.png"
	startCommand  = "/start"
)

func (s *renderService) HandleUpdate(ctx context.Context, update entity.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if msg.Text == "" {
		// фото, стикер и т.д.
		return s.notify(ctx, chatID, s.opts.Messages.TextRequired)
	}

	// /start anywhere in the text greets; only a leading /start skips rendering
	if strings.Contains(msg.Text, startCommand) {
		if err := s.notify(ctx, chatID, s.opts.Messages.Greeting); err != nil || strings.HasPrefix(msg.Text, startCommand) {
			return err
		}
	}
	return s.Render(ctx, chatID, msg.Text)
}

// Render composes text over a random background and sends it to chatID.
// Every failure is reported to the user once and returned; nothing is retried.
func (s *renderService) Render(ctx context.Context, chatID int64, text string) error {
	started := time.Now()
	event := entity.RenderEvent{RequestID: uuid.NewString(), ChatID: chatID}
	log := logger.WithFields(logrus.Fields{"request_id": event.RequestID, "chat_id": chatID})

	defer func() {
		event.DurationMs = time.Since(started).Milliseconds()
		event.CreatedAt = started
		if err := s.producer.SendMessage(s.opts.EventsTopic, event); err != nil {
			log.WithError(err).Warn("render event not published")
		}
	}()

	if length := utf8.RuneCountInString(text); length > s.opts.MaxTextLength {
		event.Status = entity.RenderStatusRejected
		err := entity.NewValidationError(
			fmt.Sprintf("text has %d characters, limit is %d", length, s.opts.MaxTextLength), entity.ErrTextTooLong)
		event.Error = err.Error()
		log.WithField("length", length).Info("text rejected")
		s.notifyLogged(ctx, log, chatID, s.opts.Messages.TooLong)
		return err
	}

	err := s.renderAndDeliver(ctx, chatID, text, &event)
	if err != nil {
		event.Status = entity.RenderStatusFailed
		if entity.IsType(err, entity.ErrorTypeTimeout) {
			event.Status = entity.RenderStatusTimeout
		}
		event.Error = err.Error()
		log.WithError(err).WithField("background", event.Background).Error("image was not delivered")
		s.notifyLogged(ctx, log, chatID, s.opts.Messages.Failure)
		return err
	}

	event.Status = entity.RenderStatusDelivered
	log.WithFields(logrus.Fields{
		"background": event.Background,
		"lines":      event.Lines,
		"duration":   time.Since(started).String(),
	}).Info("image delivered")
	return nil
}

func (s *renderService) renderAndDeliver(ctx context.Context, chatID int64, text string, event *entity.RenderEvent) error {
	bg, err := s.backgrounds.Random(ctx)
	if err != nil {
		return err
	}
	event.Background = bg.Index

	img, err := s.compositor.Compose(bg.Data, text)
	if err != nil {
		return err
	}
	event.Lines = len(img.Lines)

	deliverCtx, cancel := context.WithTimeout(ctx, s.opts.DeliveryTimeout)
	defer cancel()

	if err := s.messenger.SendPhoto(deliverCtx, chatID, photoFilename, img.Data); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(deliverCtx.Err(), context.DeadlineExceeded) {
			return entity.NewTimeoutError(fmt.Sprintf("delivery exceeded %s", s.opts.DeliveryTimeout), err)
		}
		return entity.NewDeliveryError("sendPhoto failed", err)
	}
	return nil
}

// notify sends a text reply bounded by the delivery timeout.
func (s *renderService) notify(ctx context.Context, chatID int64, text string) error {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.DeliveryTimeout)
	defer cancel()

	if err := s.messenger.SendMessage(notifyCtx, chatID, text); err != nil {
		return entity.NewDeliveryError("sendMessage failed", err)
	}
	return nil
}

func (s *renderService) notifyLogged(ctx context.Context, log *logrus.Entry, chatID int64, text string) {
	if err := s.notify(ctx, chatID, text); err != nil {
		log.WithError(err).Error("user was not notified")
	}
}
