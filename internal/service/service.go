package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/fractal-bot/internal/database"
	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/compositor"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/kafka"
)

// Messenger delivers replies to a chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, filename string, photo []byte) error
}

type RenderService interface {
	HandleUpdate(ctx context.Context, update entity.Update) error
	Render(ctx context.Context, chatID int64, text string) error
}

type Messages struct {
	Greeting     string
	TextRequired string
	TooLong      string
	Failure      string
}

type Options struct {
	MaxTextLength   int
	DeliveryTimeout time.Duration
	EventsTopic     string
	Messages        Messages
}

type renderService struct {
	backgrounds database.BackgroundRepository
	compositor  compositor.Compositor
	messenger   Messenger
	producer    kafka.Producer
	opts        Options
}

func NewRenderService(backgrounds database.BackgroundRepository, compositor compositor.Compositor,
	messenger Messenger, producer kafka.Producer, opts Options) RenderService {
	return &renderService{
		backgrounds: backgrounds,
		compositor:  compositor,
		messenger:   messenger,
		producer:    producer,
		opts:        opts,
	}
}
