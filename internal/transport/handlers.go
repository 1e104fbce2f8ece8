package transport

import (
	"github.com/ds124wfegd/fractal-bot/internal/service"
	"golang.org/x/sync/semaphore"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type UpdateHandler struct {
	service service.RenderService
	secret  string
	workers *semaphore.Weighted
}

// NewUpdateHandler allows at most workers renders to run at the same time.
func NewUpdateHandler(service service.RenderService, secret string, workers int) *UpdateHandler {
	if workers < 1 {
		workers = 1
	}
	return &UpdateHandler{
		service: service,
		secret:  secret,
		workers: semaphore.NewWeighted(int64(workers)),
	}
}
