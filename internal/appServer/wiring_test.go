package appServer

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ds124wfegd/fractal-bot/config"
	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/compositor"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutFromConfig(t *testing.T) {
	t.Setenv("TOKEN", "t")
	v, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg, err := config.ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, compositor.DefaultLayout(), LayoutFromConfig(cfg))
}

func TestNewStorage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "png"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "png", "01.png"), []byte("x"), 0o644))

	store, err := NewStorage(context.Background(), config.StorageConfig{Driver: config.StorageFile, Path: dir})
	require.NoError(t, err)
	assert.True(t, store.Exists(context.Background(), "png/01.png"))

	_, err = NewStorage(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}

func TestLoadFont(t *testing.T) {
	data, err := LoadFont("")
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = LoadFont(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)
}

type onePoller struct{}

// Poll hands over a single update and then waits for cancellation.
func (onePoller) Poll(ctx context.Context, timeout int, handle telegram.UpdateHandler) error {
	handle(ctx, entity.Update{UpdateID: 1, Message: &entity.Message{Text: "text"}})
	<-ctx.Done()
	return ctx.Err()
}

// slowService finishes its reply only after the polling context is cancelled.
type slowService struct {
	started chan struct{}
	replied atomic.Bool
}

func (s *slowService) HandleUpdate(ctx context.Context, update entity.Update) error {
	close(s.started)
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	s.replied.Store(true)
	return nil
}

func (s *slowService) Render(ctx context.Context, chatID int64, text string) error {
	return nil
}

// TestStartPollingWaitsForUpdateInFlight проверяет, что остановка дожидается ответа на текущее сообщение
func TestStartPollingWaitsForUpdateInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &slowService{started: make(chan struct{})}

	done := StartPolling(ctx, onePoller{}, 0, svc)
	<-svc.started
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	assert.True(t, svc.replied.Load())
}
