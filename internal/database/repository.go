package database

import (
	"context"
	"math/rand/v2"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/storage"
)

// BackgroundRepository resolves background numbers to pictures in the store.
type BackgroundRepository interface {
	Random(ctx context.Context) (*entity.Background, error)
	Load(ctx context.Context, index int) (*entity.Background, error)
	Missing(ctx context.Context) []string
}

// RandomSource returns a uniform int in [0,n).
type RandomSource interface {
	Intn(n int) int
}

type globalSource struct{}

func (globalSource) Intn(n int) int { return rand.IntN(n) }

// PoolConfig describes where the numbered backgrounds live.
type PoolConfig struct {
	Prefix string
	Ext    string
	Count  int
}

type backgroundRepository struct {
	storage storage.FileStorage
	pool    PoolConfig
	rnd     RandomSource
}
