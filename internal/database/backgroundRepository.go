package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/storage"
)

// NewBackgroundRepository builds the selector. A nil rnd uses the process wide generator.
func NewBackgroundRepository(storage storage.FileStorage, pool PoolConfig, rnd RandomSource) BackgroundRepository {
	if rnd == nil {
		rnd = globalSource{}
	}
	return &backgroundRepository{storage: storage, pool: pool, rnd: rnd}
}

// BackgroundKey formats the store key of background index, e.g. png/07.png.
func BackgroundKey(prefix string, index int, ext string) string {
	return path.Join(prefix, fmt.Sprintf("%02d%s", index, ext))
}

func (r *backgroundRepository) Random(ctx context.Context) (*entity.Background, error) {
	index := r.rnd.Intn(r.pool.Count) + 1
	return r.Load(ctx, index)
}

func (r *backgroundRepository) Load(ctx context.Context, index int) (*entity.Background, error) {
	if index < 1 || index > r.pool.Count {
		return nil, entity.NewValidationError(
			fmt.Sprintf("background %d is outside [1,%d]", index, r.pool.Count), entity.ErrIndexOutOfRange)
	}

	key := BackgroundKey(r.pool.Prefix, index, r.pool.Ext)

	reader, err := r.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, entity.NewNotFoundError("background "+key+" not found", err)
		}
		return nil, entity.NewNotFoundError("background "+key+" is unavailable", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, entity.NewNotFoundError("background "+key+" could not be read", err)
	}

	return &entity.Background{Index: index, Key: key, Data: data}, nil
}

func (r *backgroundRepository) Missing(ctx context.Context) []string {
	var missing []string
	for i := 1; i <= r.pool.Count; i++ {
		key := BackgroundKey(r.pool.Prefix, i, r.pool.Ext)
		if !r.storage.Exists(ctx, key) {
			missing = append(missing, key)
		}
	}
	return missing
}
