package idempotency

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestRequestHash(t *testing.T) {
	t.Parallel()

	base := RequestHash(http.MethodPost, "/orders", []byte(`{"a":1}`))
	require.Len(t, base, 64)
	require.Equal(t, base, RequestHash("post", "/orders", []byte(`{"a":1}`)))
	require.NotEqual(t, base, RequestHash(http.MethodPost, "/orders", []byte(`{"a":2}`)))
	require.NotEqual(t, base, RequestHash(http.MethodPost, "/customers", []byte(`{"a":1}`)))
}

func TestGuard_FirstRequestProceeds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	guard := NewGuard(repo, time.Hour, nil)

	replay, err := guard.Begin(ctx, "key-1", "hash-1")
	require.NoError(t, err)
	require.Nil(t, replay)

	record, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, record.Status)
}

func TestGuard_InProgress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), time.Hour, nil)

	_, err := guard.Begin(ctx, "key-1", "hash-1")
	require.NoError(t, err)

	_, err = guard.Begin(ctx, "key-1", "hash-1")
	require.ErrorIs(t, err, ErrRequestInProgress)
}

func TestGuard_ReplayStoredResponse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	guard := NewGuard(repo, time.Hour, nil)

	_, err := guard.Begin(ctx, "key-1", "hash-1")
	require.NoError(t, err)
	guard.Finish(ctx, "key-1", http.StatusCreated, []byte(`{"id":"order-1"}`))

	record, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, record.Status)

	replay, err := guard.Begin(ctx, "key-1", "hash-1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	require.Equal(t, http.StatusCreated, replay.HTTPStatus)
	require.JSONEq(t, `{"id":"order-1"}`, string(replay.Body))
}

func TestGuard_ReplayFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	guard := NewGuard(repo, time.Hour, nil)

	_, err := guard.Begin(ctx, "key-1", "hash-1")
	require.NoError(t, err)
	guard.Finish(ctx, "key-1", http.StatusBadRequest, []byte(`{"error":"insufficient_stock"}`))

	record, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusFailed, record.Status)

	replay, err := guard.Begin(ctx, "key-1", "hash-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, replay.HTTPStatus)
}

func TestGuard_HashMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), time.Hour, nil)

	_, err := guard.Begin(ctx, "key-1", "hash-1")
	require.NoError(t, err)

	_, err = guard.Begin(ctx, "key-1", "hash-2")
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
}

func TestGuard_RepositoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	guard := NewGuard(failingIdempotencyRepo{err: boom}, 0, nil)
	require.Equal(t, DefaultTTL, guard.ttl)

	_, err := guard.Begin(context.Background(), "key-1", "hash-1")
	require.ErrorIs(t, err, boom)
}

type failingIdempotencyRepo struct {
	domain.IdempotencyRepository
	err error
}

func (f failingIdempotencyRepo) CreateProcessing(context.Context, string, string, time.Time) (domain.IdempotencyRecord, error) {
	return domain.IdempotencyRecord{}, f.err
}
