package redis

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// scriptedHook отвечает на команды без сервера Redis.
type scriptedHook struct {
	setResults []bool
	getErr     error
	setCalls   int
	getCalls   int
}

func (h *scriptedHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial is not expected")
	}
}

func (h *scriptedHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		switch c := cmd.(type) {
		case *goredis.BoolCmd:
			result := false
			if h.setCalls < len(h.setResults) {
				result = h.setResults[h.setCalls]
			}
			h.setCalls++
			c.SetVal(result)
			return nil
		case *goredis.StringCmd:
			h.getCalls++
			c.SetErr(h.getErr)
			return h.getErr
		default:
			return errors.New("unexpected command " + cmd.Name())
		}
	}
}

func (h *scriptedHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func newScriptedRepository(t *testing.T, hook *scriptedHook) *IdempotencyRepository {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	client.AddHook(hook)
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyRepository(client, "storefront:unit:")
}

func TestCreateProcessing_RetriesWhenExistingKeyExpired(t *testing.T) {
	hook := &scriptedHook{setResults: []bool{false, true}, getErr: goredis.Nil}
	repo := newScriptedRepository(t, hook)

	record, err := repo.CreateProcessing(context.Background(), "key-1", "hash-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, record.Status)
	require.Equal(t, 2, hook.setCalls)
	require.Equal(t, 1, hook.getCalls)
}

func TestCreateProcessing_GetFailureIsNotReportedAsDuplicate(t *testing.T) {
	fault := errors.New("READONLY You can't write against a read only replica")
	hook := &scriptedHook{setResults: []bool{false}, getErr: fault}
	repo := newScriptedRepository(t, hook)

	_, err := repo.CreateProcessing(context.Background(), "key-1", "hash-1", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, fault)
	require.NotErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	require.Equal(t, 1, hook.setCalls)
}

func TestCreateProcessing_GivesUpWhenKeyKeepsExpiring(t *testing.T) {
	hook := &scriptedHook{getErr: goredis.Nil}
	repo := newScriptedRepository(t, hook)

	_, err := repo.CreateProcessing(context.Background(), "key-1", "hash-1", time.Now().Add(time.Hour))
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	require.Equal(t, createAttempts, hook.setCalls)
}
