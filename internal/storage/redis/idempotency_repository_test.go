package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultLocalRedisAddr = "localhost:6379"

type IdempotencyRepositoryTestSuite struct {
	suite.Suite
	client *goredis.Client
	repo   *IdempotencyRepository
	ctx    context.Context
}

func TestIdempotencyRepository(t *testing.T) {
	suite.Run(t, new(IdempotencyRepositoryTestSuite))
}

func (s *IdempotencyRepositoryTestSuite) SetupSuite() {
	addr := strings.TrimSpace(os.Getenv("STOREFRONT_REDIS_TEST_ADDR"))
	if addr == "" {
		addr = defaultLocalRedisAddr
	}

	client, err := NewClient(context.Background(), addr)
	if err != nil {
		s.T().Skipf("redis is not available for integration tests: %v", err)
	}
	s.client = client
	s.ctx = context.Background()
}

func (s *IdempotencyRepositoryTestSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

func (s *IdempotencyRepositoryTestSuite) SetupTest() {
	// Уникальный префикс изолирует тесты без FLUSHDB.
	s.repo = NewIdempotencyRepository(s.client, "storefront:test:"+uuid.NewString()+":")
}

func (s *IdempotencyRepositoryTestSuite) TestCreateGetAndMarkDone() {
	ttl := time.Now().UTC().Add(time.Hour).Round(time.Second)

	created, err := s.repo.CreateProcessing(s.ctx, "key-1", "hash-1", ttl)
	s.Require().NoError(err)
	s.Equal(domain.IdempotencyStatusProcessing, created.Status)

	s.Require().NoError(s.repo.MarkDone(s.ctx, "key-1", []byte(`{"id":"order-1"}`), 201))

	got, err := s.repo.Get(s.ctx, "key-1")
	s.Require().NoError(err)
	s.Equal(domain.IdempotencyStatusDone, got.Status)
	s.Equal(201, got.HTTPStatus)
	s.JSONEq(`{"id":"order-1"}`, string(got.ResponseBody))
	s.True(got.TTLAt.Equal(ttl))

	remaining, err := s.client.TTL(s.ctx, s.repo.prefix+"key-1").Result()
	s.Require().NoError(err)
	s.Greater(remaining, 50*time.Minute, "MarkDone must keep the original TTL")
}

func (s *IdempotencyRepositoryTestSuite) TestConflictAndHashMismatch() {
	ttl := time.Now().UTC().Add(time.Hour)

	_, err := s.repo.CreateProcessing(s.ctx, "key-2", "hash-a", ttl)
	s.Require().NoError(err)

	_, err = s.repo.CreateProcessing(s.ctx, "key-2", "hash-a", ttl)
	s.ErrorIs(err, domain.ErrIdempotencyKeyAlreadyExists)

	existing, err := s.repo.CreateProcessing(s.ctx, "key-2", "hash-b", ttl)
	s.ErrorIs(err, domain.ErrIdempotencyHashMismatch)
	s.Equal("hash-a", existing.RequestHash)
}

func (s *IdempotencyRepositoryTestSuite) TestMissingKeys() {
	_, err := s.repo.Get(s.ctx, "missing")
	s.ErrorIs(err, domain.ErrIdempotencyKeyNotFound)

	s.ErrorIs(s.repo.MarkFailed(s.ctx, "missing", nil, 500), domain.ErrIdempotencyKeyNotFound)

	_, err = s.repo.CreateProcessing(s.ctx, " ", "hash", time.Time{})
	s.ErrorIs(err, domain.ErrIdempotencyKeyRequired)

	removed, err := s.repo.DeleteExpired(s.ctx, time.Now(), 10)
	s.NoError(err)
	s.Zero(removed)
}
