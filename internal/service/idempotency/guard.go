package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultTTL задаёт время жизни ключа, если не задано иное.
const DefaultTTL = 24 * time.Hour

var (
	// ErrRequestInProgress: запрос с тем же ключом ещё обрабатывается.
	ErrRequestInProgress = errors.New("request with the same idempotency key is already processing")
	// ErrEmptyReplay: запись завершена, но сохранённого ответа нет.
	ErrEmptyReplay = errors.New("idempotency record has no stored response")
)

// Replay содержит сохранённый ответ на повтор запроса.
type Replay struct {
	HTTPStatus int
	Body       []byte
}

// Guard оборачивает выполнение запроса записью в IdempotencyRepository.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	logger *log.Entry
	now    func() time.Time
}

// NewGuard создаёт Guard; ttl <= 0 заменяется на DefaultTTL.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.WithField("component", "idempotency-guard")
	}
	return &Guard{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RequestHash строит отпечаток запроса: метод, путь и тело.
func RequestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(strings.ToUpper(method)))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Begin резервирует ключ. Если ключ уже завершён тем же запросом, возвращает
// сохранённый ответ. Ошибки: domain.ErrIdempotencyHashMismatch, ErrRequestInProgress.
func (g *Guard) Begin(ctx context.Context, key, requestHash string) (*Replay, error) {
	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().Add(g.ttl))
	if err == nil {
		return nil, nil
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return nil, err
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusProcessing:
			return nil, ErrRequestInProgress
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			if record.HTTPStatus == 0 {
				return nil, ErrEmptyReplay
			}
			return &Replay{HTTPStatus: record.HTTPStatus, Body: record.ResponseBody}, nil
		default:
			return nil, fmt.Errorf("unknown idempotency record status %q", record.Status)
		}
	default:
		return nil, fmt.Errorf("create idempotency record: %w", err)
	}
}

// Finish сохраняет ответ: 2xx как done, остальные как failed.
// Ошибка сохранения только логируется, ответ клиенту уже сформирован.
func (g *Guard) Finish(ctx context.Context, key string, httpStatus int, body []byte) {
	var err error
	if httpStatus >= http.StatusOK && httpStatus < http.StatusMultipleChoices {
		err = g.repo.MarkDone(ctx, key, body, httpStatus)
	} else {
		err = g.repo.MarkFailed(ctx, key, body, httpStatus)
	}
	if err != nil {
		g.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
	}
}
