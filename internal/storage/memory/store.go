package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type txKey struct{}

// Store: общее in-memory хранилище покупателей, товаров, заказов и outbox.
// Транзакции сериализуются: одновременно выполняется не более одной,
// при ошибке состояние откатывается к снимку, снятому на входе.
type Store struct {
	// txMu сериализует транзакции и одиночные записи вне транзакций.
	// Чтения вне транзакции берут его на чтение и видят только зафиксированное состояние.
	txMu sync.RWMutex
	// mu защищает данные от гонок между читателями и писателями.
	mu sync.RWMutex

	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    map[string]domain.Order
	outbox    map[string]*outboxRecord
}

// NewStore создаёт пустое хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		orders:    make(map[string]domain.Order),
		outbox:    make(map[string]*outboxRecord),
	}
}

type snapshot struct {
	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    map[string]domain.Order
	outbox    map[string]outboxRecord
}

// RunInTransaction выполняет fn эксклюзивно и откатывает изменения, если fn вернула ошибку.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.takeSnapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lockWrite берёт txMu для записи вне транзакции; внутри транзакции он уже захвачен.
func (s *Store) lockWrite(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

// lockRead ждёт завершения текущей транзакции; внутри транзакции ничего не делает.
func (s *Store) lockRead(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.txMu.RLock()
	return s.txMu.RUnlock
}

func (s *Store) takeSnapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outbox := make(map[string]outboxRecord, len(s.outbox))
	for id, rec := range s.outbox {
		outbox[id] = *rec
	}

	return snapshot{
		customers: maps.Clone(s.customers),
		products:  maps.Clone(s.products),
		orders:    maps.Clone(s.orders),
		outbox:    outbox,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers = snap.customers
	s.products = snap.products
	s.orders = snap.orders
	s.outbox = make(map[string]*outboxRecord, len(snap.outbox))
	for id, rec := range snap.outbox {
		rec := rec
		s.outbox[id] = &rec
	}
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

var _ domain.Transactor = (*Store)(nil)
