package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jhoicas/fulfillment-engine/internal/application/ports"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
	"github.com/jhoicas/fulfillment-engine/internal/domain/repository"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/resilience"
)

var _ ports.TxRunner = (*Store)(nil)

// state tablas del store. Las filas se guardan por valor: lo que sale hacia los use cases
// siempre es una copia.
type state struct {
	products         map[string]entity.Product
	customers        map[string]entity.Customer
	orders           map[string]entity.Order
	orderItems       map[string]entity.OrderItem
	orderItemSeq     []string
	unshipped        map[string]entity.UnshippedItem
	unshippedSeq     []string
	inventoryChanges []entity.InventoryChange
	changelogs       []entity.OrderChangelog
}

func newState() *state {
	return &state{
		products:   make(map[string]entity.Product),
		customers:  make(map[string]entity.Customer),
		orders:     make(map[string]entity.Order),
		orderItems: make(map[string]entity.OrderItem),
		unshipped:  make(map[string]entity.UnshippedItem),
	}
}

func (s *state) clone() *state {
	return &state{
		products:         maps.Clone(s.products),
		customers:        maps.Clone(s.customers),
		orders:           maps.Clone(s.orders),
		orderItems:       maps.Clone(s.orderItems),
		orderItemSeq:     slices.Clone(s.orderItemSeq),
		unshipped:        maps.Clone(s.unshipped),
		unshippedSeq:     slices.Clone(s.unshippedSeq),
		inventoryChanges: slices.Clone(s.inventoryChanges),
		changelogs:       slices.Clone(s.changelogs),
	}
}

// Store almacén transaccional en proceso. Las transacciones se serializan con un mutex
// global y trabajan sobre una copia del estado que solo se publica en el commit, así que
// un error en cualquier punto de fn descarta todos sus efectos.
type Store struct {
	mu      sync.Mutex
	data    *state
	retrier *resilience.Retrier
}

// NewStore construye un store vacío. retrier nil usa resilience.DefaultPolicy sin logs.
func NewStore(retrier *resilience.Retrier) *Store {
	if retrier == nil {
		retrier = resilience.NewRetrier(resilience.DefaultPolicy(), zerolog.Nop())
	}
	return &Store{data: newState(), retrier: retrier}
}

// Run ejecuta fn en una transacción y la reintenta completa ante errores transitorios.
func (s *Store) Run(ctx context.Context, label string, fn func(ctx context.Context, repos repository.Repos) error) error {
	return s.retrier.Do(ctx, label, func(ctx context.Context) error {
		return s.runOnce(ctx, fn)
	})
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, reposFor(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func reposFor(st *state) repository.Repos {
	return repository.Repos{
		Products:         &productRepo{st: st},
		Customers:        &customerRepo{st: st},
		Orders:           &orderRepo{st: st},
		OrderItems:       &orderItemRepo{st: st},
		UnshippedItems:   &unshippedRepo{st: st},
		InventoryChanges: &inventoryChangeRepo{st: st},
		OrderChangelogs:  &changelogRepo{st: st},
	}
}
