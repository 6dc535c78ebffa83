package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// memoryStockRepository is an in-memory IngredientStockRepository with
// version checks and injectable failures
type memoryStockRepository struct {
	mu        sync.Mutex
	stocks    map[uuid.UUID]inventory.IngredientStock
	updateErr map[uuid.UUID]error
	locked    []uuid.UUID
}

func newMemoryStockRepository(stocks ...*inventory.IngredientStock) *memoryStockRepository {
	r := &memoryStockRepository{
		stocks:    make(map[uuid.UUID]inventory.IngredientStock),
		updateErr: make(map[uuid.UUID]error),
	}
	for _, s := range stocks {
		r.stocks[s.IngredientID] = *s
	}
	return r
}

func (r *memoryStockRepository) FindByIngredient(_ context.Context, id uuid.UUID) (*inventory.IngredientStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stocks[id]
	if !ok {
		return nil, inventory.ErrIngredientNotFound
	}
	return &s, nil
}

func (r *memoryStockRepository) FindByIngredientForUpdate(ctx context.Context, id uuid.UUID) (*inventory.IngredientStock, error) {
	r.mu.Lock()
	r.locked = append(r.locked, id)
	r.mu.Unlock()
	return r.FindByIngredient(ctx, id)
}

func (r *memoryStockRepository) FindAll(_ context.Context) ([]inventory.IngredientStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]inventory.IngredientStock, 0, len(r.stocks))
	for _, s := range r.stocks {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (r *memoryStockRepository) Save(_ context.Context, s *inventory.IngredientStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stocks[s.IngredientID] = *s
	return nil
}

func (r *memoryStockRepository) UpdateQuantity(_ context.Context, s *inventory.IngredientStock, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[s.IngredientID]; err != nil {
		return err
	}
	current, ok := r.stocks[s.IngredientID]
	if !ok || current.Version != expectedVersion {
		return inventory.ErrConflict
	}
	r.stocks[s.IngredientID] = *s
	return nil
}

func (r *memoryStockRepository) quantity(id uuid.UUID) inventory.IngredientStock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stocks[id]
}

// memoryTransactionRepository is an in-memory ledger enforcing the
// (order, ingredient) uniqueness
type memoryTransactionRepository struct {
	mu        sync.Mutex
	rows      []inventory.InventoryTransaction
	createErr error
}

func (r *memoryTransactionRepository) Create(_ context.Context, txs ...*inventory.InventoryTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, tx := range txs {
		for _, row := range r.rows {
			if row.OrderID == tx.OrderID && row.IngredientID == tx.IngredientID {
				return inventory.ErrAlreadyApplied
			}
		}
	}
	for _, tx := range txs {
		r.rows = append(r.rows, *tx)
	}
	return nil
}

func (r *memoryTransactionRepository) ExistsForOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryTransactionRepository) FindByOrder(_ context.Context, orderID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryTransaction
	for _, row := range r.rows {
		if row.OrderID == orderID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memoryTransactionRepository) FindByIngredient(_ context.Context, ingredientID uuid.UUID, limit int) ([]inventory.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryTransaction
	for i := len(r.rows) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.rows[i].IngredientID == ingredientID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

// memoryAlertRepository stores alerts in insertion order
type memoryAlertRepository struct {
	mu        sync.Mutex
	alerts    []inventory.LowStockAlert
	createErr error
}

func (r *memoryAlertRepository) Create(_ context.Context, a *inventory.LowStockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.alerts = append(r.alerts, *a)
	return nil
}

func (r *memoryAlertRepository) FindRecent(_ context.Context, limit int) ([]inventory.LowStockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.LowStockAlert, 0, len(r.alerts))
	for i := len(r.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.alerts[i])
	}
	return out, nil
}

func (r *memoryAlertRepository) FindByIngredient(_ context.Context, id uuid.UUID) ([]inventory.LowStockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.LowStockAlert
	for _, a := range r.alerts {
		if a.IngredientID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

// recordingNotifier captures sent alerts
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*inventory.LowStockAlert
	err    error
}

func (n *recordingNotifier) SendAlert(_ context.Context, a *inventory.LowStockAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.err
}

func (n *recordingNotifier) sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

var errDriver = errors.New("driver: bad connection")

func fixedTime() time.Time {
	return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
}
