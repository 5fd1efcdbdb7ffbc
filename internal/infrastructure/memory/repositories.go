package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/fulfillment-engine/internal/domain"
	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
)

type productRepo struct{ st *state }

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	if _, ok := r.st.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.st.products {
		if other.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	if p.CurrentStock < 0 {
		return domain.ErrInvalidInput
	}
	r.st.products[p.ID] = *p
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	for _, p := range r.st.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, nil
}

// GetForUpdate equivale a GetByID: la transacción ya tiene el store en exclusiva.
func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) UpdateStock(_ context.Context, id string, newStock int, at time.Time) error {
	p, ok := r.st.products[id]
	if !ok {
		return domain.NotFound("producto", id)
	}
	if newStock < 0 {
		return domain.ErrInvalidInput
	}
	p.CurrentStock = newStock
	p.LastStockUpdate = &at
	p.UpdatedAt = at
	r.st.products[id] = p
	return nil
}

func (r *productRepo) ListBelowMinimum(_ context.Context) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range r.st.products {
		if p.BelowMinimum() {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

type customerRepo struct{ st *state }

func (r *customerRepo) Create(_ context.Context, c *entity.Customer) error {
	if _, ok := r.st.customers[c.ID]; ok {
		return domain.ErrDuplicate
	}
	r.st.customers[c.ID] = *c
	return nil
}

func (r *customerRepo) FindByName(_ context.Context, name string) (*entity.Customer, error) {
	want := entity.NormalizeCustomerName(name)
	if want == "" {
		return nil, nil
	}
	var match *entity.Customer
	for _, c := range r.st.customers {
		if entity.NormalizeCustomerName(c.Name) != want {
			continue
		}
		// Con homónimos gana el más antiguo.
		if match == nil || c.CreatedAt.Before(match.CreatedAt) {
			match = &c
		}
	}
	return match, nil
}

type orderRepo struct{ st *state }

func (r *orderRepo) Create(_ context.Context, o *entity.Order) error {
	if _, ok := r.st.orders[o.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.st.orders {
		if other.OrderNumber == o.OrderNumber {
			return domain.ErrDuplicate
		}
	}
	row := *o
	row.Items = nil
	r.st.orders[o.ID] = row
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, nil
	}
	if o.ShippingDocument != nil {
		doc := *o.ShippingDocument
		o.ShippingDocument = &doc
	}
	return &o, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepo) Update(_ context.Context, o *entity.Order) error {
	if _, ok := r.st.orders[o.ID]; !ok {
		return domain.NotFound("pedido", o.ID)
	}
	row := *o
	row.Items = nil
	if o.ShippingDocument != nil {
		doc := *o.ShippingDocument
		row.ShippingDocument = &doc
	}
	r.st.orders[o.ID] = row
	return nil
}

type orderItemRepo struct{ st *state }

func (r *orderItemRepo) Create(_ context.Context, it *entity.OrderItem) error {
	if _, ok := r.st.orderItems[it.ID]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := r.st.orders[it.OrderID]; !ok {
		return domain.NotFound("pedido", it.OrderID)
	}
	if _, ok := r.st.products[it.ProductID]; !ok {
		return domain.NotFound("producto", it.ProductID)
	}
	r.st.orderItems[it.ID] = *it
	r.st.orderItemSeq = append(r.st.orderItemSeq, it.ID)
	return nil
}

func (r *orderItemRepo) GetByID(_ context.Context, id string) (*entity.OrderItem, error) {
	it, ok := r.st.orderItems[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *orderItemRepo) UpdateShipment(_ context.Context, it *entity.OrderItem) error {
	row, ok := r.st.orderItems[it.ID]
	if !ok {
		return domain.NotFound("línea de pedido", it.ID)
	}
	if it.ShippedQuantity < 0 || it.ShippedQuantity > row.Quantity {
		return domain.ErrInvalidInput
	}
	row.ShippedQuantity = it.ShippedQuantity
	row.ShippingStatus = it.ShippingStatus
	row.UpdatedAt = it.UpdatedAt
	r.st.orderItems[it.ID] = row
	return nil
}

func (r *orderItemRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.OrderItem, error) {
	var out []*entity.OrderItem
	for _, id := range r.st.orderItemSeq {
		it := r.st.orderItems[id]
		if it.OrderID == orderID {
			out = append(out, &it)
		}
	}
	return out, nil
}

type unshippedRepo struct{ st *state }

func (r *unshippedRepo) Create(_ context.Context, bo *entity.UnshippedItem) error {
	if _, ok := r.st.unshipped[bo.ID]; ok {
		return domain.ErrDuplicate
	}
	if bo.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	r.st.unshipped[bo.ID] = *bo
	r.st.unshippedSeq = append(r.st.unshippedSeq, bo.ID)
	return nil
}

func (r *unshippedRepo) ListByIDs(_ context.Context, ids []string) ([]*entity.UnshippedItem, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.filter(func(bo entity.UnshippedItem) bool {
		_, ok := want[bo.ID]
		return ok
	}), nil
}

func (r *unshippedRepo) Authorize(_ context.Context, ids []string, userID string, at time.Time) (int, error) {
	n := 0
	for _, id := range ids {
		bo, ok := r.st.unshipped[id]
		if !ok {
			continue
		}
		user := userID
		stamp := at
		bo.Authorized = true
		bo.AuthorizedBy = &user
		bo.AuthorizedAt = &stamp
		r.st.unshipped[id] = bo
		n++
	}
	return n, nil
}

func (r *unshippedRepo) MarkShipped(_ context.Context, ids []string, shippedInOrderID string, at time.Time) (int, error) {
	n := 0
	for _, id := range ids {
		bo, ok := r.st.unshipped[id]
		if !ok || !bo.Authorized || bo.Shipped {
			continue
		}
		orderID := shippedInOrderID
		stamp := at
		bo.Shipped = true
		bo.ShippedInOrderID = &orderID
		bo.ShippedAt = &stamp
		r.st.unshipped[id] = bo
		n++
	}
	return n, nil
}

func (r *unshippedRepo) ListPendingAuthorization(_ context.Context) ([]*entity.UnshippedItem, error) {
	return r.filter(func(bo entity.UnshippedItem) bool {
		return !bo.Authorized && !bo.Shipped
	}), nil
}

func (r *unshippedRepo) ListOpenByOrder(_ context.Context, orderID string) ([]*entity.UnshippedItem, error) {
	return r.filter(func(bo entity.UnshippedItem) bool {
		return bo.OrderID == orderID && !bo.Shipped
	}), nil
}

func (r *unshippedRepo) ListShippedInOrder(_ context.Context, orderID string) ([]*entity.UnshippedItem, error) {
	return r.filter(func(bo entity.UnshippedItem) bool {
		return bo.Shipped && bo.ShippedInOrderID != nil && *bo.ShippedInOrderID == orderID
	}), nil
}

// filter recorre en orden de inserción (más antiguos primero).
func (r *unshippedRepo) filter(keep func(entity.UnshippedItem) bool) []*entity.UnshippedItem {
	var out []*entity.UnshippedItem
	for _, id := range r.st.unshippedSeq {
		bo := r.st.unshipped[id]
		if keep(bo) {
			out = append(out, &bo)
		}
	}
	return out
}

type inventoryChangeRepo struct{ st *state }

func (r *inventoryChangeRepo) Create(_ context.Context, c *entity.InventoryChange) error {
	r.st.inventoryChanges = append(r.st.inventoryChanges, *c)
	return nil
}

func (r *inventoryChangeRepo) List(_ context.Context, productID *string) ([]*entity.InventoryChange, error) {
	var out []*entity.InventoryChange
	for _, c := range r.st.inventoryChanges {
		if productID != nil && c.ProductID != *productID {
			continue
		}
		out = append(out, &c)
	}
	return out, nil
}

type changelogRepo struct{ st *state }

func (r *changelogRepo) Create(_ context.Context, e *entity.OrderChangelog) error {
	r.st.changelogs = append(r.st.changelogs, *e)
	return nil
}

func (r *changelogRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.OrderChangelog, error) {
	var out []*entity.OrderChangelog
	for _, e := range r.st.changelogs {
		if e.OrderID == orderID {
			out = append(out, &e)
		}
	}
	return out, nil
}
