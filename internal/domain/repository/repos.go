package repository

// Repos agrupa los repositorios atados a una misma transacción.
type Repos struct {
	Products         ProductRepository
	Customers        CustomerRepository
	Orders           OrderRepository
	OrderItems       OrderItemRepository
	UnshippedItems   UnshippedItemRepository
	InventoryChanges InventoryChangeRepository
	OrderChangelogs  OrderChangelogRepository
}
