package model

// EntityKind names a syncable entity type. The value is both the local table
// name and the remote collection name.
type EntityKind string

const (
	KindUsers            EntityKind = "users"
	KindCategories       EntityKind = "categories"
	KindUnits            EntityKind = "units"
	KindSuppliers        EntityKind = "suppliers"
	KindCustomers        EntityKind = "customers"
	KindSettings         EntityKind = "settings"
	KindProducts         EntityKind = "products"
	KindProductSuppliers EntityKind = "product_suppliers"
	KindSales            EntityKind = "sales"
	KindSaleItems        EntityKind = "sale_items"
	KindPayments         EntityKind = "payments"
	KindStockLedger      EntityKind = "stock_ledger"
)

// SyncOrder is the dependency order used by both pull and push: a kind never
// appears before a kind it references.
var SyncOrder = []EntityKind{
	KindUsers,
	KindCategories,
	KindUnits,
	KindSuppliers,
	KindCustomers,
	KindSettings,
	KindProducts,
	KindProductSuppliers,
	KindSales,
	KindSaleItems,
	KindPayments,
	KindStockLedger,
}

// CollectionTenants is the remote collection holding tenant records.
const CollectionTenants = "tenants"

// AllModels lists every persisted model, for migrations.
func AllModels() []interface{} {
	return []interface{}{
		&Tenant{},
		&User{},
		&Category{},
		&Unit{},
		&Supplier{},
		&Customer{},
		&Setting{},
		&Product{},
		&ProductSupplier{},
		&Sale{},
		&SaleItem{},
		&Payment{},
		&StockLedger{},
	}
}
