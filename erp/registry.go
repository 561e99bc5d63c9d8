/*
Package erp wires concrete ERP entity types onto the generic data-access
core.

PURPOSE:
  Declares every entity type the client handles - its local collection,
  remote path, secondary-index fields, and routing policy - and assembles
  the per-entity adapters into one Client facade. UI-facing code calls
  these adapters exclusively; it never touches the store or the queue.

ROUTING TABLE:
  Dual (offline + online): products, customers, suppliers, invoices,
    purchases, warehouses, expenses, accounts, journal entries.
  Read-only offline: users, ESL device records (cached reads are useful,
    but writes need server authority).
  Always online: authentication, licensing (see auth.go).

SEE ALSO:
  - generic/adapter.go: The routing contract all adapters share
  - documents.go:       Invoice/purchase creation and the stock cascade
  - products.go:        RFID/barcode/low-stock lookups
*/
package erp

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/erp-offline/generic"
)

// Local collection names, one per entity type.
const (
	StoreProducts       generic.StoreName = "products"
	StoreCustomers      generic.StoreName = "customers"
	StoreSuppliers      generic.StoreName = "suppliers"
	StoreInvoices       generic.StoreName = "invoices"
	StorePurchases      generic.StoreName = "purchases"
	StoreUsers          generic.StoreName = "users"
	StoreWarehouses     generic.StoreName = "warehouses"
	StoreExpenses       generic.StoreName = "expenses"
	StoreAccounts       generic.StoreName = "accounts"
	StoreJournalEntries generic.StoreName = "journal_entries"
	StoreESLDevices     generic.StoreName = "esl_devices"
)

// remotePaths maps each collection to its remote REST path.
var remotePaths = map[generic.StoreName]string{
	StoreProducts:       "/products",
	StoreCustomers:      "/customers",
	StoreSuppliers:      "/suppliers",
	StoreInvoices:       "/invoices",
	StorePurchases:      "/purchases",
	StoreUsers:          "/users",
	StoreWarehouses:     "/warehouses",
	StoreExpenses:       "/accounting/expenses",
	StoreAccounts:       "/accounting/accounts",
	StoreJournalEntries: "/accounting/journal-entries",
	StoreESLDevices:     "/esl/devices",
}

// RemotePath returns the REST path for a collection, or "" when the
// collection has no remote counterpart.
func RemotePath(store generic.StoreName) string {
	return remotePaths[store]
}

// IndexFields declares the secondary-lookup fields per collection. The
// durable store builds expression indexes from this.
func IndexFields() map[generic.StoreName][]string {
	return map[generic.StoreName][]string{
		StoreProducts:   {"sku", "rfidTag", "barcode", "name"},
		StoreCustomers:  {"phone", "name"},
		StoreSuppliers:  {"phone", "name"},
		StoreInvoices:   {"invoiceNumber", "customerId", "status"},
		StorePurchases:  {"purchaseNumber", "supplierId"},
		StoreUsers:      {"username", "role"},
		StoreWarehouses: {"code"},
	}
}

// OfflineCollections lists the collections hydrated from the server for
// offline use, in download order.
func OfflineCollections() []generic.StoreName {
	return []generic.StoreName{
		StoreProducts,
		StoreCustomers,
		StoreSuppliers,
		StoreInvoices,
		StorePurchases,
		StoreWarehouses,
		StoreUsers,
		StoreExpenses,
		StoreAccounts,
	}
}

// =============================================================================
// CLIENT - Per-entity adapters assembled
// =============================================================================

// Deps carries the capabilities every adapter routes through. Injected, not
// global: tests build a Deps per mode.
type Deps struct {
	Local    generic.Store
	Queue    generic.Queue
	Remote   generic.Transport
	Detector generic.Detector
	Log      *logrus.Logger
}

// Client is the uniform data-access surface for all entity types.
type Client struct {
	Products       *ProductCatalog
	Customers      *generic.Adapter
	Suppliers      *generic.Adapter
	Invoices       *DocumentAdapter
	Purchases      *DocumentAdapter
	Users          *generic.Adapter
	Warehouses     *generic.Adapter
	Expenses       *generic.Adapter
	Accounts       *generic.Adapter
	JournalEntries *generic.Adapter
	ESLDevices     *generic.Adapter
	Auth           *Auth
	Licensing      *Licensing
	Reports        *Reports
}

// New assembles adapters for every entity type.
func New(deps Deps) *Client {
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	alloc := generic.NewAllocator(deps.Local)

	adapter := func(store generic.StoreName, policy generic.OpPolicy) *generic.Adapter {
		return &generic.Adapter{
			Name:     store,
			Path:     remotePaths[store],
			Local:    deps.Local,
			Queue:    deps.Queue,
			Remote:   deps.Remote,
			Detector: deps.Detector,
			Policy:   policy,
		}
	}

	return &Client{
		Products: &ProductCatalog{
			Adapter: adapter(StoreProducts, generic.DualPolicy()),
		},
		Customers: adapter(StoreCustomers, generic.DualPolicy()),
		Suppliers: adapter(StoreSuppliers, generic.DualPolicy()),
		Invoices: &DocumentAdapter{
			Adapter:     adapter(StoreInvoices, generic.DualPolicy()),
			numberField: "invoiceNumber",
			prefix:      "",
			stockSign:   decimal.NewFromInt(-1),
			dueDate:     true,
			alloc:       alloc,
			log:         deps.Log,
		},
		Purchases: &DocumentAdapter{
			Adapter:     adapter(StorePurchases, generic.DualPolicy()),
			numberField: "purchaseNumber",
			prefix:      "PUR-",
			stockSign:   decimal.NewFromInt(1),
			alloc:       alloc,
			log:         deps.Log,
		},
		Users:          adapter(StoreUsers, generic.ReadOnlyOfflinePolicy()),
		Warehouses:     adapter(StoreWarehouses, generic.DualPolicy()),
		Expenses:       adapter(StoreExpenses, generic.DualPolicy()),
		Accounts:       adapter(StoreAccounts, generic.DualPolicy()),
		JournalEntries: adapter(StoreJournalEntries, generic.DualPolicy()),
		ESLDevices:     adapter(StoreESLDevices, generic.ReadOnlyOfflinePolicy()),
		Auth:           &Auth{remote: deps.Remote, detector: deps.Detector},
		Licensing:      &Licensing{remote: deps.Remote, detector: deps.Detector},
		Reports: &Reports{
			local:    deps.Local,
			remote:   deps.Remote,
			detector: deps.Detector,
		},
	}
}
