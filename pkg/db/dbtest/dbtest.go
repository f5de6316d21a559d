// Package dbtest opens throwaway sqlite databases migrated with every model.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Open returns an isolated in-memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// Fixture seeds the rows most flows need: one active store on the free plan,
// a tracked product without variants, and a product with a single variant.
type Fixture struct {
	DB         *gorm.DB
	Client     *db.Client
	Store      models.Store
	OwnerID    uuid.UUID
	CustomerID uuid.UUID
	Product    models.Product
	Variant    models.ProductVariant
	Parent     models.Product
}

func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	conn := Open(t)
	f := &Fixture{DB: conn, Client: db.Wrap(conn), OwnerID: uuid.New(), CustomerID: uuid.New()}

	f.Store = models.Store{
		OwnerID:  f.OwnerID,
		Name:     "Kribi Crafts",
		Plan:     enums.StorePlanFree,
		IsActive: true,
		Currency: enums.CurrencyXAF,
	}
	Must(t, conn.Create(&f.Store).Error)

	f.Product = models.Product{
		StoreID:        f.Store.ID,
		Title:          "Woven basket",
		SKU:            "BSK-1",
		PriceCents:     5000,
		Quantity:       10,
		TrackInventory: true,
		Status:         enums.ProductStatusActive,
	}
	Must(t, conn.Create(&f.Product).Error)

	f.Parent = models.Product{
		StoreID:        f.Store.ID,
		Title:          "Wax print shirt",
		SKU:            "SHIRT",
		PriceCents:     8000,
		TrackInventory: true,
		Status:         enums.ProductStatusActive,
	}
	Must(t, conn.Create(&f.Parent).Error)

	price := 9000
	f.Variant = models.ProductVariant{
		ProductID:   f.Parent.ID,
		Title:       "Large",
		SKU:         "SHIRT-L",
		PriceCents:  &price,
		Quantity:    3,
		IsAvailable: true,
	}
	Must(t, conn.Create(&f.Variant).Error)
	return f
}

// Reload refreshes a model by primary key.
func Reload[T any](t testing.TB, conn *gorm.DB, id uuid.UUID) T {
	t.Helper()
	var out T
	Must(t, conn.First(&out, "id = ?", id).Error)
	return out
}

// Delivered seeds a delivered order with a single product line.
func (f *Fixture) Delivered(t testing.TB, deliveredAt time.Time, quantity, unitPrice int) models.Order {
	t.Helper()
	return f.DeliveredLines(t, deliveredAt, models.OrderItem{
		ProductID:      f.Product.ID,
		Title:          f.Product.Title,
		SKU:            f.Product.SKU,
		Quantity:       quantity,
		UnitPriceCents: unitPrice,
	})
}

// DeliveredLines seeds a delivered, paid order with the given lines. Line
// totals are derived from quantity and unit price.
func (f *Fixture) DeliveredLines(t testing.TB, deliveredAt time.Time, lines ...models.OrderItem) models.Order {
	t.Helper()
	total := 0
	for i := range lines {
		lines[i].TotalCents = lines[i].Quantity * lines[i].UnitPriceCents
		total += lines[i].TotalCents
	}
	order := models.Order{
		OrderNumber:     nextNumber(t, f.DB),
		CustomerID:      f.CustomerID,
		StoreID:         f.Store.ID,
		SubtotalCents:   total,
		TotalCents:      total,
		Currency:        enums.CurrencyXAF,
		Status:          enums.OrderStatusDelivered,
		PaymentStatus:   enums.PaymentStatusPaid,
		DeliveredAt:     &deliveredAt,
		CreatedAt:       deliveredAt.Add(-72 * time.Hour),
		ShippingAddress: SampleAddress(),
		Items:           lines,
	}
	Must(t, f.DB.Create(&order).Error)
	return order
}

func nextNumber(t testing.TB, conn *gorm.DB) int64 {
	t.Helper()
	var current int64
	Must(t, conn.Model(&models.Order{}).Select("COALESCE(MAX(order_number), 0)").Scan(&current).Error)
	return current + 1
}

// Must fails the test on a non-nil error.
func Must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
