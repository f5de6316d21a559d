package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Product is a catalog row. Only Quantity and Status are written here.
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID        uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	Title          string              `gorm:"column:title;not null"`
	SKU            string              `gorm:"column:sku"`
	PriceCents     int                 `gorm:"column:price_cents;not null"`
	Quantity       int                 `gorm:"column:quantity;not null;default:0"`
	TrackInventory bool                `gorm:"column:track_inventory;not null"`
	Status         enums.ProductStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	Variants       []ProductVariant    `gorm:"foreignKey:ProductID"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant carries its own stock and an optional price override.
type ProductVariant struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Title       string    `gorm:"column:title;not null"`
	SKU         string    `gorm:"column:sku"`
	PriceCents  *int      `gorm:"column:price_cents"`
	Quantity    int       `gorm:"column:quantity;not null;default:0"`
	IsAvailable bool      `gorm:"column:is_available;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
