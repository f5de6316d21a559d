package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type Coupon struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	StoreID            uuid.UUID        `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_coupons_store_code"`
	Code               string           `gorm:"column:code;not null;uniqueIndex:idx_coupons_store_code"`
	Type               enums.CouponType `gorm:"column:type;type:text;not null"`
	Value              int              `gorm:"column:value;not null;default:0"`
	MaxUses            *int             `gorm:"column:max_uses"`
	MaxUsesPerCustomer *int             `gorm:"column:max_uses_per_customer"`
	MinOrderCents      int              `gorm:"column:min_order_cents;not null;default:0"`
	ExpiresAt          *time.Time       `gorm:"column:expires_at"`
	IsActive           bool             `gorm:"column:is_active;not null"`
	UsedCount          int              `gorm:"column:used_count;not null;default:0"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
