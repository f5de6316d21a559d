package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a missing primary key so inserts behave the same on
// Postgres and the sqlite test databases.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (s *Store) BeforeCreate(*gorm.DB) error          { assignID(&s.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error        { assignID(&p.ID); return nil }
func (v *ProductVariant) BeforeCreate(*gorm.DB) error { assignID(&v.ID); return nil }
func (c *Coupon) BeforeCreate(*gorm.DB) error         { assignID(&c.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error          { assignID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error      { assignID(&i.ID); return nil }
func (e *OrderEvent) BeforeCreate(*gorm.DB) error     { assignID(&e.ID); return nil }
func (t *Transaction) BeforeCreate(*gorm.DB) error    { assignID(&t.ID); return nil }
func (p *Payout) BeforeCreate(*gorm.DB) error         { assignID(&p.ID); return nil }
func (r *ReturnRequest) BeforeCreate(*gorm.DB) error  { assignID(&r.ID); return nil }
func (i *ReturnItem) BeforeCreate(*gorm.DB) error     { assignID(&i.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error    { assignID(&e.ID); return nil }
func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error      { assignID(&d.ID); return nil }

// All lists every persisted model, used by the sqlite harness.
func All() []any {
	return []any{
		&Store{},
		&Product{},
		&ProductVariant{},
		&Coupon{},
		&Order{},
		&OrderItem{},
		&OrderEvent{},
		&Transaction{},
		&Payout{},
		&ReturnRequest{},
		&ReturnItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
