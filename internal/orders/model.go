package orders

import (
	"time"

	"github.com/angelmondragon/skawsh-sack/internal/sack"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	"github.com/angelmondragon/skawsh-sack/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the snapshot of one studio's share of a sack at placement time.
// Items are copied, never referenced, so later sack edits do not reach it.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	SessionID    string            `gorm:"column:session_id;not null" json:"-"`
	StudioID     string            `gorm:"column:studio_id;not null" json:"studio_id"`
	StudioName   string            `gorm:"column:studio_name" json:"studio_name"`
	Status       enums.OrderStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	Items        []sack.LineItem   `gorm:"column:items;serializer:json;not null" json:"items"`
	Subtotal     decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2)" json:"subtotal"`
	DeliveryFee  decimal.Decimal   `gorm:"column:delivery_fee;type:numeric(12,2)" json:"delivery_fee"`
	Tax          decimal.Decimal   `gorm:"column:tax;type:numeric(12,2)" json:"tax"`
	Discount     decimal.Decimal   `gorm:"column:discount;type:numeric(12,2)" json:"discount"`
	Total        decimal.Decimal   `gorm:"column:total;type:numeric(12,2)" json:"total"`
	CouponCode   string            `gorm:"column:coupon_code" json:"coupon_code,omitempty"`
	Address      types.Address     `gorm:"column:address;serializer:json;not null" json:"address"`
	Instructions *string           `gorm:"column:instructions" json:"instructions,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at" json:"updated_at"`
	CancelledAt  *time.Time        `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
}

func (Order) TableName() string { return "orders" }

// PlaceInput carries checkout details. An empty StudioID places every studio
// in the sack.
type PlaceInput struct {
	SessionID    string
	StudioID     string
	Address      types.Address
	Instructions *string
	CouponCode   string
}

// OrderList is one page of a session's order history, newest first.
type OrderList struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_cursor,omitempty"`
}
