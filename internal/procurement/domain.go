package procurement

import (
	"errors"
	"time"
)

// OrderStatus tracks the lifecycle of a supplier order.
type OrderStatus string

const (
	// OrderPending has not been delivered yet.
	OrderPending OrderStatus = "pending"
	// OrderDelivered has been received and posted to stock.
	OrderDelivered OrderStatus = "delivered"
)

// DateLayout is the wire format of order and delivery dates.
const DateLayout = "2006-01-02"

// SupplierOrder is a purchase of one product from one supplier. The lead time
// between OrderDate and DeliveryDate feeds the reorder point indicator.
type SupplierOrder struct {
	ID           int64       `json:"id"`
	SupplierID   int64       `json:"supplier_id"`
	SupplierName string      `json:"supplier_name"`
	ProductID    int64       `json:"product_id"`
	ProductName  string      `json:"product_name"`
	Quantity     int         `json:"quantity"`
	OrderDate    time.Time   `json:"order_date"`
	DeliveryDate *time.Time  `json:"delivery_date"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// LeadDays returns the whole days between order and delivery, or false when
// the order is still open.
func (o SupplierOrder) LeadDays() (int, bool) {
	if o.DeliveryDate == nil {
		return 0, false
	}
	return int(o.DeliveryDate.Sub(o.OrderDate).Hours() / 24), true
}

// CreateOrderRequest is the payload for placing an order.
type CreateOrderRequest struct {
	SupplierID int64  `json:"supplier_id" validate:"required,gt=0"`
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
	OrderDate  string `json:"order_date" validate:"required,datetime=2006-01-02"`
}

// DeliverRequest marks an order as received.
type DeliverRequest struct {
	DeliveryDate string `json:"delivery_date" validate:"required,datetime=2006-01-02"`
}

// ListFilter narrows the order listing.
type ListFilter struct {
	SupplierID int64
	ProductID  int64
	Status     OrderStatus
}

// ErrAlreadyDelivered is returned when delivering an order twice.
var ErrAlreadyDelivered = errors.New("procurement: order already delivered")
