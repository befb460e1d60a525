package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/florakart/florakart/internal/models"
)

// Entry is one product line in a cart. UnitPrice is snapshotted when the
// product first enters the cart; price changes in the catalog do not
// silently reprice an open session.
type Entry struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

func (e *Entry) LineTotal() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Cart is the pre-checkout selection, keyed by product id. It lives in
// the session store; nothing here is durable.
type Cart struct {
	Items map[string]*Entry `json:"items"`
}

func New() *Cart {
	return &Cart{Items: map[string]*Entry{}}
}

// Add puts a product in the cart. With update set the quantity is
// replaced, otherwise it is incremented. Quantities below one are the
// caller's bug; use Remove to drop a line.
func (c *Cart) Add(product *models.Product, quantity int, update bool) {
	if c.Items == nil {
		c.Items = map[string]*Entry{}
	}
	key := product.ID.String()
	entry, ok := c.Items[key]
	if !ok {
		entry = &Entry{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.FinalPrice(),
		}
		c.Items[key] = entry
	}
	if update {
		entry.Quantity = quantity
	} else {
		entry.Quantity += quantity
	}
}

func (c *Cart) Remove(productID uuid.UUID) {
	delete(c.Items, productID.String())
}

// TotalPrice sums snapshotted unit prices times quantities.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range c.Items {
		total = total.Add(entry.LineTotal())
	}
	return total
}

// ItemCount is the total number of stems in the cart (sum of quantities).
func (c *Cart) ItemCount() int {
	count := 0
	for _, entry := range c.Items {
		count += entry.Quantity
	}
	return count
}

// Len is the number of distinct products.
func (c *Cart) Len() int {
	return len(c.Items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// DiscountFor computes the coupon discount against the current total, or
// zero when no coupon is applied.
func (c *Cart) DiscountFor(coupon *models.Coupon) decimal.Decimal {
	if coupon == nil {
		return decimal.Zero
	}
	return coupon.DiscountOn(c.TotalPrice())
}

func (c *Cart) Clear() {
	c.Items = map[string]*Entry{}
}
