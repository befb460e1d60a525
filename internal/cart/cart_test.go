package cart

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/florakart/florakart/internal/models"
)

func testProduct(name string, price string) *models.Product {
	return &models.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
}

func TestAddIncrementsQuantity(t *testing.T) {
	c := New()
	rose := testProduct("Red Rose Bouquet", "499.00")

	c.Add(rose, 1, false)
	c.Add(rose, 2, false)

	require.Equal(t, 1, c.Len())
	require.Equal(t, 3, c.ItemCount())
}

func TestAddWithUpdateReplacesQuantity(t *testing.T) {
	c := New()
	rose := testProduct("Red Rose Bouquet", "499.00")

	c.Add(rose, 5, false)
	c.Add(rose, 2, true)

	require.Equal(t, 2, c.ItemCount())
}

func TestRemove(t *testing.T) {
	c := New()
	rose := testProduct("Red Rose Bouquet", "499.00")
	lily := testProduct("White Lily Basket", "799.00")

	c.Add(rose, 1, false)
	c.Add(lily, 1, false)
	c.Remove(rose.ID)

	require.Equal(t, 1, c.Len())
	require.True(t, c.TotalPrice().Equal(decimal.RequireFromString("799.00")))
}

func TestTotalPriceUsesSnapshottedPrice(t *testing.T) {
	c := New()
	rose := testProduct("Red Rose Bouquet", "499.00")
	c.Add(rose, 2, false)

	// A catalog price change must not reprice the open cart.
	rose.Price = decimal.RequireFromString("999.00")

	require.True(t, c.TotalPrice().Equal(decimal.RequireFromString("998.00")))
}

func TestDiscountPriceSnapshotted(t *testing.T) {
	c := New()
	sale := decimal.RequireFromString("350.00")
	rose := testProduct("Red Rose Bouquet", "499.00")
	rose.DiscountPrice = &sale

	c.Add(rose, 1, false)

	require.True(t, c.TotalPrice().Equal(sale))
}

func TestDiscountForCoupon(t *testing.T) {
	c := New()
	bouquet := testProduct("Premium Bouquet", "1000.00")
	c.Add(bouquet, 2, false)

	coupon := &models.Coupon{
		Code:            "BLOOM10",
		DiscountPercent: 10,
		MinOrderValue:   decimal.RequireFromString("500.00"),
		ValidFrom:       time.Now().Add(-time.Hour),
		ValidTo:         time.Now().Add(time.Hour),
		UsageLimit:      100,
		IsActive:        true,
	}

	require.True(t, c.TotalPrice().Equal(decimal.RequireFromString("2000.00")))
	require.True(t, c.DiscountFor(coupon).Equal(decimal.RequireFromString("200.00")))
}

func TestDiscountForCappedAtMaxDiscount(t *testing.T) {
	c := New()
	bouquet := testProduct("Premium Bouquet", "1000.00")
	c.Add(bouquet, 2, false)

	cap := decimal.RequireFromString("150.00")
	coupon := &models.Coupon{DiscountPercent: 10, MaxDiscount: &cap}

	require.True(t, c.DiscountFor(coupon).Equal(cap))
}

func TestDiscountForNilCoupon(t *testing.T) {
	c := New()
	c.Add(testProduct("Red Rose Bouquet", "499.00"), 1, false)

	require.True(t, c.DiscountFor(nil).IsZero())
}

func TestClear(t *testing.T) {
	c := New()
	c.Add(testProduct("Red Rose Bouquet", "499.00"), 3, false)

	c.Clear()

	require.True(t, c.IsEmpty())
	require.True(t, c.TotalPrice().IsZero())
}
