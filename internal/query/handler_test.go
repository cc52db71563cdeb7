package query

import (
	"context"
	"testing"
	"time"

	"github.com/example/farm2home/internal/checkout"
	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/domain/pricing"
	"github.com/example/farm2home/internal/infrastructure/kv"
	"github.com/example/farm2home/internal/projection"
	"github.com/example/farm2home/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placedAt = time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)

func newTestQueryHandler(t *testing.T, engine *pricing.Engine) (*Handler, *session.Manager) {
	t.Helper()
	ids := []string{"ORD-Q-1", "ORD-Q-2"}
	next := 0
	sessions, err := session.NewManager(session.Config{
		Store: kv.NewMemoryStore(),
		Catalog: catalog.NewMemoryCatalog(
			catalog.Product{ID: "p1", Name: "Tomatoes", Category: catalog.CategoryVegetable, Price: decimal.NewFromInt(100), AvailableQuantity: 9},
			catalog.Product{ID: "p2", Name: "Mangoes", Category: catalog.CategoryFruit, Price: decimal.NewFromInt(35), AvailableQuantity: 9},
		),
		Pricing: engine,
		Now: func() time.Time {
			return placedAt.Add(time.Duration(next) * time.Hour)
		},
		NewID: func(time.Time) string {
			id := ids[next]
			next++
			return id
		},
	})
	require.NoError(t, err)
	return NewHandler(sessions, engine), sessions
}

func place(t *testing.T, sessions *session.Manager, sessionID string) order.Order {
	t.Helper()
	ctx := context.Background()
	s, err := sessions.Get(ctx, sessionID)
	require.NoError(t, err)

	require.NoError(t, s.AddToCart(ctx, "p1", 2))
	require.NoError(t, s.AddToCart(ctx, "p2", 1))
	_, err = s.StartCheckout()
	require.NoError(t, err)
	_, err = s.SubmitShipping(checkout.ShippingInfo{
		Name: "Meera", Email: "meera@example.com", Phone: "9123456780",
		Address: "7 Station Road", City: "Mysuru", State: "KA", Pincode: "570001",
	})
	require.NoError(t, err)
	_, err = s.SubmitPayment(checkout.PaymentInfo{Method: order.PaymentCard, CardNumber: "4111 1111 1111 1234", CardName: "Meera K"})
	require.NoError(t, err)
	o, err := s.PlaceOrder(ctx)
	require.NoError(t, err)
	return o
}

// ============================================
// Cart Query Tests
// ============================================

func TestHandler_Cart_Empty(t *testing.T) {
	h, _ := newTestQueryHandler(t, nil)

	view, err := h.Cart(context.Background(), "s1")

	require.NoError(t, err)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.ItemCount)
	assert.Equal(t, "50", view.Amounts.GrandTotal.String())
	assert.Equal(t, "3", view.Footprint.String())
}

func TestHandler_Cart_DerivedValues(t *testing.T) {
	h, sessions := newTestQueryHandler(t, nil)
	ctx := context.Background()
	s, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, s.AddToCart(ctx, "p1", 2))
	require.NoError(t, s.AddToCart(ctx, "p2", 1))

	view, err := h.Cart(ctx, "s1")

	require.NoError(t, err)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, "235", view.Amounts.Subtotal.String())
	assert.Equal(t, "11.75", view.Amounts.Tax.String())
	assert.Equal(t, "296.75", view.Amounts.GrandTotal.String())
	assert.Equal(t, 23, view.PointsToEarn)
	assert.Equal(t, "4.7", view.Footprint.String())
	assert.Equal(t, 0, view.Points)
}

func TestHandler_Cart_CustomPricing(t *testing.T) {
	engine := pricing.Engine{ShippingFee: decimal.Zero, TaxRate: decimal.RequireFromString("0.18")}
	h, sessions := newTestQueryHandler(t, &engine)
	ctx := context.Background()
	s, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, s.AddToCart(ctx, "p1", 1))

	view, err := h.Cart(ctx, "s1")

	require.NoError(t, err)
	assert.Equal(t, "118", view.Amounts.GrandTotal.String())
}

// ============================================
// Order Query Tests
// ============================================

func TestHandler_TrackOrder(t *testing.T) {
	h, sessions := newTestQueryHandler(t, nil)
	o := place(t, sessions, "s1")

	view, err := h.TrackOrder(context.Background(), "s1", o.ID)

	require.NoError(t, err)
	assert.Equal(t, "ORD-Q-1", view.OrderID)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, "296.75", view.Total.StringFixed(2))
	assert.Equal(t, 23, view.PointsEarned)
	assert.Equal(t, "7 Station Road, Mysuru, KA 570001", view.ShippingAddress)
	assert.Equal(t, "1234", view.Payment.CardLast4)
	assert.Equal(t, projection.Describe(order.StatusConfirmed), view.Status)
	assert.Equal(t, 25, view.Status.ProgressPercent)
	assert.Equal(t, "Mysuru", view.Location)
	assert.Equal(t, placedAt.Add(checkout.DeliveryWindow), view.EstimatedDelivery)
}

func TestHandler_TrackOrder_FollowsStatus(t *testing.T) {
	h, sessions := newTestQueryHandler(t, nil)
	ctx := context.Background()
	o := place(t, sessions, "s1")
	s, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	_, _, err = s.AdvanceStatus(ctx, o.ID, order.StatusProcessing, "")
	require.NoError(t, err)
	_, _, err = s.AdvanceStatus(ctx, o.ID, order.StatusShipped, "Bengaluru hub")
	require.NoError(t, err)

	view, err := h.TrackOrder(ctx, "s1", o.ID)

	require.NoError(t, err)
	assert.Equal(t, 75, view.Status.ProgressPercent)
	assert.Equal(t, "Shipped", view.Status.Label)
	assert.Equal(t, "Bengaluru hub", view.Location)
}

func TestHandler_TrackOrder_NotFound(t *testing.T) {
	h, sessions := newTestQueryHandler(t, nil)
	place(t, sessions, "s1")

	_, err := h.TrackOrder(context.Background(), "s1", "ORD-MISSING")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	// orders are scoped to the session that placed them
	_, err = h.TrackOrder(context.Background(), "s2", "ORD-Q-1")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestHandler_ListOrders_NewestFirst(t *testing.T) {
	h, sessions := newTestQueryHandler(t, nil)
	place(t, sessions, "s1")
	place(t, sessions, "s1")

	views, err := h.ListOrders(context.Background(), "s1")

	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "ORD-Q-2", views[0].OrderID)
	assert.Equal(t, "ORD-Q-1", views[1].OrderID)
	assert.Equal(t, "Order Confirmed", views[0].Status.Label)
}

func TestHandler_ListOrders_Empty(t *testing.T) {
	h, _ := newTestQueryHandler(t, nil)

	views, err := h.ListOrders(context.Background(), "s1")

	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestHandler_Checkout_NotStarted(t *testing.T) {
	h, _ := newTestQueryHandler(t, nil)

	_, err := h.Checkout(context.Background(), "s1")

	assert.ErrorIs(t, err, session.ErrNoCheckout)
}
