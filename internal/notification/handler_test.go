package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/farm2home/internal/domain/cart"
	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/email"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to           string
	confirmation email.Confirmation
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendOrderConfirmation(to string, c email.Confirmation) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, confirmation: c})
	return nil
}

func placedOrder() order.Order {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return order.Order{
		ID: "ORD-1",
		Items: []cart.LineItem{
			{ProductID: "p1", Name: "Tomatoes", Category: catalog.CategoryVegetable, Price: decimal.NewFromInt(100), Quantity: 2},
		},
		Total:        decimal.RequireFromString("260"),
		PointsEarned: 20,
		Customer: order.Customer{
			Name: "Asha", Email: "asha@example.com", Address: "12 Market Road", City: "Pune", State: "MH", Pincode: "411001",
		},
		Payment:   order.Payment{Method: order.PaymentUPI, UPIID: "asha@upi"},
		CreatedAt: now,
		Tracking:  order.Tracking{Status: order.StatusConfirmed, EstimatedDelivery: now.Add(72 * time.Hour)},
	}
}

func encodeEvent(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	evt, err := order.NewEvent("ORD-1", eventType, data)
	require.NoError(t, err)
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return raw
}

func TestHandler_OrderPlaced_SendsConfirmation(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer, nil)

	err := h.HandleEvent(context.Background(), []byte("ORD-1"), encodeEvent(t, order.EventOrderPlaced, order.NewOrderPlaced(placedOrder())))

	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	sent := mailer.sent[0]
	assert.Equal(t, "asha@example.com", sent.to)
	assert.Equal(t, "ORD-1", sent.confirmation.OrderID)
	assert.Equal(t, "UPI", sent.confirmation.PaymentMethod)
	assert.Equal(t, "12 Market Road, Pune, MH 411001", sent.confirmation.ShippingAddress)
	assert.True(t, decimal.NewFromInt(260).Equal(sent.confirmation.Total))
	require.Len(t, sent.confirmation.Items, 1)
	assert.Equal(t, "Tomatoes", sent.confirmation.Items[0].Name)
}

func TestHandler_IgnoresOtherEvents(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer, nil)

	err := h.HandleEvent(context.Background(), nil, encodeEvent(t, order.EventOrderStatusChanged, order.OrderStatusChanged{OrderID: "ORD-1"}))

	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestHandler_SkipsOrdersWithoutEmail(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer, nil)
	o := placedOrder()
	o.Customer.Email = ""

	err := h.HandleEvent(context.Background(), nil, encodeEvent(t, order.EventOrderPlaced, order.NewOrderPlaced(o)))

	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestHandler_Errors(t *testing.T) {
	h := NewHandler(&recordingMailer{}, nil)
	assert.Error(t, h.HandleEvent(context.Background(), nil, []byte("{not json")))

	failing := NewHandler(&recordingMailer{err: errors.New("smtp down")}, nil)
	err := failing.HandleEvent(context.Background(), nil, encodeEvent(t, order.EventOrderPlaced, order.NewOrderPlaced(placedOrder())))
	assert.ErrorContains(t, err, "smtp down")
}
