package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/farm2home/internal/domain/cart"
	"github.com/example/farm2home/internal/domain/impact"
	"github.com/example/farm2home/internal/domain/loyalty"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/domain/pricing"
	"github.com/example/farm2home/internal/infrastructure/kv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DeliveryWindow is the promised time from placement to delivery
const DeliveryWindow = 72 * time.Hour

var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrInvalidStep = errors.New("operation not allowed at this checkout step")
)

type Step int

const (
	StepShipping Step = iota
	StepPayment
	StepReview
	StepPlacing
	StepPlaced
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	case StepPlacing:
		return "placing"
	case StepPlaced:
		return "placed"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CartStore is the part of cart.Store the workflow needs
type CartStore interface {
	Snapshot() cart.State
	StageSettlement(b *kv.Batch, points int) error
}

// OrderStore is the part of order.Store the workflow needs
type OrderStore interface {
	StageAppend(b *kv.Batch, o order.Order) error
}

// Recorder receives checkout outcomes
type Recorder interface {
	OrderPlaced(total decimal.Decimal, points int)
	CheckoutFailed(reason string)
}

type nopRecorder struct{}

func (nopRecorder) OrderPlaced(decimal.Decimal, int) {}
func (nopRecorder) CheckoutFailed(string)            {}

type Config struct {
	Cart   CartStore
	Orders OrderStore
	// KV must be the store both Cart and Orders write to.
	KV        kv.Store
	Pricing   *pricing.Engine // nil means pricing.Default()
	Publisher order.Publisher
	Metrics   Recorder
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func(now time.Time) string
}

// Workflow is one pass through the checkout wizard.
type Workflow struct {
	mu        sync.Mutex
	cart      CartStore
	orders    OrderStore
	kv        kv.Store
	pricing   pricing.Engine
	publisher order.Publisher
	metrics   Recorder
	logger    *zap.Logger
	now       func() time.Time
	newID     func(now time.Time) string

	step     Step
	shipping ShippingInfo
	payment  PaymentInfo
	placed   *order.Order
}

// New starts checkout. An empty cart cannot enter the wizard.
func New(cfg Config) (*Workflow, error) {
	if cfg.Cart == nil || cfg.Orders == nil || cfg.KV == nil {
		return nil, errors.New("checkout requires cart, order and kv stores")
	}
	if cfg.Cart.Snapshot().IsEmpty() {
		return nil, ErrEmptyCart
	}

	w := &Workflow{
		cart:      cfg.Cart,
		orders:    cfg.Orders,
		kv:        cfg.KV,
		pricing:   pricing.Default(),
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Now,
		newID:     cfg.NewID,
		step:      StepShipping,
		payment:   PaymentInfo{Method: order.PaymentCard},
	}
	if cfg.Pricing != nil {
		w.pricing = *cfg.Pricing
	}
	if w.publisher == nil {
		w.publisher = order.NopPublisher{}
	}
	if w.metrics == nil {
		w.metrics = nopRecorder{}
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	w.logger = w.logger.Named("checkout")
	if w.now == nil {
		w.now = time.Now
	}
	if w.newID == nil {
		w.newID = NewOrderID
	}
	return w, nil
}

// NewOrderID builds "ORD-<unix millis>-<8 random hex>".
func NewOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// SubmitShipping records the shipping form and moves to payment when the
// required fields are present.
func (w *Workflow) SubmitShipping(info ShippingInfo) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepShipping {
		return fmt.Errorf("%w: submit shipping at %s", ErrInvalidStep, w.step)
	}
	info = info.normalize()
	w.shipping = info
	if err := validateShipping(info); err != nil {
		return err
	}
	w.step = StepPayment
	return nil
}

// SubmitPayment records the payment form. An empty method means card.
func (w *Workflow) SubmitPayment(info PaymentInfo) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepPayment {
		return fmt.Errorf("%w: submit payment at %s", ErrInvalidStep, w.step)
	}
	method, err := order.ParsePaymentMethod(string(info.Method))
	if err != nil {
		return &ValidationError{Fields: []string{"method"}}
	}
	info.Method = method
	w.payment = info
	w.step = StepReview
	return nil
}

// Back returns to the previous form, keeping what was entered.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepPayment:
		w.step = StepShipping
	case StepReview:
		w.step = StepPayment
	default:
		return fmt.Errorf("%w: back from %s", ErrInvalidStep, w.step)
	}
	return nil
}

// Summary is the review page content
type Summary struct {
	Step          Step                `json:"step"`
	Shipping      ShippingInfo        `json:"shipping"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
	Items         []cart.LineItem     `json:"items"`
	ItemCount     int                 `json:"item_count"`
	Amounts       pricing.Breakdown   `json:"amounts"`
	PointsToEarn  int                 `json:"points_to_earn"`
	Footprint     decimal.Decimal     `json:"footprint"`
	OrderID       string              `json:"order_id,omitempty"`
}

func (w *Workflow) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Summary{
		Step:          w.step,
		Shipping:      w.shipping,
		PaymentMethod: w.payment.Method,
	}
	if w.placed != nil {
		s.Items = w.placed.Items
		s.ItemCount = w.placed.ItemCount()
		s.Amounts = pricing.Breakdown{
			Subtotal:   w.placed.Subtotal,
			Shipping:   w.placed.Shipping,
			Tax:        w.placed.Tax,
			GrandTotal: w.placed.Total,
		}
		s.PointsToEarn = w.placed.PointsEarned
		s.Footprint = impact.Footprint(cart.State{Items: w.placed.Items})
		s.OrderID = w.placed.ID
		return s
	}

	snap := w.cart.Snapshot()
	s.Items = snap.Items
	s.ItemCount = snap.ItemCount()
	s.Amounts = w.pricing.Breakdown(snap)
	s.PointsToEarn = loyalty.PointsEarned(s.Amounts.Subtotal)
	s.Footprint = impact.Footprint(snap)
	return s
}

// PlaceOrder turns the cart into an order. The order append, the point
// credit and the cart clear commit in one batch; if it fails nothing
// changes and the workflow returns to review.
func (w *Workflow) PlaceOrder(ctx context.Context) (order.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepReview {
		return order.Order{}, fmt.Errorf("%w: place order at %s", ErrInvalidStep, w.step)
	}
	w.step = StepPlacing

	o, err := w.place(ctx)
	if err != nil {
		w.step = StepReview
		w.metrics.CheckoutFailed(failureReason(err))
		w.logger.Warn("order placement failed", zap.Error(err))
		return order.Order{}, err
	}

	w.step = StepPlaced
	w.placed = &o
	w.metrics.OrderPlaced(o.Total, o.PointsEarned)
	w.logger.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("total", o.Total.StringFixed(2)),
		zap.Int("points_earned", o.PointsEarned))

	w.publish(ctx, o)
	return o, nil
}

func (w *Workflow) place(ctx context.Context) (order.Order, error) {
	if err := validateShipping(w.shipping); err != nil {
		return order.Order{}, err
	}

	snap := w.cart.Snapshot()
	if snap.IsEmpty() {
		return order.Order{}, ErrEmptyCart
	}

	now := w.now()
	amounts := w.pricing.Breakdown(snap)
	o := order.Order{
		ID:           w.newID(now),
		Items:        snap.Items,
		Subtotal:     amounts.Subtotal,
		Shipping:     amounts.Shipping,
		Tax:          amounts.Tax,
		Total:        amounts.GrandTotal,
		PointsEarned: loyalty.PointsEarned(amounts.Subtotal),
		Customer:     w.shipping.customer(),
		Payment:      w.payment.record(),
		CreatedAt:    now,
		Tracking: order.Tracking{
			Status:            order.StatusConfirmed,
			Location:          w.shipping.City,
			EstimatedDelivery: now.Add(DeliveryWindow),
			UpdatedAt:         now,
		},
	}

	var b kv.Batch
	if err := w.orders.StageAppend(&b, o); err != nil {
		return order.Order{}, err
	}
	if err := w.cart.StageSettlement(&b, o.PointsEarned); err != nil {
		return order.Order{}, err
	}
	if err := b.Commit(ctx, w.kv); err != nil {
		return order.Order{}, fmt.Errorf("failed to place order: %w", err)
	}
	return o, nil
}

func (w *Workflow) publish(ctx context.Context, o order.Order) {
	evt, err := order.NewEvent(o.ID, order.EventOrderPlaced, order.NewOrderPlaced(o))
	if err != nil {
		w.logger.Warn("failed to build order event", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	if err := w.publisher.Publish(ctx, o.ID, evt); err != nil {
		w.logger.Warn("failed to publish order event", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// OrderID is set once the order is placed
func (w *Workflow) OrderID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.placed == nil {
		return ""
	}
	return w.placed.ID
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, order.ErrDuplicateOrder):
		return "duplicate_order"
	case errors.Is(err, kv.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}
