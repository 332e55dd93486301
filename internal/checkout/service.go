package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundbay/soundbay-backend/internal/cart"
	"github.com/soundbay/soundbay-backend/internal/commission"
	"github.com/soundbay/soundbay-backend/internal/ownership"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/logger"
	"github.com/soundbay/soundbay-backend/pkg/metrics"
	"github.com/soundbay/soundbay-backend/pkg/outbox"
	"github.com/soundbay/soundbay-backend/pkg/paypal"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sellerDirectory interface {
	FindEligible(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Seller, error)
}

type processorOrders interface {
	CreateOrder(ctx context.Context, req paypal.OrderRequest, requestID string) (*paypal.OrderResult, error)
	CaptureOrder(ctx context.Context, orderID string, opts paypal.CaptureOptions) (*paypal.CaptureResult, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service orchestrates order routing, capture, and fulfillment.
type Service interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID) (*CreateOrderResult, error)
	Capture(ctx context.Context, buyerID, orderID uuid.UUID) (*CaptureOutcome, error)
	GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
}

// CreateOrderResult is returned to the frontend so it can launch approval.
type CreateOrderResult struct {
	OrderID         uuid.UUID         `json:"order_id"`
	ExternalOrderID string            `json:"external_order_id"`
	Mode            enums.PaymentMode `json:"payment_mode"`
	TotalCents      int               `json:"total_cents"`
	Currency        enums.Currency    `json:"currency"`
}

// CaptureOutcome is the structured terminal result of a capture attempt.
// Declines are data, not errors: the order stays retryable.
type CaptureOutcome struct {
	Captured      bool                `json:"captured"`
	Order         *models.Order       `json:"order"`
	DeclineReason enums.DeclineReason `json:"decline_reason,omitempty"`
	DeclineMsg    string              `json:"decline_message,omitempty"`
}

// Options configures the checkout service.
type Options struct {
	PlatformMerchantID string
	Currency           enums.Currency
}

type service struct {
	tx        txRunner
	repo      Repository
	cartRepo  cart.Repository
	grants    ownership.Repository
	sellers   sellerDirectory
	processor processorOrders
	outbox    outboxPublisher
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	opts      Options
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	repo Repository,
	cartRepo cart.Repository,
	grants ownership.Repository,
	sellers sellerDirectory,
	processor processorOrders,
	publisher outboxPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
	opts Options,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if grants == nil {
		return nil, fmt.Errorf("ownership repository required")
	}
	if sellers == nil {
		return nil, fmt.Errorf("seller directory required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor client required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.Currency == "" {
		opts.Currency = enums.CurrencyUSD
	}
	return &service{
		tx:        tx,
		repo:      repo,
		cartRepo:  cartRepo,
		grants:    grants,
		sellers:   sellers,
		processor: processor,
		outbox:    publisher,
		metrics:   checkoutMetrics,
		logg:      logg,
		opts:      opts,
	}, nil
}

// CreateOrder groups the cart, selects a payment mode, registers the order
// with the processor, and persists the internal order with per-line fee
// snapshots. The external call runs first: a crash between the two leaves an
// orphaned external order with no local record, which is reconciled out of
// band rather than repaired automatically.
func (s *service) CreateOrder(ctx context.Context, buyerID uuid.UUID) (*CreateOrderResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	lines, err := s.cartRepo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	platform, sellerGroups := Partition(lines)

	sellerIDs := make([]uuid.UUID, 0, len(sellerGroups))
	for _, group := range sellerGroups {
		sellerIDs = append(sellerIDs, *group.SellerID)
	}
	eligible, err := s.sellers.FindEligible(ctx, sellerIDs)
	if err != nil {
		return nil, err
	}

	decision := SelectMode(platform, sellerGroups, eligible)
	if decision.FallbackCause != "" {
		s.metrics.IncModeFallback(decision.FallbackCause)
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"buyer_id": buyerID.String(),
			"cause":    decision.FallbackCause,
		})
		s.logg.Warn(logCtx, "cart routed to standard mode")
	}

	total := 0
	for _, line := range lines {
		total += line.UnitPriceCents
	}

	var allocations []commission.Allocation
	if decision.Mode.IsSplit() {
		groups := make([]commission.Group, 0, len(sellerGroups))
		for _, group := range sellerGroups {
			seller := eligible[*group.SellerID]
			groups = append(groups, commission.Group{
				SellerID:   *group.SellerID,
				GrossCents: group.GrossCents,
				Rate:       seller.CommissionRate,
			})
		}
		allocations = commission.AllocateAll(groups)
	}

	request, err := BuildOrderRequest(BuildInput{
		Mode:               decision.Mode,
		Currency:           s.opts.Currency,
		TotalCents:         total,
		Allocations:        allocations,
		Sellers:            eligible,
		PlatformMerchantID: s.opts.PlatformMerchantID,
	})
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	external, err := s.processor.CreateOrder(ctx, request, orderID.String())
	if err != nil {
		return nil, err
	}

	feeTotal := 0
	for _, alloc := range allocations {
		feeTotal += alloc.FeeCents
	}

	order := &models.Order{
		ID:              orderID,
		BuyerID:         buyerID,
		ExternalOrderID: external.ID,
		Status:          enums.OrderStatusCreated,
		PaymentMode:     decision.Mode,
		Currency:        s.opts.Currency,
		TotalCents:      total,
		FeeTotalCents:   feeTotal,
	}
	orderLines := s.snapshotLines(orderID, platform, sellerGroups, allocations, eligible, decision.Mode)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := repo.CreateOrderLines(ctx, orderLines); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: map[string]any{
				"order_id":          orderID.String(),
				"external_order_id": external.ID,
				"payment_mode":      decision.Mode.String(),
				"total_cents":       total,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}

	s.metrics.IncOrderCreated(decision.Mode.String())
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"external_order_id": external.ID,
		"payment_mode":      decision.Mode.String(),
		"total_cents":       total,
	})
	s.logg.Info(logCtx, "order created")

	return &CreateOrderResult{
		OrderID:         orderID,
		ExternalOrderID: external.ID,
		Mode:            decision.Mode,
		TotalCents:      total,
		Currency:        s.opts.Currency,
	}, nil
}

// snapshotLines freezes each cart line with its fee split at order time.
// Fulfillment later reads these rows, never the mutable cart.
func (s *service) snapshotLines(
	orderID uuid.UUID,
	platform *Group,
	sellerGroups []Group,
	allocations []commission.Allocation,
	sellersByID map[uuid.UUID]models.Seller,
	mode enums.PaymentMode,
) []models.OrderLine {
	var out []models.OrderLine

	if platform != nil {
		for _, line := range platform.Lines {
			out = append(out, models.OrderLine{
				ID:             uuid.New(),
				OrderID:        orderID,
				TrackID:        line.TrackID,
				UnitPriceCents: line.UnitPriceCents,
				NetCents:       line.UnitPriceCents,
				TitleSnapshot:  line.TitleSnapshot,
			})
		}
	}

	feeByseller := make(map[uuid.UUID]int, len(allocations))
	for _, alloc := range allocations {
		feeByseller[alloc.SellerID] = alloc.FeeCents
	}

	for _, group := range sellerGroups {
		lineGross := make([]int, len(group.Lines))
		for i, line := range group.Lines {
			lineGross[i] = line.UnitPriceCents
		}
		lineFees := commission.DistributeFee(lineGross, feeByseller[*group.SellerID])

		var merchantID *string
		if mode.IsSplit() {
			if seller, ok := sellersByID[*group.SellerID]; ok && seller.MerchantID != nil {
				id := *seller.MerchantID
				merchantID = &id
			}
		}

		for i, line := range group.Lines {
			sellerID := *group.SellerID
			out = append(out, models.OrderLine{
				ID:               uuid.New(),
				OrderID:          orderID,
				TrackID:          line.TrackID,
				SellerID:         &sellerID,
				SellerMerchantID: merchantID,
				UnitPriceCents:   line.UnitPriceCents,
				FeeCents:         lineFees[i],
				NetCents:         line.UnitPriceCents - lineFees[i],
				TitleSnapshot:    line.TitleSnapshot,
			})
		}
	}
	return out
}

// Capture finalizes payment for a created order. Exactly one caller can move
// the order to completed; fulfillment (ownership grants, cart clearing,
// notification) runs only after the processor confirms the capture.
func (s *service) Capture(ctx context.Context, buyerID, orderID uuid.UUID) (*CaptureOutcome, error) {
	if buyerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and order id required")
	}

	order, err := s.repo.FindByIDAndBuyer(ctx, orderID, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.Status == enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already captured")
	}

	opts := paypal.CaptureOptions{RequestID: "capture-" + order.ID.String()}
	if order.PaymentMode == enums.PaymentModeSingleSellerSplit {
		// Single-seller captures act on behalf of that seller's account.
		for _, line := range order.Lines {
			if line.SellerMerchantID != nil {
				opts.MerchantID = *line.SellerMerchantID
				break
			}
		}
	}

	result, err := s.processor.CaptureOrder(ctx, order.ExternalOrderID, opts)
	if err != nil {
		if decline, ok := paypal.AsDecline(err); ok {
			return s.recordDecline(ctx, order, decline)
		}
		// Timeouts and 5xx are indeterminate: never assumed successful, the
		// order stays created so the same internal id can retry.
		s.metrics.IncCaptureOutcome("indeterminate")
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Error(logCtx, "capture outcome indeterminate", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capture could not be confirmed")
	}
	if !result.Completed() {
		s.metrics.IncCaptureOutcome("indeterminate")
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
			"processor_status": result.Status,
		})
		s.logg.Error(logCtx, "capture returned non-terminal status", nil)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "capture could not be confirmed")
	}

	captureID := ""
	if len(result.CaptureIDs) > 0 {
		captureID = result.CaptureIDs[0]
	}

	if err := s.fulfill(ctx, order, captureID); err != nil {
		return nil, err
	}

	s.metrics.IncCaptureOutcome("captured")
	completed, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	return &CaptureOutcome{Captured: true, Order: completed}, nil
}

func (s *service) recordDecline(ctx context.Context, order *models.Order, decline *paypal.DeclineError) (*CaptureOutcome, error) {
	if err := s.repo.SetDeclineReason(ctx, order.ID, decline.Reason.String()); err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "failed to record decline reason", err)
	}
	s.metrics.IncCaptureOutcome("declined")

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"decline_reason": decline.Reason.String(),
	})
	s.logg.Warn(logCtx, "capture declined")

	return &CaptureOutcome{
		Captured:      false,
		Order:         order,
		DeclineReason: decline.Reason,
		DeclineMsg:    decline.Reason.UserMessage(),
	}, nil
}

// fulfill moves the order to completed and runs fulfillment in one
// transaction. The conditional status transition is the capture-once gate:
// a concurrent duplicate that lost the race gets a conflict, not a second
// fulfillment.
func (s *service) fulfill(ctx context.Context, order *models.Order, captureID string) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		won, err := repo.MarkCompleted(ctx, order.ID, captureID)
		if err != nil {
			return err
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already captured")
		}

		grants := make([]models.OwnershipGrant, 0, len(order.Lines))
		for _, line := range order.Lines {
			grants = append(grants, models.OwnershipGrant{
				ID:      uuid.New(),
				BuyerID: order.BuyerID,
				TrackID: line.TrackID,
				OrderID: order.ID,
			})
		}
		if err := s.grants.WithTx(tx).GrantAll(ctx, grants); err != nil {
			return err
		}

		if err := s.cartRepo.WithTx(tx).Clear(ctx, order.BuyerID); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]any{
			"order_id":    order.ID.String(),
			"total_cents": order.TotalCents,
			"line_count":  len(order.Lines),
		})
		if err := tx.Create(&models.Notification{
			ID:          uuid.New(),
			RecipientID: order.BuyerID,
			Kind:        enums.NotificationPurchaseConfirmation,
			Payload:     payload,
		}).Error; err != nil {
			// Purchase confirmation is fire-and-forget: never fail a
			// captured order over it.
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "failed to queue purchase confirmation", err)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: map[string]any{
				"order_id":    order.ID.String(),
				"buyer_id":    order.BuyerID.String(),
				"capture_id":  captureID,
				"total_cents": order.TotalCents,
			},
			Version: 1,
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalize order")
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	if buyerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and order id required")
	}
	order, err := s.repo.FindByIDAndBuyer(ctx, orderID, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	orders, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return orders, nil
}
