package app

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/clock"
	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
)

// OrderRepository is the order store. Orders are created whole (with items)
// and mutated afterwards only through status transitions.
type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order domain.Order) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	GetByID(ctx context.Context, id string) (domain.Order, error)
	GetByIDForUpdate(ctx context.Context, id string) (domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// ProductGateway is the coordinator's view of the product service. The
// caller's credential travels explicitly with every call so the downstream
// authorization layer can re-check it.
type ProductGateway interface {
	CheckStock(ctx context.Context, token string, productID int64, quantity int) (domain.StockSnapshot, error)
	DecreaseStock(ctx context.Context, token string, productID int64, quantity int) error
}

type OrderService struct {
	repo     OrderRepository
	products ProductGateway
	clock    clock.Clock
	logger   *zap.Logger
}

func NewOrderService(repo OrderRepository, products ProductGateway, clk clock.Clock, logger *zap.Logger) *OrderService {
	return &OrderService{repo: repo, products: products, clock: clk, logger: logger}
}

type OrderItemInput struct {
	ProductID int64
	Quantity  int
}

type PlaceOrderInput struct {
	Items    []OrderItemInput
	UserID   string
	Username string
	// Token is the caller's Authorization header value, forwarded unchanged
	// on every product-service call.
	Token string
}

// PlaceOrder drives the check → build → reserve → commit sequence.
//
// Availability is checked for every item before any mutation; a negative
// check aborts with no stock touched and no order built. Decrements then run
// sequentially in input order, each one an independent atomic mutation at
// the ledger. When a decrement fails partway, the workflow stops: the order
// is not persisted, but items decremented in earlier iterations are not
// rolled back. Callers see InsufficientStockError for the failing item and
// must know the order was not created even though some inventory may already
// be reduced.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	if len(in.Items) == 0 {
		return domain.Order{}, domain.ErrEmptyOrder
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return domain.Order{}, domain.ErrInvalidQuantity
		}
	}

	s.logger.Info("placing order",
		zap.String("user_id", in.UserID),
		zap.String("username", in.Username),
		zap.Int("items", len(in.Items)))

	snapshots := make([]domain.StockSnapshot, 0, len(in.Items))
	for _, item := range in.Items {
		snapshot, err := s.products.CheckStock(ctx, in.Token, item.ProductID, item.Quantity)
		if err != nil {
			return domain.Order{}, err
		}
		if !snapshot.Available {
			s.logger.Warn("availability check failed",
				zap.Int64("product_id", item.ProductID),
				zap.Int("available", snapshot.AvailableQuantity),
				zap.Int("requested", item.Quantity))
			return domain.Order{}, &domain.InsufficientStockError{
				ProductID:   snapshot.ProductID,
				ProductName: snapshot.ProductName,
				Available:   snapshot.AvailableQuantity,
				Requested:   snapshot.RequestedQuantity,
			}
		}
		snapshots = append(snapshots, snapshot)
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	for i, item := range in.Items {
		items = append(items, domain.NewOrderItem(snapshots[i], item.Quantity))
	}

	order := domain.Order{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Username:    in.Username,
		Status:      domain.OrderStatusPending,
		TotalAmount: domain.Total(items),
		OrderDate:   s.clock.Now(),
		Items:       items,
	}

	for _, item := range in.Items {
		if err := s.products.DecreaseStock(ctx, in.Token, item.ProductID, item.Quantity); err != nil {
			s.logger.Warn("reservation failed, aborting order",
				zap.String("order_id", order.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			return domain.Order{}, err
		}
	}

	order.Status = domain.OrderStatusConfirmed
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("total", order.TotalAmount.String()))
	return order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListAll(ctx)
}

func (s *OrderService) GetByID(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus applies an administrative status transition under a row lock.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(status) {
			return domain.ErrInvalidTransition
		}
		return s.repo.UpdateStatus(txCtx, id, status)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.Info("order status updated",
		zap.String("order_id", id), zap.String("status", string(status)))
	return s.repo.GetByID(ctx, id)
}
