package app

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/clock"
	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
)

// ProductRepository is the persistence surface of the stock ledger. Quantity
// is mutated only through DecreaseStock/IncreaseStock; no caller may do a
// separate read-then-write.
type ProductRepository interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	GetActive(ctx context.Context, id int64) (domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) (domain.Product, error)
	Deactivate(ctx context.Context, id int64, updatedBy string) error
	DecreaseStock(ctx context.Context, id int64, quantity int) (bool, error)
	IncreaseStock(ctx context.Context, id int64, quantity int) error
}

type ProductService struct {
	repo   ProductRepository
	clock  clock.Clock
	logger *zap.Logger
}

func NewProductService(repo ProductRepository, clk clock.Clock, logger *zap.Logger) *ProductService {
	return &ProductService{repo: repo, clock: clk, logger: logger}
}

// CheckStock answers whether the requested quantity can be satisfied right
// now, with a price/name snapshot. It is a pure read: a positive answer is a
// point-in-time observation, not a reservation.
func (s *ProductService) CheckStock(ctx context.Context, productID int64, requested int) (domain.StockSnapshot, error) {
	if requested <= 0 {
		return domain.StockSnapshot{}, domain.ErrInvalidQuantity
	}

	product, err := s.repo.GetActive(ctx, productID)
	if err != nil {
		return domain.StockSnapshot{}, err
	}

	available := product.StockQuantity >= requested
	message := "Stock available"
	if !available {
		message = "Insufficient stock"
	}

	return domain.StockSnapshot{
		ProductID:         product.ID,
		ProductName:       product.Name,
		UnitPrice:         product.Price,
		AvailableQuantity: product.StockQuantity,
		RequestedQuantity: requested,
		Available:         available,
		Message:           message,
	}, nil
}

// DecreaseStock applies the atomic conditional decrement. A not-applied
// result from the ledger maps to InsufficientStockError; the follow-up read
// only enriches the error with current availability.
func (s *ProductService) DecreaseStock(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	applied, err := s.repo.DecreaseStock(ctx, productID, quantity)
	if err != nil {
		return err
	}
	if applied {
		s.logger.Info("stock decreased",
			zap.Int64("product_id", productID), zap.Int("quantity", quantity))
		return nil
	}

	product, err := s.repo.GetActive(ctx, productID)
	if err != nil {
		return err
	}
	return &domain.InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Available:   product.StockQuantity,
		Requested:   quantity,
	}
}

// IncreaseStock restocks a product. It has no availability precondition and
// is not a compensation path for failed reservations.
func (s *ProductService) IncreaseStock(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if err := s.repo.IncreaseStock(ctx, productID, quantity); err != nil {
		return err
	}
	s.logger.Info("stock increased",
		zap.Int64("product_id", productID), zap.Int("quantity", quantity))
	return nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListActive(ctx)
}

func (s *ProductService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.GetActive(ctx, id)
}

type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Actor         string
}

func (in ProductInput) validate() error {
	if in.Name == "" {
		return domain.ErrProductNameRequired
	}
	if !in.Price.IsPositive() {
		return domain.ErrInvalidPrice
	}
	if in.StockQuantity < 0 {
		return domain.ErrInvalidStock
	}
	return nil
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}

	now := s.clock.Now()
	product, err := s.repo.Create(ctx, domain.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     in.Actor,
		UpdatedBy:     in.Actor,
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product created",
		zap.Int64("product_id", product.ID), zap.String("created_by", in.Actor))
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.Update(ctx, domain.Product{
		ID:            id,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		UpdatedAt:     s.clock.Now(),
		UpdatedBy:     in.Actor,
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product updated",
		zap.Int64("product_id", id), zap.String("updated_by", in.Actor))
	return product, nil
}

// DeleteProduct soft-deletes; the row stays for order history.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64, actor string) error {
	if err := s.repo.Deactivate(ctx, id, actor); err != nil {
		return err
	}
	s.logger.Info("product deactivated",
		zap.Int64("product_id", id), zap.String("updated_by", actor))
	return nil
}
