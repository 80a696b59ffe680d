package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/clock"
	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
)

type fakeProductRepo struct {
	products map[int64]domain.Product
	nextID   int64
}

func newFakeProductRepo(products ...domain.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[int64]domain.Product), nextID: 1}
	for _, p := range products {
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) ListActive(_ context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range r.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) GetActive(_ context.Context, id int64) (domain.Product, error) {
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *fakeProductRepo) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	p.ID = r.nextID
	r.nextID++
	r.products[p.ID] = p
	return p, nil
}

func (r *fakeProductRepo) Update(_ context.Context, p domain.Product) (domain.Product, error) {
	existing, ok := r.products[p.ID]
	if !ok || !existing.IsActive {
		return domain.Product{}, domain.ErrProductNotFound
	}
	p.IsActive = existing.IsActive
	p.CreatedAt = existing.CreatedAt
	p.CreatedBy = existing.CreatedBy
	r.products[p.ID] = p
	return p, nil
}

func (r *fakeProductRepo) Deactivate(_ context.Context, id int64, updatedBy string) error {
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return domain.ErrProductNotFound
	}
	p.IsActive = false
	p.UpdatedBy = updatedBy
	r.products[id] = p
	return nil
}

func (r *fakeProductRepo) DecreaseStock(_ context.Context, id int64, quantity int) (bool, error) {
	p, ok := r.products[id]
	if !ok || !p.IsActive || p.StockQuantity < quantity {
		return false, nil
	}
	p.StockQuantity -= quantity
	r.products[id] = p
	return true, nil
}

func (r *fakeProductRepo) IncreaseStock(_ context.Context, id int64, quantity int) error {
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return domain.ErrProductNotFound
	}
	p.StockQuantity += quantity
	r.products[id] = p
	return nil
}

func TestProductService_CheckStock(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	price := decimal.RequireFromString("10.00")
	repo := newFakeProductRepo(domain.Product{
		ID: 7, Name: "Widget", Price: price, StockQuantity: 3, IsActive: true,
	})
	svc := NewProductService(repo, clock.NewFixed(now), zap.NewNop())

	t.Run("available", func(t *testing.T) {
		snapshot, err := svc.CheckStock(context.Background(), 7, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !snapshot.Available || snapshot.Message != "Stock available" {
			t.Fatalf("expected available snapshot, got %+v", snapshot)
		}
		if snapshot.AvailableQuantity != 3 || snapshot.RequestedQuantity != 2 {
			t.Fatalf("unexpected quantities: %+v", snapshot)
		}
		if !snapshot.UnitPrice.Equal(price) {
			t.Fatalf("expected unit price %s, got %s", price, snapshot.UnitPrice)
		}
	})

	t.Run("insufficient", func(t *testing.T) {
		snapshot, err := svc.CheckStock(context.Background(), 7, 4)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if snapshot.Available || snapshot.Message != "Insufficient stock" {
			t.Fatalf("expected insufficient snapshot, got %+v", snapshot)
		}
	})

	t.Run("check does not mutate stock", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if _, err := svc.CheckStock(context.Background(), 7, 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if repo.products[7].StockQuantity != 3 {
			t.Fatalf("check must not reserve stock")
		}
	})

	t.Run("invalid quantity", func(t *testing.T) {
		if _, err := svc.CheckStock(context.Background(), 7, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		if _, err := svc.CheckStock(context.Background(), 99, 1); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	})
}

func TestProductService_Stock(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	price := decimal.RequireFromString("5.50")

	t.Run("decrease applies when stock suffices", func(t *testing.T) {
		repo := newFakeProductRepo(domain.Product{
			ID: 1, Name: "Widget", Price: price, StockQuantity: 5, IsActive: true,
		})
		svc := NewProductService(repo, clock.NewFixed(now), zap.NewNop())

		if err := svc.DecreaseStock(context.Background(), 1, 3); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if repo.products[1].StockQuantity != 2 {
			t.Fatalf("expected 2 remaining, got %d", repo.products[1].StockQuantity)
		}
	})

	t.Run("decrease not applied maps to enriched conflict", func(t *testing.T) {
		repo := newFakeProductRepo(domain.Product{
			ID: 1, Name: "Widget", Price: price, StockQuantity: 1, IsActive: true,
		})
		svc := NewProductService(repo, clock.NewFixed(now), zap.NewNop())

		err := svc.DecreaseStock(context.Background(), 1, 2)
		var insufficient *domain.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if insufficient.ProductName != "Widget" || insufficient.Available != 1 || insufficient.Requested != 2 {
			t.Fatalf("unexpected detail: %+v", insufficient)
		}
		if repo.products[1].StockQuantity != 1 {
			t.Fatalf("stock must be unchanged after rejected decrement")
		}
	})

	t.Run("increase restocks", func(t *testing.T) {
		repo := newFakeProductRepo(domain.Product{
			ID: 1, Name: "Widget", Price: price, StockQuantity: 0, IsActive: true,
		})
		svc := NewProductService(repo, clock.NewFixed(now), zap.NewNop())

		if err := svc.IncreaseStock(context.Background(), 1, 10); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if repo.products[1].StockQuantity != 10 {
			t.Fatalf("expected 10, got %d", repo.products[1].StockQuantity)
		}
	})

	t.Run("non-positive quantities rejected", func(t *testing.T) {
		svc := NewProductService(newFakeProductRepo(), clock.NewFixed(now), zap.NewNop())
		if err := svc.DecreaseStock(context.Background(), 1, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
		if err := svc.IncreaseStock(context.Background(), 1, -1); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestProductService_Catalog(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	price := decimal.RequireFromString("19.99")

	t.Run("create validates and stamps audit fields", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := NewProductService(repo, clock.NewFixed(now), zap.NewNop())

		product, err := svc.CreateProduct(context.Background(), ProductInput{
			Name: "Widget", Price: price, StockQuantity: 4, Actor: "admin",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if product.ID == 0 || !product.IsActive {
			t.Fatalf("unexpected product: %+v", product)
		}
		if product.CreatedBy != "admin" || !product.CreatedAt.Equal(now) {
			t.Fatalf("audit fields not stamped: %+v", product)
		}

		cases := []struct {
			name string
			in   ProductInput
			want error
		}{
			{"blank name", ProductInput{Price: price}, domain.ErrProductNameRequired},
			{"zero price", ProductInput{Name: "X"}, domain.ErrInvalidPrice},
			{"negative stock", ProductInput{Name: "X", Price: price, StockQuantity: -1}, domain.ErrInvalidStock},
		}
		for _, tc := range cases {
			if _, err := svc.CreateProduct(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
			}
		}
	})

	t.Run("delete deactivates and hides the product", func(t *testing.T) {
		repo := newFakeProductRepo(domain.Product{
			ID: 1, Name: "Widget", Price: price, StockQuantity: 4, IsActive: true,
		})
		svc := NewProductService(repo, clock.NewFixed(now), zap.NewNop())

		if err := svc.DeleteProduct(context.Background(), 1, "admin"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := svc.GetProduct(context.Background(), 1); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("deactivated product must not be visible, got %v", err)
		}
		products, err := svc.ListProducts(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(products) != 0 {
			t.Fatalf("deactivated product must not be listed")
		}
	})
}
