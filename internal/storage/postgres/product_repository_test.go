package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
	"github.com/Nohrer/app-microserv-devsecops/internal/testutil"
)

func TestProductRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewProductRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	price := decimal.RequireFromString("10.00")

	t.Run("Create and GetActive round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		created, err := repo.Create(ctx, domain.Product{
			Name:          "Widget",
			Description:   "a widget",
			Price:         price,
			StockQuantity: 3,
			CreatedAt:     time.Now().UTC(),
			CreatedBy:     "admin",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID == 0 || !created.IsActive {
			t.Fatalf("unexpected created product: %+v", created)
		}

		got, err := repo.GetActive(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "Widget" || got.StockQuantity != 3 {
			t.Fatalf("unexpected product: %+v", got)
		}
		if !got.Price.Equal(price) {
			t.Fatalf("expected price %s, got %s", price, got.Price)
		}

		if _, err := repo.GetActive(ctx, created.ID+1000); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	})

	t.Run("Deactivate hides the product but keeps the row", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertProduct(t, ctx, pool, "Widget", price, 3)

		if err := repo.Deactivate(ctx, id, "admin"); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		if _, err := repo.GetActive(ctx, id); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound after deactivate, got %v", err)
		}
		products, err := repo.ListActive(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(products) != 0 {
			t.Fatalf("deactivated product must not be listed")
		}

		var count int
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE id = $1`, id).Scan(&count); err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 1 {
			t.Fatalf("row must survive deactivation")
		}

		if err := repo.Deactivate(ctx, id, "admin"); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("second deactivate must report not found, got %v", err)
		}
	})

	t.Run("DecreaseStock applies conditionally", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertProduct(t, ctx, pool, "Widget", price, 3)

		applied, err := repo.DecreaseStock(ctx, id, 2)
		if err != nil {
			t.Fatalf("decrease: %v", err)
		}
		if !applied {
			t.Fatalf("expected decrement applied")
		}

		applied, err = repo.DecreaseStock(ctx, id, 2)
		if err != nil {
			t.Fatalf("decrease: %v", err)
		}
		if applied {
			t.Fatalf("decrement must not apply with 1 remaining")
		}

		got, err := repo.GetActive(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.StockQuantity != 1 {
			t.Fatalf("expected 1 remaining, got %d", got.StockQuantity)
		}

		applied, err = repo.DecreaseStock(ctx, id+1000, 1)
		if err != nil {
			t.Fatalf("decrease: %v", err)
		}
		if applied {
			t.Fatalf("decrement on unknown product must not apply")
		}
	})

	t.Run("IncreaseStock restocks and reports unknown products", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertProduct(t, ctx, pool, "Widget", price, 0)

		if err := repo.IncreaseStock(ctx, id, 5); err != nil {
			t.Fatalf("increase: %v", err)
		}
		got, err := repo.GetActive(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.StockQuantity != 5 {
			t.Fatalf("expected 5, got %d", got.StockQuantity)
		}

		if err := repo.IncreaseStock(ctx, id+1000, 5); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	})

	t.Run("concurrent decrements never oversell", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertProduct(t, ctx, pool, "Widget", price, 5)

		const workers = 10
		applied := make([]bool, workers)
		var g errgroup.Group
		for i := 0; i < workers; i++ {
			i := i
			g.Go(func() error {
				ok, err := repo.DecreaseStock(ctx, id, 1)
				applied[i] = ok
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("decrease: %v", err)
		}

		var wins int
		for _, ok := range applied {
			if ok {
				wins++
			}
		}
		if wins != 5 {
			t.Fatalf("expected exactly 5 applied decrements, got %d", wins)
		}
		got, err := repo.GetActive(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.StockQuantity != 0 {
			t.Fatalf("expected 0 remaining, got %d", got.StockQuantity)
		}
	})
}
