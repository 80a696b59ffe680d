package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/app"
	"github.com/Nohrer/app-microserv-devsecops/internal/auth"
	"github.com/Nohrer/app-microserv-devsecops/internal/clock"
	"github.com/Nohrer/app-microserv-devsecops/internal/productclient"
	"github.com/Nohrer/app-microserv-devsecops/internal/storage/postgres"
	"github.com/Nohrer/app-microserv-devsecops/internal/testutil"
)

// Exercises the whole placement path: the order handler drives the real
// coordinator, which calls a real product service over HTTP, which mutates
// the ledger in Postgres.
func TestPlaceOrder_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	logger := zap.NewNop()
	verifier := auth.NewHMACVerifier(testSecret)

	productRepo := postgres.NewProductRepository(pool)
	productSvc := app.NewProductService(productRepo, clock.NewSystem(), logger)
	productMux := chi.NewRouter()
	ProductRoutes(productMux, productSvc, verifier, logger)
	productBackend := httptest.NewServer(productMux)
	defer productBackend.Close()

	products, err := productclient.New(productBackend.URL)
	if err != nil {
		t.Fatalf("product client: %v", err)
	}

	orderRepo := postgres.NewOrderRepository(pool)
	orderSvc := app.NewOrderService(orderRepo, products, clock.NewSystem(), logger)
	orderMux := chi.NewRouter()
	OrderRoutes(orderMux, orderSvc, verifier, logger)

	price := decimal.RequireFromString("10.00")
	productID := testutil.InsertProduct(t, ctx, pool, "Widget", price, 3)

	clientToken := "Bearer " + testutil.SignToken(t, testSecret, "user-1", "alice", []string{"client"})

	body := `{"items":[{"productId":` + strconv.FormatInt(productID, 10) + `,"quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	req.Header.Set("Authorization", clientToken)
	rec := httptest.NewRecorder()
	orderMux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != "CONFIRMED" || created.Username != "alice" {
		t.Fatalf("unexpected order: %+v", created)
	}
	if got := created.TotalAmount.StringFixed(2); got != "20.00" {
		t.Fatalf("expected total 20.00, got %s", got)
	}

	var remaining int
	if err := pool.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&remaining); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 unit remaining, got %d", remaining)
	}

	// A second order for 2 units cannot be satisfied with 1 left; the
	// rejection carries the live availability.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	req2.Header.Set("Authorization", clientToken)
	orderMux.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec2.Code, rec2.Body.String())
	}
	var conflict ErrorBody
	if err := json.NewDecoder(rec2.Body).Decode(&conflict); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(conflict.Message, "available 1, requested 2") {
		t.Fatalf("expected availability detail, got %q", conflict.Message)
	}

	// The failed attempt must not have touched the ledger or created rows.
	if err := pool.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&remaining); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("failed order must not change stock, got %d", remaining)
	}
	var orderCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("expected 1 order, got %d", orderCount)
	}

	// The buyer sees the confirmed order under my-orders.
	rec3 := httptest.NewRecorder()
	req3 := httptest.NewRequest(http.MethodGet, "/api/orders/my-orders", nil)
	req3.Header.Set("Authorization", clientToken)
	orderMux.ServeHTTP(rec3, req3)

	if rec3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec3.Code)
	}
	var mine []orderResponse
	if err := json.NewDecoder(rec3.Body).Decode(&mine); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", mine)
	}
}
