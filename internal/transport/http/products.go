package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/app"
	"github.com/Nohrer/app-microserv-devsecops/internal/auth"
	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
)

// StockChecker is the minimal interface needed for the check-stock endpoint.
type StockChecker interface {
	CheckStock(ctx context.Context, productID int64, requested int) (domain.StockSnapshot, error)
}

// StockMutator is the minimal interface needed for the decrement/increment
// endpoints.
type StockMutator interface {
	DecreaseStock(ctx context.Context, productID int64, quantity int) error
	IncreaseStock(ctx context.Context, productID int64, quantity int) error
}

// CatalogService is the minimal interface needed for catalog endpoints.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	CreateProduct(ctx context.Context, in app.ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in app.ProductInput) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64, actor string) error
}

// ProductAPI is what the product service router needs in full.
type ProductAPI interface {
	StockChecker
	StockMutator
	CatalogService
}

// ProductRoutes mounts the product service routes with their role guards.
func ProductRoutes(r chi.Router, svc ProductAPI, verifier auth.Verifier, logger *zap.Logger) {
	both := RequireRoles(verifier, logger, auth.RoleAdmin, auth.RoleClient)
	admin := RequireRoles(verifier, logger, auth.RoleAdmin)

	r.Route("/api/products", func(r chi.Router) {
		r.With(both).Get("/", HandleListProducts(svc))
		r.With(both).Get("/{id}", HandleGetProduct(svc))
		r.With(admin).Post("/", HandleCreateProduct(svc))
		r.With(admin).Put("/{id}", HandleUpdateProduct(svc))
		r.With(admin).Delete("/{id}", HandleDeleteProduct(svc))

		r.With(both).Post("/check-stock", HandleCheckStock(svc))
		r.With(both).Post("/{id}/decrease-stock", HandleDecreaseStock(svc))
		r.With(admin).Post("/{id}/increase-stock", HandleIncreaseStock(svc))
	})
}

type checkStockRequest struct {
	ProductID         int64 `json:"productId"`
	RequestedQuantity int   `json:"requestedQuantity"`
}

// HandleCheckStock returns the availability oracle endpoint.
func HandleCheckStock(svc StockChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkStockRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		snapshot, err := svc.CheckStock(r.Context(), req.ProductID, req.RequestedQuantity)
		if err != nil {
			writeProductError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSnapshotResponse(snapshot))
	}
}

// HandleDecreaseStock returns the conditional decrement endpoint.
func HandleDecreaseStock(svc StockMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productIDFromPath(w, r)
		if !ok {
			return
		}
		quantity, ok := quantityFromQuery(w, r)
		if !ok {
			return
		}

		if err := svc.DecreaseStock(r.Context(), id, quantity); err != nil {
			writeProductError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HandleIncreaseStock returns the restock endpoint.
func HandleIncreaseStock(svc StockMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productIDFromPath(w, r)
		if !ok {
			return
		}
		quantity, ok := quantityFromQuery(w, r)
		if !ok {
			return
		}

		if err := svc.IncreaseStock(r.Context(), id, quantity); err != nil {
			writeProductError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleListProducts(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListProducts(r.Context())
		if err != nil {
			writeProductError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProductResponses(products))
	}
}

func HandleGetProduct(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productIDFromPath(w, r)
		if !ok {
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			writeProductError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(product))
	}
}

type productRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
}

func (req productRequest) validationErrors() map[string]string {
	fields := make(map[string]string)
	if req.Name == "" {
		fields["name"] = "must not be blank"
	}
	if !req.Price.IsPositive() {
		fields["price"] = "must be greater than zero"
	}
	if req.StockQuantity < 0 {
		fields["stockQuantity"] = "must not be negative"
	}
	return fields
}

func HandleCreateProduct(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if fields := req.validationErrors(); len(fields) > 0 {
			WriteValidationError(w, fields)
			return
		}

		principal, _ := auth.PrincipalFrom(r.Context())
		product, err := svc.CreateProduct(r.Context(), app.ProductInput{
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			StockQuantity: req.StockQuantity,
			Actor:         principal.Username,
		})
		if err != nil {
			writeProductError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProductResponse(product))
	}
}

func HandleUpdateProduct(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productIDFromPath(w, r)
		if !ok {
			return
		}
		var req productRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if fields := req.validationErrors(); len(fields) > 0 {
			WriteValidationError(w, fields)
			return
		}

		principal, _ := auth.PrincipalFrom(r.Context())
		product, err := svc.UpdateProduct(r.Context(), id, app.ProductInput{
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			StockQuantity: req.StockQuantity,
			Actor:         principal.Username,
		})
		if err != nil {
			writeProductError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(product))
	}
}

func HandleDeleteProduct(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productIDFromPath(w, r)
		if !ok {
			return
		}
		principal, _ := auth.PrincipalFrom(r.Context())
		if err := svc.DeleteProduct(r.Context(), id, principal.Username); err != nil {
			writeProductError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func productIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, domain.ErrInvalidID.Error())
		return 0, false
	}
	return id, true
}

func quantityFromQuery(w http.ResponseWriter, r *http.Request) (int, bool) {
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity <= 0 {
		WriteError(w, http.StatusBadRequest, domain.ErrInvalidQuantity.Error())
		return 0, false
	}
	return quantity, true
}

func writeProductError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &insufficient):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrProductNameRequired),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidStock),
		errors.Is(err, domain.ErrInvalidID):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
