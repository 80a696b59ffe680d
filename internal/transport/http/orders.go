package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/app"
	"github.com/Nohrer/app-microserv-devsecops/internal/auth"
	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
)

// OrderAPI is what the order service router needs.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, in app.PlaceOrderInput) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	GetByID(ctx context.Context, id string) (domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error)
}

// OrderRoutes mounts the order service routes with their role guards.
func OrderRoutes(r chi.Router, svc OrderAPI, verifier auth.Verifier, logger *zap.Logger) {
	client := RequireRoles(verifier, logger, auth.RoleClient)
	admin := RequireRoles(verifier, logger, auth.RoleAdmin)

	r.Route("/api/orders", func(r chi.Router) {
		r.With(client).Post("/", HandlePlaceOrder(svc))
		r.With(client).Get("/my-orders", HandleMyOrders(svc))
		r.With(admin).Get("/", HandleListOrders(svc))
		r.With(admin).Get("/{id}", HandleGetOrder(svc))
		r.With(admin).Patch("/{id}/status", HandleUpdateStatus(svc))
	})
}

type placeOrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type placeOrderRequest struct {
	Items []placeOrderItem `json:"items"`
}

func (req placeOrderRequest) validationErrors() map[string]string {
	fields := make(map[string]string)
	if len(req.Items) == 0 {
		fields["items"] = "must not be empty"
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			fields[fmt.Sprintf("items[%d].productId", i)] = "must be a positive product id"
		}
		if item.Quantity <= 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be greater than zero"
		}
	}
	return fields
}

// HandlePlaceOrder returns the order placement endpoint. The caller's
// bearer token is relayed to the product service for the stock calls.
func HandlePlaceOrder(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeOrderRequest
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

		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			WriteError(w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
			return
		}

		items := make([]app.OrderItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, app.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		order, err := svc.PlaceOrder(r.Context(), app.PlaceOrderInput{
			Items:    items,
			UserID:   principal.Subject,
			Username: principal.Username,
			Token:    principal.Token,
		})
		if err != nil {
			writeOrderError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toOrderResponse(order))
	}
}

// HandleMyOrders lists the calling user's own orders.
func HandleMyOrders(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			WriteError(w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
			return
		}
		orders, err := svc.ListByUser(r.Context(), principal.Subject)
		if err != nil {
			writeOrderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponses(orders))
	}
}

func HandleListOrders(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.ListAll(r.Context())
		if err != nil {
			writeOrderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponses(orders))
	}
}

func HandleGetOrder(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeOrderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}

// HandleUpdateStatus advances an order through its lifecycle. The target
// status comes from the "status" query parameter.
func HandleUpdateStatus(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := domain.ParseOrderStatus(r.URL.Query().Get("status"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
		if err != nil {
			writeOrderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}

func writeOrderError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientStockError
	var upstream *domain.UpstreamError
	switch {
	case errors.As(err, &insufficient):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidID):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upstream):
		WriteError(w, http.StatusBadGateway, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
