package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
)

// money renders with a fixed two-decimal scale; decimal.Decimal alone
// drops trailing zeros when marshalled.
type money struct {
	decimal.Decimal
}

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

type productResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         money     `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         money{p.Price},
		StockQuantity: p.StockQuantity,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

type stockSnapshotResponse struct {
	ProductID         int64  `json:"productId"`
	ProductName       string `json:"productName"`
	UnitPrice         money  `json:"unitPrice"`
	AvailableQuantity int    `json:"availableQuantity"`
	RequestedQuantity int    `json:"requestedQuantity"`
	IsAvailable       bool   `json:"isAvailable"`
	Message           string `json:"message"`
}

func toSnapshotResponse(s domain.StockSnapshot) stockSnapshotResponse {
	return stockSnapshotResponse{
		ProductID:         s.ProductID,
		ProductName:       s.ProductName,
		UnitPrice:         money{s.UnitPrice},
		AvailableQuantity: s.AvailableQuantity,
		RequestedQuantity: s.RequestedQuantity,
		IsAvailable:       s.Available,
		Message:           s.Message,
	}
}

type orderItemResponse struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   money  `json:"unitPrice"`
	Subtotal    money  `json:"subtotal"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"userId"`
	Username    string              `json:"username"`
	Status      string              `json:"status"`
	TotalAmount money               `json:"totalAmount"`
	OrderDate   time.Time           `json:"orderDate"`
	Items       []orderItemResponse `json:"items"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   money{item.UnitPrice},
			Subtotal:    money{item.Subtotal},
		})
	}
	return orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Username:    o.Username,
		Status:      string(o.Status),
		TotalAmount: money{o.TotalAmount},
		OrderDate:   o.OrderDate,
		Items:       items,
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}
