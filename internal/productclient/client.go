// Package productclient is the order service's HTTP client for the product
// service. Every call carries the caller's original Authorization header and
// a per-call deadline; downstream failures are mapped to typed domain errors
// so the coordinator can tell "product missing" from "transient failure".
package productclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
)

const defaultTimeout = 5 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

type Option func(*Client)

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type checkStockRequest struct {
	ProductID         int64 `json:"productId"`
	RequestedQuantity int   `json:"requestedQuantity"`
}

type stockSnapshotResponse struct {
	ProductID         int64           `json:"productId"`
	ProductName       string          `json:"productName"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	AvailableQuantity int             `json:"availableQuantity"`
	RequestedQuantity int             `json:"requestedQuantity"`
	IsAvailable       bool            `json:"isAvailable"`
	Message           string          `json:"message"`
}

// CheckStock asks the availability oracle for a snapshot.
func (c *Client) CheckStock(ctx context.Context, token string, productID int64, quantity int) (domain.StockSnapshot, error) {
	payload, err := json.Marshal(checkStockRequest{ProductID: productID, RequestedQuantity: quantity})
	if err != nil {
		return domain.StockSnapshot{}, err
	}

	status, body, err := c.post(ctx, token, c.baseURL+"/api/products/check-stock", payload)
	if err != nil {
		return domain.StockSnapshot{}, &domain.UpstreamError{Err: err}
	}

	switch status {
	case http.StatusOK:
		var dto stockSnapshotResponse
		if err := json.Unmarshal(body, &dto); err != nil {
			return domain.StockSnapshot{}, &domain.UpstreamError{Status: status, Err: err}
		}
		return domain.StockSnapshot{
			ProductID:         dto.ProductID,
			ProductName:       dto.ProductName,
			UnitPrice:         dto.UnitPrice,
			AvailableQuantity: dto.AvailableQuantity,
			RequestedQuantity: dto.RequestedQuantity,
			Available:         dto.IsAvailable,
			Message:           dto.Message,
		}, nil
	case http.StatusNotFound:
		return domain.StockSnapshot{}, domain.ErrProductNotFound
	default:
		return domain.StockSnapshot{}, upstreamError(status)
	}
}

// DecreaseStock invokes the ledger's conditional decrement for one item.
func (c *Client) DecreaseStock(ctx context.Context, token string, productID int64, quantity int) error {
	target := fmt.Sprintf("%s/api/products/%d/decrease-stock?quantity=%d", c.baseURL, productID, quantity)

	status, body, err := c.post(ctx, token, target, nil)
	if err != nil {
		return &domain.UpstreamError{Err: err}
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrProductNotFound
	case http.StatusConflict:
		stockErr := &domain.InsufficientStockError{ProductID: productID, Requested: quantity}
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &detail); err == nil {
			stockErr.Message = detail.Message
		}
		return stockErr
	default:
		return upstreamError(status)
	}
}

func (c *Client) post(ctx context.Context, token, target string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func upstreamError(status int) error {
	return &domain.UpstreamError{
		Status: status,
		Err:    fmt.Errorf("product service returned status %d", status),
	}
}
