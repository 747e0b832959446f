// Package crm implements catalog.OrderSink against the LP-CRM order API.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	"github.com/blinovmaxim/TgBotStore/internal/metrics"
)

// Config controls the CRM client.
type Config struct {
	APIKey     string
	Domain     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// Client submits orders to LP-CRM with bounded retry.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("crm api key is required")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("crm domain is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Submit creates the order, retrying transient failures a handful of times
// with a short backoff.
func (c *Client) Submit(ctx context.Context, order catalog.Order) error {
	orderID := uuid.NewString()
	form := url.Values{
		"key":                {c.cfg.APIKey},
		"order_id":           {orderID},
		"product_name":       {order.ProductName},
		"product_price":      {order.ProductPrice.String()},
		"client_name":        {order.ClientName},
		"phone":              {order.Phone},
		"nova_poshta_office": {order.PickupPoint},
		"source":             {"TG"},
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.post(ctx, form); err != nil {
			lastErr = err
			c.logger.Warn("order submit attempt failed",
				zap.String("order_id", orderID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			select {
			case <-ctx.Done():
				metrics.ObserveOrder("canceled")
				return fmt.Errorf("order submit canceled: %w", ctx.Err())
			case <-time.After(c.cfg.Backoff):
			}
			continue
		}
		metrics.ObserveOrder("ok")
		c.logger.Info("order submitted",
			zap.String("order_id", orderID),
			zap.String("product", order.ProductName))
		return nil
	}
	metrics.ObserveOrder("failed")
	return fmt.Errorf("order submit failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, form url.Values) error {
	endpoint := fmt.Sprintf("http://%s/api/addNewOrder.html", c.cfg.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("order request: unexpected status %d", resp.StatusCode)
	}
	var result struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode order response: %w", err)
	}
	if result.Error != "" {
		return fmt.Errorf("order rejected: %s", result.Error)
	}
	return nil
}
