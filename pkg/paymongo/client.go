package paymongo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hostelhub/hostelhub-backend/pkg/config"
)

// Client talks to the PayMongo REST API.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// PaymentIntent is the subset of the payment intent resource we consume.
type PaymentIntent struct {
	ID        string
	Status    string
	ClientKey string
}

// NewClient builds a PayMongo API client from configuration.
func NewClient(cfg config.PayMongoConfig) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("paymongo: secret key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("paymongo: base url is required")
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.SecretKey+":")),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// CreatePaymentIntent opens a payment intent for the given amount, tagging it
// with metadata so webhook deliveries can be routed back to the booking.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, description string, metadata map[string]string) (*PaymentIntent, error) {
	// PayMongo amounts are integer centavos.
	cents := amount.Shift(2).IntPart()
	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"amount":                 cents,
				"currency":               currency,
				"description":            description,
				"payment_method_allowed": []string{"card", "gcash", "paymaya"},
				"metadata":               metadata,
			},
		},
	}
	return c.postIntent(ctx, "/payment_intents", body)
}

func (c *Client) postIntent(ctx context.Context, path string, body map[string]any) (*PaymentIntent, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("paymongo: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("paymongo: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*PaymentIntent, error) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paymongo: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("paymongo: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paymongo: %s returned %d: %s", req.URL.Path, resp.StatusCode, firstAPIError(payload))
	}

	var decoded struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Status    string `json:"status"`
				ClientKey string `json:"client_key"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("paymongo: decoding response: %w", err)
	}

	return &PaymentIntent{
		ID:        decoded.Data.ID,
		Status:    decoded.Data.Attributes.Status,
		ClientKey: decoded.Data.Attributes.ClientKey,
	}, nil
}

func firstAPIError(payload []byte) string {
	var body struct {
		Errors []struct {
			Code   string `json:"code"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Errors) == 0 {
		return "unknown error"
	}
	return fmt.Sprintf("%s: %s", body.Errors[0].Code, body.Errors[0].Detail)
}
