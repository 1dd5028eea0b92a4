// Package gateway is the HTTP client for the external payment provider. The
// provider is the source of truth for whether money was captured; this client
// only transports its answers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domain "github.com/tiendalino/commerce-core/internal/domain/payment"
)

type Config struct {
	BaseURL     string
	AccessToken string
	// Sandbox approves captures locally without calling out; used in
	// development and tests of the surrounding wiring.
	Sandbox bool
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

type paymentBody struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
}

func (b paymentBody) capture() *domain.Capture {
	return &domain.Capture{
		ID:                b.ID.String(),
		Status:            domain.CaptureStatus(b.Status),
		StatusDetail:      b.StatusDetail,
		ExternalReference: b.ExternalReference,
	}
}

func (c *Client) CreateCapture(ctx context.Context, req domain.CaptureRequest) (*domain.Capture, error) {
	if req.Token == "" && !c.cfg.Sandbox {
		return nil, domain.ErrTokenRequired
	}
	if c.cfg.Sandbox {
		return &domain.Capture{
			ID:                fmt.Sprintf("SANDBOX-%d", time.Now().UnixMilli()),
			Status:            domain.CaptureApproved,
			StatusDetail:      "accredited",
			ExternalReference: req.ExternalReference,
		}, nil
	}

	installments := req.Installments
	if installments <= 0 {
		installments = 1
	}
	payload := map[string]any{
		"transaction_amount": req.Amount,
		"token":              req.Token,
		"description":        req.Description,
		"installments":       installments,
		"external_reference": req.ExternalReference,
		"payer":              map[string]string{"email": req.PayerEmail},
	}
	if req.PaymentMethodID != "" {
		payload["payment_method_id"] = req.PaymentMethodID
	}
	if req.IssuerID != "" {
		payload["issuer_id"] = req.IssuerID
	}

	var body paymentBody
	if err := c.do(ctx, http.MethodPost, "/v1/payments", payload, &body); err != nil {
		return nil, err
	}
	return body.capture(), nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*domain.Capture, error) {
	var body paymentBody
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &body); err != nil {
		return nil, err
	}
	return body.capture(), nil
}

func (c *Client) CreatePreference(ctx context.Context, req domain.PreferenceRequest) (*domain.Preference, error) {
	items := make([]map[string]any, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, map[string]any{
			"id":         it.ID,
			"title":      it.Title,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice,
		})
	}
	payload := map[string]any{
		"items": items,
		"payer": map[string]string{
			"name":  req.PayerName,
			"email": req.PayerEmail,
		},
		"external_reference": req.ExternalReference,
	}

	var body struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", payload, &body); err != nil {
		return nil, err
	}
	return &domain.Preference{ID: body.ID, InitPoint: body.InitPoint}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encode request: %w", domain.ErrGateway, err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", domain.ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrGateway, method, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrGateway, err)
	}
	return nil
}
