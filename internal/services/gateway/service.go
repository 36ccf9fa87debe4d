// Package gateway isolates all knowledge of the external payment
// processor's API. It holds no state beyond configuration and never
// touches the ledger store.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"qirsh/internal/config"

	"github.com/google/uuid"
)

// Service is the gateway adapter. Credentials arrive through the config
// struct at construction; nothing here reads the environment.
type Service struct {
	cfg    config.GatewayConfig
	client *http.Client
}

// NewService creates a gateway adapter from explicit configuration.
func NewService(cfg config.GatewayConfig) *Service {
	return &Service{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type intentionPayload struct {
	AmountCents      int64             `json:"amount_cents"`
	Currency         string            `json:"currency"`
	IntegrationID    string            `json:"integration_id"`
	SpecialReference string            `json:"special_reference"`
	BillingData      map[string]string `json:"billing_data"`
}

type intentionResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Detail      string `json:"detail"`
}

// CreateIntention initiates an external payment. It is never retried
// here: a duplicate intention risks a duplicate external charge, so a
// transport failure is surfaced and the caller retries explicitly.
func (s *Service) CreateIntention(ctx context.Context, req IntentionRequest) (*IntentionResult, error) {
	payload := intentionPayload{
		AmountCents:      toCents(req.Amount),
		Currency:         req.Currency,
		IntegrationID:    s.integrationFor(req.Method),
		SpecialReference: req.CorrelationID,
		BillingData: map[string]string{
			"email":        req.Customer.Email,
			"name":         req.Customer.DisplayName,
			"phone_number": req.Customer.Phone,
		},
	}

	var resp intentionResponse
	if err := s.post(ctx, "create-intention", "/intention/", payload, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &Error{Op: "create-intention", Message: "response missing intention id"}
	}
	return &IntentionResult{ExternalID: resp.ID, CheckoutURL: resp.CheckoutURL}, nil
}

type statusResponse struct {
	Success      bool   `json:"success"`
	Pending      bool   `json:"pending"`
	AmountCents  int64  `json:"amount_cents"`
	ErrorMessage string `json:"data_message"`
}

// QueryStatus polls the gateway for the current truth about a
// transaction. Reads are idempotent, so a single retry is allowed on
// transport failure.
func (s *Service) QueryStatus(ctx context.Context, externalID string) (*StatusResult, error) {
	var resp statusResponse
	err := s.get(ctx, "query-status", "/transactions/"+externalID, &resp)
	if err != nil {
		if _, ok := err.(*Error); ok && ctx.Err() == nil {
			err = s.get(ctx, "query-status", "/transactions/"+externalID, &resp)
		}
		if err != nil {
			return nil, err
		}
	}
	return &StatusResult{
		Success:      resp.Success,
		Pending:      resp.Pending,
		AmountCents:  resp.AmountCents,
		ErrorMessage: resp.ErrorMessage,
	}, nil
}

type refundResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// Refund returns funds for a settled gateway transaction.
func (s *Service) Refund(ctx context.Context, externalID string, amountCents int64) (*RefundResult, error) {
	payload := map[string]interface{}{
		"transaction_id": externalID,
		"amount_cents":   amountCents,
	}
	var resp refundResponse
	if err := s.post(ctx, "refund", "/refund/", payload, &resp); err != nil {
		return nil, err
	}
	return &RefundResult{Success: resp.Success, RefundID: resp.ID}, nil
}

// Void cancels an authorization that has not settled.
func (s *Service) Void(ctx context.Context, externalID string) (bool, error) {
	payload := map[string]interface{}{"transaction_id": externalID}
	var resp refundResponse
	if err := s.post(ctx, "void", "/void/", payload, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// ParseCallback decodes a raw webhook payload into the fields the engine
// dispatches on.
func (s *Service) ParseCallback(raw []byte) (*Callback, error) {
	var envelope struct {
		Obj map[string]interface{} `json:"obj"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Obj == nil {
		return nil, ErrMalformedCallback
	}

	cb := &Callback{fields: envelope.Obj}
	cb.ExternalID = stringField(envelope.Obj, "id")
	cb.Success = boolField(envelope.Obj, "success")
	cb.Pending = boolField(envelope.Obj, "pending")
	cb.ErrorMessage = stringField(envelope.Obj, "data_message")
	if v, ok := envelope.Obj["amount_cents"].(float64); ok {
		cb.AmountCents = int64(v)
	}
	if order, ok := envelope.Obj["order"].(map[string]interface{}); ok {
		cb.OrderReference = stringField(order, "merchant_order_id")
	}
	if cb.OrderReference == "" {
		return nil, ErrMalformedCallback
	}
	return cb, nil
}

// integrationFor routes a payment method to its upstream channel, falling
// back to the card channel when the specialized one is unconfigured.
func (s *Service) integrationFor(method string) string {
	var id string
	switch method {
	case MethodWallet:
		id = s.cfg.WalletIntegrationID
	case MethodKiosk:
		id = s.cfg.KioskIntegrationID
	case MethodCard:
		id = s.cfg.CardIntegrationID
	}
	if id == "" {
		if method != MethodCard {
			log.Printf("gateway: no integration configured for method %q, falling back to card", method)
		}
		id = s.cfg.CardIntegrationID
	}
	return id
}

func (s *Service) post(ctx context.Context, op, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+s.cfg.APIKey)
	req.Header.Set("X-Request-Id", uuid.NewString())
	return s.do(op, req, out)
}

func (s *Service) get(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+path, nil)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Token "+s.cfg.APIKey)
	return s.do(op, req, out)
}

func (s *Service) do(op string, req *http.Request, out interface{}) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: string(body)}
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &Error{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
		}
	}
	return nil
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func boolField(m map[string]interface{}, key string) bool {
	v, _ := m[key].(bool)
	return v
}
