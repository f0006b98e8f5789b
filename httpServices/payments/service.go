package httpServices

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// ProcessorClient talks to the external payment processor. The processor is
// consumed as a capability: create an intent, retrieve its status, and
// verify the signature it puts on webhook callbacks.
type ProcessorClient struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
}

func NewProcessorClient(baseURL, secretKey, webhookSecret string) *ProcessorClient {
	return &ProcessorClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}
}

// MinimumChargeMinorUnits is the smallest amount the processor accepts.
const MinimumChargeMinorUnits int64 = 50

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Processor-Signature"

var (
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrIntentNotFound       = errors.New("payment intent not found")
)

// CreateIntent registers a new payment intent with the processor. Metadata
// is the only link the asynchronous webhook has back to the booking, so the
// caller must tag the intent with its correlation ids.
func (c *ProcessorClient) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	body, err := json.Marshal(createIntentRequest{
		Amount:   amount,
		Currency: currency,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/payment_intents", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, ErrProcessorUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("processor API returned non-OK status: " + resp.Status)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, err
	}

	return &intent, nil
}

// RetrieveIntent fetches the current state of an intent. The synchronous
// confirm path uses this instead of trusting the client's claim about the
// payment outcome.
func (c *ProcessorClient) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET",
		c.baseURL+"/v1/payment_intents/"+url.PathEscape(intentID), nil)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, ErrProcessorUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrIntentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("processor API returned non-OK status: " + resp.Status)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, err
	}

	return &intent, nil
}

// VerifySignature checks the HMAC-SHA256 signature the processor computes
// over the raw callback body. Constant-time comparison; a mismatch must be
// rejected before any booking state is read.
func (c *ProcessorClient) VerifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseEvent decodes a verified webhook body.
func (c *ProcessorClient) ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	if ev.Type == "" {
		return nil, errors.New("webhook event missing type")
	}
	return &ev, nil
}
