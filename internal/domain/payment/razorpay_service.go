// internal/domain/payment/razorpay_service.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
)

// RazorpayService talks to the Razorpay orders API and checks signatures
type RazorpayService struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	currency      string
	httpClient    *http.Client
	logger        *logrus.Logger
}

// NewRazorpayService creates a new Razorpay service
func NewRazorpayService(cfg *config.Config, logger *logrus.Logger) *RazorpayService {
	currency := cfg.Razorpay.Currency
	if currency == "" {
		currency = "INR"
	}
	return &RazorpayService{
		keyID:         cfg.Razorpay.KeyID,
		keySecret:     cfg.Razorpay.KeySecret,
		webhookSecret: cfg.Razorpay.WebhookSecret,
		baseURL:       strings.TrimRight(cfg.Razorpay.BaseURL, "/"),
		currency:      currency,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// RazorpayOrder is the orders API response
type RazorpayOrder struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

// CreateOrderRequest is the orders API request body
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// RazorpayPayment is the payment entity carried by webhooks
type RazorpayPayment struct {
	ID               string            `json:"id"`
	Entity           string            `json:"entity"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	OrderID          string            `json:"order_id"`
	Method           string            `json:"method"`
	Email            string            `json:"email"`
	Contact          string            `json:"contact"`
	ErrorCode        string            `json:"error_code"`
	ErrorDescription string            `json:"error_description"`
	Notes            map[string]string `json:"notes"`
	CreatedAt        int64             `json:"created_at"`
}

// KeyID is the public key the checkout widget is opened with
func (r *RazorpayService) KeyID() string {
	return r.keyID
}

// Currency is the ISO currency every order is created in
func (r *RazorpayService) Currency() string {
	return r.currency
}

// CreateOrder creates an order in Razorpay
func (r *RazorpayService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*RazorpayOrder, error) {
	if req.Amount < 100 {
		return nil, fmt.Errorf("amount must be at least 100 paise, got %d", req.Amount)
	}
	if req.Currency == "" {
		req.Currency = r.currency
	}

	response, err := r.makeAPICall(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}

	var rzpOrder RazorpayOrder
	if err := json.Unmarshal(response, &rzpOrder); err != nil {
		return nil, fmt.Errorf("failed to parse Razorpay order response: %w", err)
	}
	if rzpOrder.ID == "" {
		return nil, fmt.Errorf("razorpay returned an order without id")
	}

	r.logger.WithFields(logrus.Fields{
		"razorpay_order_id": rzpOrder.ID,
		"amount":            rzpOrder.Amount,
		"receipt":           rzpOrder.Receipt,
	}).Info("razorpay order created")

	return &rzpOrder, nil
}

// CreatePaymentOrder creates a Razorpay order and returns only its id
func (r *RazorpayService) CreatePaymentOrder(ctx context.Context, amountPaise int64, receipt string, notes map[string]string) (string, error) {
	rzpOrder, err := r.CreateOrder(ctx, CreateOrderRequest{
		Amount:   amountPaise,
		Currency: r.currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return "", err
	}
	return rzpOrder.ID, nil
}

// VerifySignature checks the checkout signature: HMAC-SHA256 of
// "order_id|payment_id" keyed with the key secret, hex encoded.
func (r *RazorpayService) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(r.keySecret, orderID+"|"+paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw body
func (r *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if r.webhookSecret == "" || signature == "" {
		return false
	}
	expected := Sign(r.webhookSecret, string(body))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign returns the hex HMAC-SHA256 of payload under secret
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// makeAPICall makes HTTP calls to Razorpay API
func (r *RazorpayService) makeAPICall(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	if r.keyID == "" || r.keySecret == "" {
		return nil, fmt.Errorf("razorpay API credentials not configured")
	}

	var reqBody []byte
	if data != nil {
		var err error
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API call: %w", err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		r.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		}).Warn("razorpay API call failed")
		return nil, fmt.Errorf("API call failed with status %d: %s", resp.StatusCode, respBody.String())
	}

	return respBody.Bytes(), nil
}
