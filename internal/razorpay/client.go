package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nfcstore/checkout/internal/checkout/ports"
	"github.com/shopspring/decimal"
)

// Client talks to the Razorpay Orders API and verifies payment signatures.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	httpClient *http.Client
}

// NewClient builds a gateway client. The timeout bounds every API call.
func NewClient(baseURL, keyID, keySecret, currency string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		currency:   currency,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrder registers an order with the gateway. The amount is converted
// to minor currency units (paise for INR), which is what the API expects.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*ports.GatewayOrder, error) {
	if receipt == "" {
		receipt = uuid.NewString()
	}

	payload := createOrderRequest{
		Amount:   amount.Shift(2).IntPart(),
		Currency: c.currency,
		Receipt:  receipt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ports.GatewayError{Op: "create_order", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, &ports.GatewayError{Op: "create_order", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ports.GatewayError{Op: "create_order", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ports.GatewayError{
			Op:  "create_order",
			Err: fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(detail)),
		}
	}

	var gatewayOrder createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&gatewayOrder); err != nil {
		return nil, &ports.GatewayError{Op: "create_order", Err: fmt.Errorf("decode response: %w", err)}
	}

	return &ports.GatewayOrder{
		ID:       gatewayOrder.ID,
		Amount:   gatewayOrder.Amount,
		Currency: gatewayOrder.Currency,
		KeyID:    c.keyID,
	}, nil
}

// VerifySignature checks the HMAC-SHA256 signature Razorpay attaches to a
// completed payment. The signed message is "<order_id>|<payment_id>" and
// the signature is hex encoded. Comparison is constant time.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
