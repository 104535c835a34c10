package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/nfcstore/checkout/internal/checkout/adapters/http"
	"github.com/nfcstore/checkout/internal/checkout/adapters/memory"
	"github.com/nfcstore/checkout/internal/checkout/app"
	"github.com/nfcstore/checkout/internal/checkout/domain"
	checkoutmetrics "github.com/nfcstore/checkout/internal/checkout/metrics"
	"github.com/nfcstore/checkout/internal/checkout/ports"
	idemmemory "github.com/nfcstore/checkout/internal/idempotency/memory"
	"github.com/nfcstore/checkout/internal/kafka"
	"github.com/nfcstore/checkout/internal/mailer"
	"github.com/shopspring/decimal"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type stubGateway struct {
	valid bool
}

func (g *stubGateway) CreateOrder(_ context.Context, amount decimal.Decimal, _ string) (*ports.GatewayOrder, error) {
	return &ports.GatewayOrder{
		ID:       "gw-order-1",
		Amount:   amount.Shift(2).IntPart(),
		Currency: "INR",
		KeyID:    "rzp_test_key",
	}, nil
}

func (g *stubGateway) VerifySignature(_, _, signature string) bool {
	return g.valid && signature != ""
}

func newTestServer(t *testing.T, gateway ports.PaymentGateway) (*httptest.Server, *memory.Repository) {
	t.Helper()

	repo := memory.NewRepository()
	repo.SeedUser("user-1", "buyer@example.com")
	repo.SeedProduct(domain.Product{
		ID:                "p1",
		Name:              "NFC Card",
		Price:             decimal.RequireFromString("100.00"),
		Stock:             10,
		LowStockThreshold: 2,
	})
	repo.SeedCart(domain.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items:  []domain.CartItem{{ProductID: "p1", Quantity: 2}},
	})

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := checkoutmetrics.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewService(repo, gateway, mailer.NewNoop(), kafka.NewNoopEventBus(), idemmemory.NewStore(), logger, metrics)

	mux := http.NewServeMux()
	httpadapter.NewHandler(service).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, repo
}

func placeOrder(t *testing.T, server *httptest.Server, idemKey string) map[string]any {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/v1/orders", strings.NewReader(`{"user_id":"user-1"}`))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Idempotency-Key", idemKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("place order status = %d, body = %s", resp.StatusCode, body)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func orderIDFrom(t *testing.T, payload map[string]any) string {
	t.Helper()
	order, ok := payload["order"].(map[string]any)
	if !ok {
		t.Fatalf("no order in payload: %v", payload)
	}
	id, _ := order["id"].(string)
	if id == "" {
		t.Fatal("order id missing")
	}
	return id
}

func TestPlaceOrderEndpoint(t *testing.T) {
	t.Run("creates order", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})

		payload := placeOrder(t, server, "key-1")

		gatewayOrder, ok := payload["gateway_order"].(map[string]any)
		if !ok {
			t.Fatalf("no gateway_order in payload: %v", payload)
		}

		if gatewayOrder["id"] != "gw-order-1" {
			t.Errorf("gateway order id = %v, want gw-order-1", gatewayOrder["id"])
		}

		// 200.00 in minor units.
		if gatewayOrder["amount"] != float64(20000) {
			t.Errorf("gateway amount = %v, want 20000", gatewayOrder["amount"])
		}
	})

	t.Run("requires idempotency key", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})

		resp, err := http.Post(server.URL+"/v1/orders", "application/json", strings.NewReader(`{"user_id":"user-1"}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("replays stored response for duplicate key", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})

		first := placeOrder(t, server, "key-dup")
		second := placeOrder(t, server, "key-dup")

		if orderIDFrom(t, first) != orderIDFrom(t, second) {
			t.Error("duplicate idempotency key must replay the first order")
		}
	})

	t.Run("empty cart rejected", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})

		req, _ := http.NewRequest(http.MethodPost, server.URL+"/v1/orders", strings.NewReader(`{"user_id":"user-without-cart"}`))
		req.Header.Set("Idempotency-Key", "key-2")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})

		req, _ := http.NewRequest(http.MethodPost, server.URL+"/v1/orders", strings.NewReader(`{`))
		req.Header.Set("Idempotency-Key", "key-3")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func verifyPayment(t *testing.T, server *httptest.Server, orderID, signature string) *http.Response {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"order_id":           orderID,
		"gateway_order_id":   "gw-order-1",
		"gateway_payment_id": "gw-payment-1",
		"signature":          signature,
	})

	resp, err := http.Post(server.URL+"/v1/orders/verify", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("verify request failed: %v", err)
	}
	return resp
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	t.Run("confirms payment and decrements stock", func(t *testing.T) {
		server, repo := newTestServer(t, &stubGateway{valid: true})

		orderID := orderIDFrom(t, placeOrder(t, server, "key-1"))

		resp := verifyPayment(t, server, orderID, "sig")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
		}

		var payload map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		order := payload["order"].(map[string]any)
		if order["payment_status"] != "PAID" {
			t.Errorf("payment status = %v, want PAID", order["payment_status"])
		}

		product, _ := repo.Product("p1")
		if product.Stock != 8 {
			t.Errorf("stock = %d, want 8", product.Stock)
		}
	})

	t.Run("invalid signature rejected", func(t *testing.T) {
		server, repo := newTestServer(t, &stubGateway{valid: false})

		orderID := orderIDFrom(t, placeOrder(t, server, "key-1"))

		resp := verifyPayment(t, server, orderID, "bad-sig")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}

		product, _ := repo.Product("p1")
		if product.Stock != 10 {
			t.Errorf("stock = %d, want untouched 10", product.Stock)
		}
	})

	t.Run("repeat confirmation conflicts", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})

		orderID := orderIDFrom(t, placeOrder(t, server, "key-1"))

		first := verifyPayment(t, server, orderID, "sig")
		first.Body.Close()

		second := verifyPayment(t, server, orderID, "sig")
		defer second.Body.Close()

		if second.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", second.StatusCode)
		}
	})

	t.Run("cancelled order conflicts and keeps stock", func(t *testing.T) {
		server, repo := newTestServer(t, &stubGateway{valid: true})

		orderID := orderIDFrom(t, placeOrder(t, server, "key-1"))

		cancelResp, err := http.Post(server.URL+"/v1/orders/"+orderID+"/cancel", "application/json", nil)
		if err != nil {
			t.Fatalf("cancel request failed: %v", err)
		}
		cancelResp.Body.Close()
		if cancelResp.StatusCode != http.StatusOK {
			t.Fatalf("cancel status = %d, want 200", cancelResp.StatusCode)
		}

		resp := verifyPayment(t, server, orderID, "sig")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}

		product, _ := repo.Product("p1")
		if product.Stock != 10 {
			t.Errorf("stock = %d, want untouched 10", product.Stock)
		}
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})

		resp, err := http.Post(server.URL+"/v1/orders/verify", "application/json", strings.NewReader(`{"order_id":"x"}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestGetOrderEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &stubGateway{valid: true})

	orderID := orderIDFrom(t, placeOrder(t, server, "key-1"))

	t.Run("returns order", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/orders/" + orderID)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/orders/missing")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestListOrdersEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &stubGateway{valid: true})
	placeOrder(t, server, "key-1")

	resp, err := http.Get(server.URL + "/v1/orders?user_id=user-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	orders, ok := payload["orders"].([]any)
	if !ok || len(orders) != 1 {
		t.Errorf("unexpected orders payload: %v", payload)
	}
}

func TestCancelOrderEndpoint(t *testing.T) {
	t.Run("cancels pending order", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})
		orderID := orderIDFrom(t, placeOrder(t, server, "key-1"))

		resp, err := http.Post(server.URL+"/v1/orders/"+orderID+"/cancel", "application/json", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
		}

		var payload map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		order := payload["order"].(map[string]any)
		if order["order_status"] != "CANCELLED" {
			t.Errorf("order status = %v, want CANCELLED", order["order_status"])
		}
	})

	t.Run("paid order cannot be canceled", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})
		orderID := orderIDFrom(t, placeOrder(t, server, "key-1"))

		verifyResp := verifyPayment(t, server, orderID, "sig")
		verifyResp.Body.Close()

		resp, err := http.Post(server.URL+"/v1/orders/"+orderID+"/cancel", "application/json", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		server, _ := newTestServer(t, &stubGateway{valid: true})

		resp, err := http.Post(server.URL+"/v1/orders/missing/cancel", "application/json", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}
