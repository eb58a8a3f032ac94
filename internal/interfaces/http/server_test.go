package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/payment"
	"github.com/your-org/fruitbox/internal/infrastructure/database/postgres"
	"github.com/your-org/fruitbox/internal/pkg/auth"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	t      *testing.T
	cfg    *config.Config
	server *Server
}

func newFakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	n := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req payment.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payment.RazorpayOrder{
			ID:       fmt.Sprintf("order_api_%d", n),
			Amount:   req.Amount,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Status:   "created",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	log := logger.Discard()
	migration := postgres.NewMigration(db, log)
	require.NoError(t, migration.RunAutoMigrations())
	require.NoError(t, migration.SeedInitialData())

	gateway := newFakeGateway(t)

	cfg := &config.Config{}
	cfg.App.Name = "fruitbox-test"
	cfg.App.Environment = "test"
	cfg.JWT.Secret = "test-secret-that-is-at-least-32-characters"
	cfg.JWT.AccessTokenExpiry = time.Hour
	cfg.Security.BcryptCost = 4
	cfg.Server.RequestTimeout = 10 * time.Second
	cfg.Razorpay.KeyID = "rzp_test_key"
	cfg.Razorpay.KeySecret = "test_secret"
	cfg.Razorpay.WebhookSecret = "whsec"
	cfg.Razorpay.BaseURL = gateway.URL + "/v1"
	cfg.Razorpay.Currency = "INR"
	cfg.Subscription.Days = 30
	cfg.Subscription.Timezone = "UTC"

	return &apiFixture{t: t, cfg: cfg, server: NewServer(cfg, db, nil, log)}
}

func (f *apiFixture) token(userID string, role auth.Role) string {
	tok, err := auth.NewJWTManager(f.cfg).GenerateAccessToken(userID, userID+"@example.com", role)
	require.NoError(f.t, err)
	return tok
}

func (f *apiFixture) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	f.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func orderBody(customerID string, coupon string, lines ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"cart":       lines,
		"customerId": customerID,
		"customerDetails": map[string]string{
			"name":         "Meera",
			"email":        "meera@example.com",
			"phone":        "9876543210",
			"addressLine1": "4 Lake Road",
			"city":         "Chennai",
			"pincode":      "600001",
		},
		"couponCode": coupon,
	}
}

func line(id int, typ string, qty int) map[string]interface{} {
	return map[string]interface{}{"productId": id, "type": typ, "quantity": qty}
}

func TestCatalogAndCoupons(t *testing.T) {
	f := setupAPI(t)

	status, body := f.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["products"], len(postgres.SeedProducts()))

	status, body = f.do(http.MethodPost, "/api/coupon/validate", "", map[string]interface{}{
		"couponCode": "save10",
		"cartItems":  []interface{}{line(1, "fruit", 2)},
	})
	require.Equal(t, http.StatusOK, status)
	pricing := body["pricing"].(map[string]interface{})
	assert.Equal(t, "24", pricing["discountAmount"])
	assert.Equal(t, "216", pricing["finalTotal"])

	status, body = f.do(http.MethodPost, "/api/coupon/validate", "", map[string]interface{}{
		"couponCode": "BOWL50",
		"cartItems":  []interface{}{line(1, "fruit", 1)},
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "not_eligible", body["reason"])
	assert.Len(t, body["eligibleProducts"], 2)

	status, body = f.do(http.MethodPost, "/api/coupon/validate", "", map[string]interface{}{
		"couponCode": "NOPE",
		"cartItems":  []interface{}{line(1, "fruit", 1)},
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid coupon code", body["message"])
}

func TestOrderToDeliveryFlow(t *testing.T) {
	f := setupAPI(t)
	customerID := uuid.NewString()
	customerToken := f.token(customerID, auth.RoleCustomer)

	status, _ := f.do(http.MethodPost, "/api/orders/create-secure", "", orderBody(customerID, "", line(1, "pack", 1)))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = f.do(http.MethodPost, "/api/orders/create-secure", f.token(uuid.NewString(), auth.RoleCustomer), orderBody(customerID, "", line(1, "pack", 1)))
	assert.Equal(t, http.StatusForbidden, status)

	status, body := f.do(http.MethodPost, "/api/orders/create-secure", customerToken, orderBody(customerID, "", line(1, "fruit", 9), line(7, "juice", 1)))
	require.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, body["errors"], 2)

	status, body = f.do(http.MethodPost, "/api/orders/create-secure", customerToken, orderBody(customerID, "", line(1, "pack", 1)))
	require.Equal(t, http.StatusCreated, status, body)
	intent := body["order"].(map[string]interface{})
	assert.Equal(t, float64(149900), intent["amount"])
	assert.Equal(t, "rzp_test_key", intent["keyId"])
	rzpOrderID := intent["razorpayOrderId"].(string)
	orderID := int(intent["id"].(float64))
	invoicePath := fmt.Sprintf("/api/orders/%d/invoice?format=html", orderID)

	status, _ = f.do(http.MethodGet, invoicePath, customerToken, nil)
	assert.Equal(t, http.StatusConflict, status, "no invoice before payment")

	status, _ = f.do(http.MethodPost, "/api/payment/verify-secure", "", map[string]string{
		"razorpay_order_id":   rzpOrderID,
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "forged",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(http.MethodPost, "/api/payment/verify-secure", "", map[string]string{
		"razorpay_order_id":   rzpOrderID,
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  payment.Sign("test_secret", rzpOrderID+"|pay_1"),
	})
	require.Equal(t, http.StatusOK, status, body)
	subIDs := body["subscriptionIds"].([]interface{})
	require.Len(t, subIDs, 1)
	subID := int(subIDs[0].(float64))

	status, body = f.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), customerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirmed", body["order"].(map[string]interface{})["status"])

	status, _ = f.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), f.token(uuid.NewString(), auth.RoleCustomer), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(http.MethodGet, invoicePath, customerToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.do(http.MethodGet, invoicePath, f.token(uuid.NewString(), auth.RoleCustomer), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(http.MethodPost, "/api/auth/staff/login", "", map[string]string{
		"email":    "partner@fruitbox.local",
		"password": "partner1234",
	})
	require.Equal(t, http.StatusOK, status)
	partnerToken := body["accessToken"].(string)

	status, body = f.do(http.MethodGet, fmt.Sprintf("/api/subscriptions/%d/calendar", subID), partnerToken, nil)
	require.Equal(t, http.StatusOK, status)
	days := body["subscription"].(map[string]interface{})["days"].([]interface{})
	require.Len(t, days, 30)

	var deliverable, na string
	for _, d := range days {
		day := d.(map[string]interface{})
		switch {
		case day["status"] == "pending" && deliverable == "":
			deliverable = day["date"].(string)
		case day["status"] == "NA" && na == "":
			na = day["date"].(string)
		}
	}
	require.NotEmpty(t, deliverable)
	require.NotEmpty(t, na, "a 30 day window always contains a Sunday")

	path := fmt.Sprintf("/api/partner/subscriptions/%d/days/%s", subID, deliverable)
	status, _ = f.do(http.MethodPatch, path, customerToken, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.do(http.MethodPatch, path, partnerToken, map[string]string{"status": "out_for_delivery"})
	require.Equal(t, http.StatusOK, status, body)
	status, _ = f.do(http.MethodPatch, path, partnerToken, map[string]string{"status": "delivered"})
	require.Equal(t, http.StatusOK, status)

	status, _ = f.do(http.MethodPatch, fmt.Sprintf("/api/partner/subscriptions/%d/days/%s", subID, na), partnerToken, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = f.do(http.MethodGet, "/api/admin/orders", f.token("admin-1", auth.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["orders"], 1)

	status, _ = f.do(http.MethodGet, "/api/admin/orders", partnerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.do(http.MethodGet, "/api/admin/analytics/dashboard", f.token("admin-1", auth.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, status, body)
	dashboard := body["dashboard"].(map[string]interface{})
	assert.Equal(t, float64(1), dashboard["paidOrders"])
	assert.Equal(t, float64(1), dashboard["activeSubscriptions"])
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupAPI(t)

	status, body := f.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	f.do(http.MethodGet, "/api/products", "", nil)

	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/api/products",status="200"}`)
}
