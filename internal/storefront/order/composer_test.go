package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"github.com/your-org/fruitbox/internal/storefront/apiclient"
	"github.com/your-org/fruitbox/internal/storefront/cartstore"
)

var details = CustomerDetails{
	Name:         "Asha",
	Email:        "asha@example.com",
	Phone:        "9876543210",
	AddressLine1: "12 Market Road",
	City:         "Chennai",
	Pincode:      "600001",
}

func TestClampQuantity(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int
	}{
		{15, 7},
		{7, 7},
		{3, 3},
		{0, 1},
		{-4, 1},
		{nil, 1},
		{"2", 2},
		{"2.9", 2},
		{"abc", 1},
		{float64(5), 5},
		{float64(1e12), 7},
		{json.Number("9"), 7},
		{int64(-1), 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClampQuantity(tc.in), "input %v", tc.in)
	}
}

func TestReduce(t *testing.T) {
	lines := Reduce([]RawLine{
		{ID: 150, Quantity: 2},
		{ProductID: 250, Quantity: 15},
		{ProductID: 3, IsSubscription: true, Quantity: 1},
		{ProductID: 4, Quantity: 0},
		{Quantity: 3},
		{ProductID: 5, Type: "Pack", Quantity: "4"},
	})

	require.Len(t, lines, 5)
	assert.Equal(t, Line{ProductID: 150, Type: producttype.Bowl, Quantity: 2}, lines[0])
	assert.Equal(t, Line{ProductID: 250, Type: producttype.Refreshment, Quantity: 7}, lines[1])
	assert.Equal(t, producttype.Pack, lines[2].Type)
	assert.Equal(t, Line{ProductID: 4, Type: producttype.Fruit, Quantity: 1}, lines[3])
	assert.Equal(t, Line{ProductID: 5, Type: producttype.Pack, Quantity: 4}, lines[4])
}

func TestFromCartDropsSnapshot(t *testing.T) {
	raw := FromCart([]cartstore.CartLine{{
		ProductID: 101,
		Type:      producttype.Bowl,
		Quantity:  2,
		Snapshot:  cartstore.DisplaySnapshot{Name: "Berry Bowl"},
	}})

	b, err := json.Marshal(Reduce(raw))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"productId":101,"type":"bowl","quantity":2}]`, string(b))
}

func newComposer(t *testing.T, h http.HandlerFunc) (*Composer, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewComposer(apiclient.New(srv.URL, logger.Discard()), logger.Discard()), &calls
}

func TestCreateOrderEmptyCartMakesNoRequest(t *testing.T) {
	c, calls := newComposer(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.CreateOrder(context.Background(), nil, "cust", details, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "Cart is empty", err.Error())

	_, err = c.CreateOrder(context.Background(), []RawLine{{Quantity: 2}}, "cust", details, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, calls.Load())
}

func TestCreateOrderSendsNoPrices(t *testing.T) {
	c, _ := newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/create-secure", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SAVE10", body["couponCode"])
		assert.Equal(t, "cust-1", body["customerId"])

		cart := body["cart"].([]interface{})
		require.Len(t, cart, 1)
		line := cart[0].(map[string]interface{})
		assert.Len(t, line, 3)
		assert.EqualValues(t, 7, line["quantity"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"order":{"id":9,"orderNumber":"ORD-20260101-abcd1234","amount":75600,"currency":"INR","razorpayOrderId":"order_x","keyId":"rzp_test"}}`))
	})

	raw := FromCart([]cartstore.CartLine{{
		ProductID: 1,
		Type:      producttype.Fruit,
		Quantity:  15,
		Snapshot:  cartstore.DisplaySnapshot{Name: "Mango"},
	}})
	intent, err := c.CreateOrder(context.Background(), raw, "cust-1", details, " save10 ")
	require.NoError(t, err)
	assert.Equal(t, uint(9), intent.OrderID)
	assert.Equal(t, int64(75600), intent.Amount)
	assert.Equal(t, "order_x", intent.RazorpayOrderID)
}

func TestCreateOrderSurfacesServerErrors(t *testing.T) {
	ctx := context.Background()
	raw := []RawLine{{ProductID: 1, Type: "fruit", Quantity: 1}}

	c, _ := newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"errors":["Invalid product"]}`))
	})
	_, err := c.CreateOrder(ctx, raw, "cust", details, "")
	var serr *ServerError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "Invalid product", serr.Error())

	c, _ = newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"errors":["Invalid product","Quantity too large"]}`))
	})
	_, err = c.CreateOrder(ctx, raw, "cust", details, "")
	assert.EqualError(t, err, "Invalid product, Quantity too large")

	c, _ = newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"message":"Cannot place orders for another customer"}`))
	})
	_, err = c.CreateOrder(ctx, raw, "cust", details, "")
	assert.EqualError(t, err, "Cannot place orders for another customer")

	c, _ = newComposer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err = c.CreateOrder(ctx, raw, "cust", details, "")
	assert.EqualError(t, err, "server error: 503")
}

func TestCreateOrderValidatesDetails(t *testing.T) {
	c, calls := newComposer(t, func(w http.ResponseWriter, r *http.Request) {})

	bad := details
	bad.Email = "not-an-email"
	bad.Pincode = "12"
	_, err := c.CreateOrder(context.Background(), []RawLine{{ProductID: 1, Quantity: 1}}, "cust", bad, "")

	var derr *DetailsError
	require.True(t, errors.As(err, &derr))
	assert.Contains(t, derr.Problems, "email must be a valid email")
	assert.Contains(t, derr.Problems, "pincode must be exactly 6 characters")
	assert.Zero(t, calls.Load())
}
