package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fruitbox/internal/pkg/logger"
)

func TestDoAttachesTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"value":42}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", logger.Discard(), WithTokenSource(func(context.Context) string { return "tok-1" }))

	var out struct {
		Value int `json:"value"`
	}
	resp, err := c.Post(context.Background(), "/thing", map[string]string{"a": "b"}, &out)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, 42, out.Value)
}

func TestDoKeepsErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"errors":["Invalid product","Bad quantity"]}`))
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	resp, err := New(srv.URL, logger.Discard()).Get(context.Background(), "/x", &out)
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, []string{"Invalid product", "Bad quantity"}, resp.Errors)
	assert.Zero(t, out.Value)
}

func TestDoNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, logger.Discard()).Get(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Empty(t, resp.Message)
}

func TestDoNetworkAndCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	url := srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := New(url, logger.Discard()).Get(ctx, "/slow", nil)
	assert.ErrorIs(t, err, context.Canceled)

	srv.Close()
	_, err = New(url, logger.Discard()).Get(context.Background(), "/gone", nil)
	assert.True(t, errors.Is(err, ErrNetwork))
}
