package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_BareArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/krc721/sold-orders", r.URL.Path)
		assert.Equal(t, "BONKEY", r.URL.Query().Get("ticker"))
		assert.Equal(t, "2", r.URL.Query().Get("minutes"))
		w.Write([]byte(`[{"tokenId": "1"}, {"tokenId": "2"}]`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL})
	rows, err := client.Sales(context.Background(), "BONKEY", 2, 200)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestClient_OrdersObjectResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orders": [{"tokenId": "1"}]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL})
	rows, err := client.Listings(context.Background(), "BONKEY", 200)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClient_DataObjectResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"_id": "x"}]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL})
	rows, err := client.TokenSales(context.Background(), "BONKEY", 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClient_UnknownObjectShapeYieldsNoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": "ok"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL})
	rows, err := client.Listings(context.Background(), "BONKEY", 200)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL})
	_, err := client.Listings(context.Background(), "BONKEY", 200)
	assert.Error(t, err)
}

func TestClient_NonObjectRowsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"tokenId": "1"}, 42, "junk"]`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL})
	rows, err := client.Sales(context.Background(), "BONKEY", 2, 200)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
