package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rpc/ping", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("market_id"))
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"value": 12345678901234567}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithHeader("apikey", "secret"))

	var out map[string]interface{}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Path:        "/rpc/ping",
		QueryParams: map[string][]string{"market_id": {"7"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567"), out["value"])
}

func TestClientReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such function", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	err := c.SendAndParse(context.Background(), &RequestOptions{Path: "rpc/missing"}, nil)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "no such function", se.Body)
}

func TestClientDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out []int
	err := NewClient(WithBaseURL(srv.URL)).SendAndParse(context.Background(), &RequestOptions{Path: "x"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json")
}
