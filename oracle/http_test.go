package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vennlabs/payrelay/types"
)

func TestHTTPOracleClientGetEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/entry", r.URL.Path)
		require.Equal(t, "NEAR/USD", r.URL.Query().Get("pair"))
		require.Equal(t, "provider.near", r.URL.Query().Get("provider"))
		w.Write([]byte(`{"price":"1234000","decimals":6,"last_update":1700000000000000000,"num_success":1,"num_error":0}`))
	}))
	defer srv.Close()

	c := NewHTTPOracleClient(srv.URL, time.Second)
	entry, err := c.GetEntry(context.Background(), "NEAR/USD", "provider.near")
	require.NoError(t, err)
	require.Equal(t, "1234000", entry.Value.String())
	require.Equal(t, uint32(6), entry.Scale)
	require.Equal(t, time.Unix(0, 1700000000000000000), entry.ObservedAt)
	require.Equal(t, uint32(1), entry.NumSuccess)
	require.Equal(t, uint32(0), entry.NumError)
}

func TestHTTPOracleClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pair") {
		case "DOWN/USD":
			w.WriteHeader(http.StatusInternalServerError)
		case "GARBAGE/USD":
			w.Write([]byte(`not json`))
		case "BADPRICE/USD":
			w.Write([]byte(`{"price":"1.234","decimals":6}`))
		}
	}))
	defer srv.Close()

	c := NewHTTPOracleClient(srv.URL, time.Second)

	_, err := c.GetEntry(context.Background(), "DOWN/USD", "p")
	requireCode(t, err, types.ErrOracleUnreachable)

	_, err = c.GetEntry(context.Background(), "GARBAGE/USD", "p")
	requireCode(t, err, types.ErrMalformedResponse)

	_, err = c.GetEntry(context.Background(), "BADPRICE/USD", "p")
	requireCode(t, err, types.ErrMalformedResponse)
}

func TestHTTPOracleClientUnreachableHost(t *testing.T) {
	c := NewHTTPOracleClient("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := c.GetEntry(context.Background(), "NEAR/USD", "p")
	requireCode(t, err, types.ErrOracleUnreachable)
}

func TestHTTPOracleClientMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/metadata", r.URL.Path)
		switch r.URL.Query().Get("token") {
		case "usdc.near":
			w.Write([]byte(`{"symbol":"USDC.e","decimals":6}`))
		case "nameless.near":
			w.Write([]byte(`{"decimals":18}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHTTPOracleClient(srv.URL, time.Second)

	meta, err := c.Metadata(context.Background(), "usdc.near")
	require.NoError(t, err)
	require.Equal(t, "USDC.e", meta.Symbol)
	require.Equal(t, uint32(6), meta.Decimals)

	_, err = c.Metadata(context.Background(), "nameless.near")
	requireCode(t, err, types.ErrMetadataMalformed)

	_, err = c.Metadata(context.Background(), "unknown.near")
	requireCode(t, err, types.ErrMetadataUnreachable)
}
