package oracle

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"github.com/vennlabs/payrelay/types"
)

// priceEntryWire is the JSON shape served by pair-shape price endpoints.
// Price is a decimal string because the value may not fit a JSON number.
type priceEntryWire struct {
	Price      string `json:"price"`
	Decimals   uint32 `json:"decimals"`
	LastUpdate int64  `json:"last_update"`
	NumSuccess uint32 `json:"num_success"`
	NumError   uint32 `json:"num_error"`
}

// HTTPOracleClient implements PairSource against a JSON-over-HTTP price
// endpoint: GET {base}/entry?pair=BASE/QUOTE&provider=ID.
type HTTPOracleClient struct {
	base   string
	client *http.Client
}

// NewHTTPOracleClient builds a pair-shape oracle client with the given
// request timeout (30s when zero).
func NewHTTPOracleClient(base string, timeout time.Duration) *HTTPOracleClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPOracleClient{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

// GetEntry performs the remote rate query.
func (c *HTTPOracleClient) GetEntry(ctx context.Context, pair string, provider string) (*types.PriceEntry, error) {
	q := url.Values{}
	q.Set("pair", pair)
	q.Set("provider", provider)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/entry?"+q.Encode(), nil)
	if err != nil {
		return nil, types.Errf(types.ErrOracleUnreachable, "building oracle request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.Errf(types.ErrOracleUnreachable, "oracle query failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.Errf(types.ErrOracleUnreachable, "oracle returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.Errf(types.ErrOracleUnreachable, "reading oracle response: %v", err)
	}

	var wire priceEntryWire
	if err := sonic.Unmarshal(body, &wire); err != nil {
		return nil, types.Errf(types.ErrMalformedResponse, "decoding oracle response: %v", err)
	}
	value, ok := new(big.Int).SetString(wire.Price, 10)
	if !ok {
		return nil, types.Errf(types.ErrMalformedResponse, "oracle price %q is not an integer", wire.Price)
	}

	return &types.PriceEntry{
		Value:      value,
		Scale:      wire.Decimals,
		ObservedAt: time.Unix(0, wire.LastUpdate),
		NumSuccess: wire.NumSuccess,
		NumError:   wire.NumError,
	}, nil
}

// tokenMetadataWire mirrors the fungible token metadata endpoint.
type tokenMetadataWire struct {
	Symbol   string `json:"symbol"`
	Decimals uint32 `json:"decimals"`
}

// Metadata resolves a token's symbol and decimals from the same host:
// GET {base}/metadata?token=ID.
func (c *HTTPOracleClient) Metadata(ctx context.Context, token string) (*types.TokenMetadata, error) {
	q := url.Values{}
	q.Set("token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/metadata?"+q.Encode(), nil)
	if err != nil {
		return nil, types.Errf(types.ErrMetadataUnreachable, "building metadata request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.Errf(types.ErrMetadataUnreachable, "metadata query failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.Errf(types.ErrMetadataUnreachable, "metadata endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.Errf(types.ErrMetadataUnreachable, "reading metadata response: %v", err)
	}

	var wire tokenMetadataWire
	if err := sonic.Unmarshal(body, &wire); err != nil {
		return nil, types.Errf(types.ErrMetadataMalformed, "decoding metadata response: %v", err)
	}
	if wire.Symbol == "" {
		return nil, types.Errf(types.ErrMetadataMalformed, "metadata for token %s has no symbol", token)
	}
	return &types.TokenMetadata{Symbol: wire.Symbol, Decimals: wire.Decimals}, nil
}

var _ PairSource = (*HTTPOracleClient)(nil)
var _ TokenMetadataSource = (*HTTPOracleClient)(nil)
