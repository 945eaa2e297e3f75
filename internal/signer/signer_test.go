package signer

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorhan/tx-relayer/internal/domain/model"
)

func testEnvelope() model.Envelope {
	return model.Envelope{
		Chain: model.ChainEthereum,
		Nonce: 5,
		To:    "0x559b5b64d3c1edd4a1b1f2fc0f9f0fbf54b54dd4",
		Value: "1000",
		Fees: model.FeeParams{
			MaxFeePerGas:         big.NewInt(30_000_000_000),
			MaxPriorityFeePerGas: big.NewInt(2_000_000_000),
		},
	}
}

func TestSignPostsEnvelopeAndDecodesResponse(t *testing.T) {
	var got model.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sign", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]string{
			"raw":  "0x02deadbeef",
			"hash": "0xsigned",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	signed, err := c.Sign(context.Background(), testEnvelope())
	require.NoError(t, err)

	assert.Equal(t, []byte{0x02, 0xde, 0xad, 0xbe, 0xef}, signed.Raw)
	assert.Equal(t, "0xsigned", signed.Hash)
	assert.Equal(t, uint64(5), got.Nonce)
	assert.Equal(t, big.NewInt(30_000_000_000), got.Fees.MaxFeePerGas)
}

func TestSignRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "key not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Sign(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSignRejectsEmptyHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"raw": "0x02"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Sign(context.Background(), testEnvelope())
	assert.Error(t, err)
}

func TestSignRejectsMalformedRawHex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"raw": "0xzz", "hash": "0xsigned"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Sign(context.Background(), testEnvelope())
	assert.Error(t, err)
}

func TestSignHonorsContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Sign(ctx, testEnvelope())
	assert.Error(t, err)
}
