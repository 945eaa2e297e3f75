// Package signer talks to the signing sidecar. Key material never enters
// this process; the sidecar returns raw signed bytes and the transaction
// hash it computed for them.
package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emperorhan/tx-relayer/internal/domain/model"
)

// Client signs envelopes via an HTTP sidecar. It implements chain.Signer.
type Client struct {
	httpClient *http.Client
	signURL    string
}

func NewClient(sidecarURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		signURL:    strings.TrimRight(sidecarURL, "/") + "/sign",
	}
}

type signResponse struct {
	Raw  string `json:"raw"`
	Hash string `json:"hash"`
}

func (c *Client) Sign(ctx context.Context, env model.Envelope) (model.SignedTx, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return model.SignedTx{}, fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.signURL, bytes.NewReader(body))
	if err != nil {
		return model.SignedTx{}, fmt.Errorf("create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.SignedTx{}, fmt.Errorf("sign request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.SignedTx{}, fmt.Errorf("read sign response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.SignedTx{}, fmt.Errorf("signer status %d: %s", resp.StatusCode, string(respBody))
	}

	var signed signResponse
	if err := json.Unmarshal(respBody, &signed); err != nil {
		return model.SignedTx{}, fmt.Errorf("unmarshal sign response: %w", err)
	}
	if signed.Hash == "" {
		return model.SignedTx{}, fmt.Errorf("signer returned empty hash")
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(signed.Raw, "0x"))
	if err != nil {
		return model.SignedTx{}, fmt.Errorf("decode signed bytes: %w", err)
	}

	return model.SignedTx{Raw: raw, Hash: signed.Hash}, nil
}
