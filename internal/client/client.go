// Package client talks to the ledger's HTTP API and signs instructions
// locally; private keys never leave the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sheikh-saqib/custodial-ledger/internal/api"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	api.ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Message)
}

type Client struct {
	endpoint string
	http     *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client for the server at endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Program(ctx context.Context) (api.ProgramResponse, error) {
	var out api.ProgramResponse
	err := c.do(ctx, http.MethodGet, "/v1/program", nil, &out)
	return out, err
}

func (c *Client) AuthorityAccount(ctx context.Context, authority identity.PublicKey) (api.AuthorityAccountResponse, error) {
	var out api.AuthorityAccountResponse
	err := c.do(ctx, http.MethodGet, "/v1/authorities/"+authority.String()+"/account", nil, &out)
	return out, err
}

func (c *Client) Account(ctx context.Context, addr identity.PublicKey) (api.AccountResponse, error) {
	var out api.AccountResponse
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+addr.String(), nil, &out)
	return out, err
}

func (c *Client) Entries(ctx context.Context, addr identity.PublicKey) ([]api.EntryResponse, error) {
	var out []api.EntryResponse
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+addr.String()+"/entries", nil, &out)
	return out, err
}

func (c *Client) Holding(ctx context.Context, addr identity.PublicKey) (api.HoldingResponse, error) {
	var out api.HoldingResponse
	err := c.do(ctx, http.MethodGet, "/v1/holdings/"+addr.String(), nil, &out)
	return out, err
}

func (c *Client) Faucet(ctx context.Context, addr identity.PublicKey, amount uint64) (api.HoldingResponse, error) {
	var out api.HoldingResponse
	err := c.do(ctx, http.MethodPost, "/v1/faucet", api.FaucetRequest{Address: addr.String(), Amount: amount}, &out)
	return out, err
}

// Submit posts a signed instruction. A replayed operation is not an error;
// check Replayed on the response.
func (c *Client) Submit(ctx context.Context, si models.SignedInstruction) (api.InstructionResponse, error) {
	var out api.InstructionResponse
	err := c.do(ctx, http.MethodPost, "/v1/instructions", api.NewInstructionRequest(si), &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.ErrorResponse); err != nil {
			apiErr.Title = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
