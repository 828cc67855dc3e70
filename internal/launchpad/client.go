// Package launchpad talks to the token launch platform's HTTP API. The
// platform mints tokens, manages bonding-curve pools, collects pool
// fees, and bridges stable assets into compute credits. One Client
// serves the admission, harvest, monitor, and survival collaborator
// interfaces.
package launchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"solana-launch-agent/internal/admission"
	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/harvest"
	"solana-launch-agent/internal/monitor"
	"solana-launch-agent/internal/survival"
	"solana-launch-agent/internal/treasury"
)

// Compile-time collaborator checks.
var (
	_ admission.Deployer       = (*Client)(nil)
	_ harvest.PoolManager      = (*Client)(nil)
	_ monitor.GraduationSource = (*Client)(nil)
	_ survival.Bridge          = (*Client)(nil)
	_ treasury.CreditMeter     = (*Client)(nil)
)

const (
	defaultRatePerSec = 10
	maxRetries        = 3
	baseRetryWait     = 500 * time.Millisecond
)

// Client is the launch platform HTTP client with rate limiting. Reads
// retry on transient failures; writes are sent exactly once.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	wallet    string // creator wallet address sent with launch requests
	limiter   *rate.Limiter
	retryWait time.Duration
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL   string
	APIKey    string
	Wallet    string
	Timeout   time.Duration // default 30s
	RetryWait time.Duration // default 500ms
}

// NewClient creates a launch platform client.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryWait := opts.RetryWait
	if retryWait <= 0 {
		retryWait = baseRetryWait
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
		wallet:    opts.Wallet,
		limiter:   rate.NewLimiter(defaultRatePerSec, 5),
		retryWait: retryWait,
	}
}

// Deploy launches a token via the platform.
func (c *Client) Deploy(ctx context.Context, req *domain.DeployRequest) (*domain.DeployResult, error) {
	body := createTokenRequest{
		Name:          req.Name,
		Ticker:        req.Ticker,
		Description:   req.Description,
		ImageURI:      req.ImageURI,
		Method:        string(req.Method),
		InitialBuySOL: req.InitialBuySOL,
		LiquiditySOL:  req.LiquiditySOL,
		Creator:       c.wallet,
	}

	var resp createTokenResponse
	if err := c.post(ctx, "/v1/tokens", body, &resp); err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	result := &domain.DeployResult{
		Mint:           resp.Mint,
		Supply:         resp.Supply,
		RetainedAmount: resp.RetainedAmount,
		Reference:      resp.Signature,
	}
	if resp.Pool != "" {
		pool := resp.Pool
		result.Pool = &pool
	}
	return result, nil
}

// CollectFees claims accrued liquidity fees from a pool.
func (c *Client) CollectFees(ctx context.Context, poolRef string) (*harvest.PoolFees, error) {
	var resp collectFeesResponse
	if err := c.post(ctx, "/v1/pools/"+poolRef+"/collect", nil, &resp); err != nil {
		return nil, fmt.Errorf("collect pool fees: %w", err)
	}
	return &harvest.PoolFees{
		NativeFeesSOL: resp.NativeFeesSOL,
		TokenFees:     resp.TokenFees,
		Reference:     resp.Signature,
	}, nil
}

// Graduated reports whether the pool crossed the graduation threshold.
func (c *Client) Graduated(ctx context.Context, poolRef string) (bool, error) {
	var resp poolStatusResponse
	if err := c.get(ctx, "/v1/pools/"+poolRef, &resp); err != nil {
		return false, fmt.Errorf("pool status: %w", err)
	}
	return resp.Graduated, nil
}

// ConvertAcrossChain converts stable balance toward the compute provider.
func (c *Client) ConvertAcrossChain(ctx context.Context, amountUSDC float64) (*survival.Conversion, error) {
	body := bridgeRequest{AmountUSDC: amountUSDC, Wallet: c.wallet}

	var resp bridgeResponse
	if err := c.post(ctx, "/v1/bridge/convert", body, &resp); err != nil {
		return nil, fmt.Errorf("bridge convert: %w", err)
	}
	return &survival.Conversion{
		Reference:        resp.Reference,
		EstimatedArrival: resp.EstimatedArrivalMs,
	}, nil
}

// TopUpCredits purchases compute credits with bridged funds.
func (c *Client) TopUpCredits(ctx context.Context, amountUSDC float64) (*survival.TopUp, error) {
	body := bridgeRequest{AmountUSDC: amountUSDC, Wallet: c.wallet}

	var resp topUpResponse
	if err := c.post(ctx, "/v1/bridge/topup", body, &resp); err != nil {
		return nil, fmt.Errorf("credit top-up: %w", err)
	}
	return &survival.TopUp{
		CreditsAdded: resp.CreditsAdded,
		NewBalance:   resp.NewBalance,
	}, nil
}

// Credits returns the remaining compute-credit balance metered by the
// platform for this API key.
func (c *Client) Credits(ctx context.Context) (float64, error) {
	var resp creditsResponse
	if err := c.get(ctx, "/v1/credits", &resp); err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return resp.Balance, nil
}

// Transfer sends SOL from the platform-custodied wallet to an external
// address and returns the transaction signature.
func (c *Client) Transfer(ctx context.Context, to string, amountSOL float64) (string, error) {
	body := transferRequest{From: c.wallet, To: to, AmountSOL: amountSOL}

	var resp transferResponse
	if err := c.post(ctx, "/v1/transfers", body, &resp); err != nil {
		return "", fmt.Errorf("transfer: %w", err)
	}
	return resp.Signature, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	}, out, maxRetries)
}

// post sends the request exactly once. The write endpoints are not
// idempotent and the platform may have committed before a transient
// failure, so the caller re-requests on its next cycle instead.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out, 0)
}

// do executes the request with exponential backoff between attempts.
// Client errors (4xx) are returned immediately; 429 and 5xx count as
// transient and use up retries.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error), out interface{}, retries int) error {
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := c.retryWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := build()
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode >= 400 {
			payload, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("platform error %d: %s", resp.StatusCode, string(payload))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	if retries == 0 {
		return fmt.Errorf("request failed: %w", lastErr)
	}
	return fmt.Errorf("request failed after %d retries: %w", retries, lastErr)
}

// Wire types

type createTokenRequest struct {
	Name          string  `json:"name"`
	Ticker        string  `json:"ticker"`
	Description   string  `json:"description,omitempty"`
	ImageURI      string  `json:"image_uri,omitempty"`
	Method        string  `json:"method"`
	InitialBuySOL float64 `json:"initial_buy_sol"`
	LiquiditySOL  float64 `json:"liquidity_sol,omitempty"`
	Creator       string  `json:"creator"`
}

type createTokenResponse struct {
	Mint           string  `json:"mint"`
	Supply         float64 `json:"supply"`
	RetainedAmount float64 `json:"retained_amount"`
	Pool           string  `json:"pool,omitempty"`
	Signature      string  `json:"signature"`
}

type collectFeesResponse struct {
	NativeFeesSOL float64 `json:"native_fees_sol"`
	TokenFees     float64 `json:"token_fees"`
	Signature     string  `json:"signature"`
}

type poolStatusResponse struct {
	Pool         string  `json:"pool"`
	LiquiditySOL float64 `json:"liquidity_sol"`
	Graduated    bool    `json:"graduated"`
}

type bridgeRequest struct {
	AmountUSDC float64 `json:"amount_usdc"`
	Wallet     string  `json:"wallet"`
}

type bridgeResponse struct {
	Reference          string `json:"reference"`
	EstimatedArrivalMs int64  `json:"estimated_arrival_ms"`
}

type topUpResponse struct {
	CreditsAdded float64 `json:"credits_added"`
	NewBalance   float64 `json:"new_balance"`
}

type creditsResponse struct {
	Balance float64 `json:"balance"`
}

type transferRequest struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	AmountSOL float64 `json:"amount_sol"`
}

type transferResponse struct {
	Signature string `json:"signature"`
}
