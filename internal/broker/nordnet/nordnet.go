// Package nordnet talks to the unofficial Nordnet web API used by the Nordnet web client.
// Nordnet offers no official trading API; check your account agreement before automating it.
package nordnet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"salgsmester/internal/api"
	"salgsmester/internal/broker"
	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/store"
	"salgsmester/internal/types"
)

const DefaultBaseURL = "https://www.nordnet.no/api"

type Params struct {
	Mode        string // store.ModeLive or store.ModeDryRun
	BaseURL     string
	Timeout     time.Duration
	Credentials store.Credentials
	Fees        types.FeeStructure
}

type Client struct {
	broker.Fees

	p   Params
	api *api.Client
	now func() time.Time
}

var _ interfaces.Broker = (*Client)(nil)

// New builds a client with a session cookie jar. Extra api options are applied last.
func New(p Params, opts ...api.ClientOption) *Client {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}

	apiOpts := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(p.BaseURL, "/")),
		api.WithTimeout(p.Timeout),
		api.WithCookieJar(),
		api.WithLogging(true),
	}
	for k, v := range api.BrowserHeaders() {
		apiOpts = append(apiOpts, api.WithHeader(k, v))
	}
	apiOpts = append(apiOpts, opts...)

	return &Client{
		Fees: broker.NewFees(p.Fees),
		p:    p,
		api:  api.NewClient(apiOpts...),
		now:  time.Now,
	}
}

func (c *Client) dryRun() bool {
	return c.p.Mode == store.ModeDryRun
}

// Authenticate logs in and completes TOTP two-factor login when a secret is configured.
func (c *Client) Authenticate(ctx context.Context) error {
	creds := c.p.Credentials
	if creds.Username == "" || creds.Password == "" {
		return store.ErrMissingCredentials
	}

	if _, err := c.api.POST(ctx, "/login", loginRequest{Username: creds.Username, Password: creds.Password}); err != nil {
		return fmt.Errorf("nordnet login: %w", err)
	}

	if creds.SecretKey == "" {
		logger.Info(ctx, "Nordnet login completed", "two_factor", false)
		return nil
	}

	token, err := totp.GenerateCode(strings.ToUpper(creds.SecretKey), c.now())
	if err != nil {
		return fmt.Errorf("generate totp: %w", err)
	}
	if _, err := c.api.POST(ctx, "/login/2fa", twoFactorRequest{Token: token}); err != nil {
		return fmt.Errorf("nordnet two-factor login: %w", err)
	}

	logger.Info(ctx, "Nordnet login completed", "two_factor", true)
	return nil
}

// FetchInstruments lists the Oslo Børs instruments.
func (c *Client) FetchInstruments(ctx context.Context) ([]types.InstrumentSnapshot, error) {
	req := api.NewRequest("GET", "/market/nor/ose/instruments").WithContext(ctx)
	resp, err := c.api.DoWithRetry(req, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch instruments: %w", err)
	}

	var items []instrumentDTO
	if err := resp.ParseJSON(&items); err != nil {
		return nil, err
	}

	observed := c.now()
	out := make([]types.InstrumentSnapshot, 0, len(items))
	for _, item := range items {
		out = append(out, item.snapshot(observed))
	}
	return out, nil
}

// FetchPortfolio reads cash and positions for the configured account.
func (c *Client) FetchPortfolio(ctx context.Context) (*types.Portfolio, error) {
	accountID := c.p.Credentials.AccountID
	if accountID == "" {
		return nil, store.ErrMissingAccountID
	}

	req := api.NewRequest("GET", "/accounts/"+accountID+"/positions").WithContext(ctx)
	resp, err := c.api.DoWithRetry(req, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch portfolio: %w", err)
	}

	var dto portfolioDTO
	if err := resp.ParseJSON(&dto); err != nil {
		return nil, err
	}
	return dto.portfolio(c.now())
}

// PlaceOrder sends a market or limit order. In DRY_RUN mode nothing is sent and a
// simulated confirmation is returned.
func (c *Client) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	side, err := broker.NormalizeSide(req.Side)
	if err != nil {
		return types.OrderResp{}, err
	}
	if req.OrderType == "" {
		req.OrderType = types.OrderTypeMarket
	}

	if c.dryRun() {
		resp := types.OrderResp{OrderID: fmt.Sprintf("SIM-%d", c.now().UnixNano()), Status: "SIMULATED", Message: "dry-run"}
		logger.Info(ctx, "Simulated order placed", "symbol", req.Symbol, "side", side, "qty", req.Quantity, "order_id", resp.OrderID)
		return resp, nil
	}

	resp, err := c.api.POST(ctx, "/orders", newOrderRequest(req, side))
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("place order %s %s: %w", side, req.Symbol, err)
	}

	var out orderResponse
	if err := resp.ParseJSON(&out); err != nil {
		return types.OrderResp{}, err
	}
	return types.OrderResp{OrderID: out.OrderID, Status: out.Status, Message: out.Message}, nil
}
