package nordnet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmester/internal/broker"
	"salgsmester/internal/store"
	"salgsmester/internal/types"
)

const secret = "JBSWY3DPEHPK3PXP"

var fixedNow = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

type fakeNordnet struct {
	*httptest.Server
	loggedIn bool
	token    string
	orders   []map[string]any
}

func newFakeNordnet(t *testing.T) *fakeNordnet {
	f := &fakeNordnet{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Username != "ola" || body.Password != "hemmelig" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.loggedIn = true
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /api/login/2fa", func(w http.ResponseWriter, r *http.Request) {
		var body twoFactorRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.token = body.Token
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /api/market/nor/ose/instruments", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"symbol":"EQNR","name":"Equinor","lastPrice":301.5,"changePercent":1.5,"weekChangePercent":-2,"volatility":0.18,"sector":"energy"},
			{"symbol":"XYZ","lastPrice":12}
		]`))
	})
	mux.HandleFunc("GET /api/accounts/{id}/positions", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "12345" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{
			"cash": 2500.75,
			"positions": [
				{"symbol":"NHY","name":"Norsk Hydro","lastPrice":63,"changePercent":-1,"quantity":10,"averagePrice":60,"purchaseDate":"2024-02-01T10:00:00"},
				{"symbol":"MOWI","lastPrice":190,"quantity":2,"averagePrice":200}
			]
		}`))
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.orders = append(f.orders, body)
		w.Write([]byte(`{"orderId":"NN-1","status":"ACCEPTED","message":"ok"}`))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newClient(f *fakeNordnet, mode string, creds store.Credentials) *Client {
	c := New(Params{
		Mode:        mode,
		BaseURL:     f.URL + "/api",
		Credentials: creds,
		Fees:        types.FeeStructure{FixedFee: 29, VariableRate: 0.00055},
	})
	c.now = func() time.Time { return fixedNow }
	return c
}

var creds = store.Credentials{Username: "ola", Password: "hemmelig", SecretKey: secret, AccountID: "12345"}

func TestAuthenticateWithTwoFactor(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeLive, creds)

	require.NoError(t, c.Authenticate(context.Background()))
	assert.True(t, f.loggedIn)

	want, err := totp.GenerateCode(secret, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, want, f.token)
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeLive, store.Credentials{Username: "ola"})
	assert.True(t, errors.Is(c.Authenticate(context.Background()), store.ErrMissingCredentials))
}

func TestAuthenticateRejected(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeLive, store.Credentials{Username: "ola", Password: "feil"})
	err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nordnet login")
}

func TestFetchInstrumentsMapsWireFields(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeLive, creds)

	got, err := c.FetchInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	eq := got[0]
	assert.Equal(t, "Equinor", eq.Name)
	assert.Equal(t, 301.5, eq.LastPrice)
	assert.InDelta(t, 0.015, eq.DailyChangePct, 1e-12)
	assert.InDelta(t, -0.02, eq.WeeklyChangePct, 1e-12)
	assert.Equal(t, 0.18, eq.Volatility)
	assert.Equal(t, "energy", eq.Sector)
	assert.Equal(t, fixedNow, eq.Timestamp)

	bare := got[1]
	assert.Equal(t, "XYZ", bare.Name, "name defaults to symbol")
	assert.Equal(t, 0.2, bare.Volatility, "volatility defaults when missing")
	assert.Equal(t, types.UnknownSector, bare.SectorOrUnknown())
}

func TestFetchPortfolio(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeLive, creds)

	p, err := c.FetchPortfolio(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2500.75, p.Cash)
	assert.Equal(t, 2, p.Len())
	assert.False(t, p.HasTraded())

	nhy, ok := p.Position("NHY")
	require.True(t, ok)
	assert.Equal(t, 10.0, nhy.Quantity)
	assert.Equal(t, 60.0, nhy.EntryPrice)
	assert.InDelta(t, -0.01, nhy.Instrument.DailyChangePct, 1e-12)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), nhy.EntryTime)

	mowi, ok := p.Position("MOWI")
	require.True(t, ok)
	assert.Equal(t, fixedNow, mowi.EntryTime, "missing purchase date defaults to now")
}

func TestFetchPortfolioMissingAccount(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeLive, store.Credentials{Username: "ola", Password: "hemmelig"})
	_, err := c.FetchPortfolio(context.Background())
	assert.True(t, errors.Is(err, store.ErrMissingAccountID))
}

func TestPlaceOrderLive(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeLive, creds)

	limit := 301.456
	resp, err := c.PlaceOrder(context.Background(), types.OrderReq{Symbol: "EQNR", Side: "buy", Quantity: 3, Price: &limit, ClientRef: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, "NN-1", resp.OrderID)

	require.Len(t, f.orders, 1)
	sent := f.orders[0]
	assert.Equal(t, "EQNR", sent["symbol"])
	assert.Equal(t, "buy", sent["side"])
	assert.Equal(t, "market", sent["orderType"])
	assert.Equal(t, 3.0, sent["quantity"])
	assert.Equal(t, 301.46, sent["price"])
	assert.Equal(t, "ref-1", sent["clientRef"])
}

func TestPlaceOrderDryRun(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeDryRun, store.Credentials{})

	resp, err := c.PlaceOrder(context.Background(), types.OrderReq{Symbol: "EQNR", Side: types.SideSell, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "SIMULATED", resp.Status)
	assert.Contains(t, resp.OrderID, "SIM-")
	assert.Empty(t, f.orders)
}

func TestPlaceOrderInvalidSide(t *testing.T) {
	f := newFakeNordnet(t)
	c := newClient(f, store.ModeLive, creds)

	_, err := c.PlaceOrder(context.Background(), types.OrderReq{Symbol: "EQNR", Side: "short", Quantity: 1})
	assert.True(t, errors.Is(err, broker.ErrInvalidSide))
	assert.Empty(t, f.orders)
}

func TestFeeEstimates(t *testing.T) {
	c := New(Params{Fees: types.FeeStructure{FixedFee: 29, VariableRate: 0.00055}})
	assert.Equal(t, 29.55, c.EstimateTradeFee(100, 10))
	assert.Equal(t, 1029.55, c.EstimateTotalBuyCost(100, 10))
	assert.Equal(t, 0.0, c.EstimateNetSellProceeds(1, 1))
}
