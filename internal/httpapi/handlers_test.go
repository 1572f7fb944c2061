package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"artifactlive.org/internal/auth"
	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/obs"
	"artifactlive.org/internal/pricing"
	"artifactlive.org/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	stream  *stream.Stream
	t       *testing.T
}

func quietLogs(t *testing.T) {
	t.Helper()
	prev := obs.Configure(io.Discard, "info")
	t.Cleanup(func() { obs.SetLogger(prev) })
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	quietLogs(t)

	issuer, err := auth.NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	creds, err := auth.ParseCredentials("shop-a:pw-a,shop-b:pw-b")
	if err != nil {
		t.Fatalf("parse credentials: %v", err)
	}
	st := stream.New()
	api := New(Deps{
		Ledger:      ledger.NewService(ledger.NewInMemory()),
		Pricing:     pricing.NewMemoryStore(pricing.DefaultConfig()),
		Stream:      st,
		Issuer:      issuer,
		Credentials: creds,
		Version:     "test",
		RateBurst:   1000,
		RatePerSec:  1000,
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{baseURL: srv.URL, client: srv.Client(), stream: st, t: t}
}

func (c *apiClient) do(method, path, token string, body any) *http.Response {
	c.t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(authHeader, bearer+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path, token string, params url.Values) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, token, nil)
}

func (c *apiClient) obtainToken(owner, secret string) string {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/v1/auth/token", "", map[string]any{"owner": owner, "secret": secret})
	expectStatus(c.t, resp, http.StatusOK)
	payload := decode[tokenResponse](c.t, resp)
	if payload.Token == "" || payload.Owner != owner {
		c.t.Fatalf("unexpected token response: %+v", payload)
	}
	return payload.Token
}

func (c *apiClient) systemAccounts(token string) map[string]ledger.Account {
	c.t.Helper()
	resp := c.get("/v1/accounts", token, nil)
	expectStatus(c.t, resp, http.StatusOK)
	list := decode[struct {
		Items []ledger.Account `json:"items"`
	}](c.t, resp)
	bySubtype := make(map[string]ledger.Account)
	for _, a := range list.Items {
		if a.IsSystem {
			bySubtype[a.Subtype] = a
		}
	}
	return bySubtype
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, r *http.Response, want int) {
	t.Helper()
	if r.StatusCode != want {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", want, r.StatusCode, body)
	}
}

func expectError(t *testing.T, r *http.Response, status int, kind ledger.Kind) {
	t.Helper()
	expectStatus(t, r, status)
	e := decode[errorResponse](t, r)
	if e.Kind != kind {
		t.Fatalf("expected kind %q, got %q (%s)", kind, e.Kind, e.Error)
	}
	if e.RequestID == "" {
		t.Fatalf("expected request_id in error body")
	}
}

func amount(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	if !ok {
		t.Fatalf("expected decimal string, got %T (%v)", v, v)
	}
	return decimal.RequireFromString(s)
}

func TestAPIAccountsLifecycle(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("shop-a", "pw-a")

	if got := len(c.systemAccounts(token)); got != len(ledger.DefaultChart()) {
		t.Fatalf("expected provisioned chart of %d accounts, got %d", len(ledger.DefaultChart()), got)
	}

	resp := c.do(http.MethodPost, "/v1/accounts", token, map[string]any{
		"account_name": "Business Checking",
		"account_type": "asset",
		"subtype":      "bank",
	})
	expectStatus(t, resp, http.StatusCreated)
	if resp.Header.Get("Location") == "" {
		t.Fatalf("expected Location header")
	}
	acc := decode[ledger.Account](t, resp)
	if acc.Type != ledger.Asset || acc.Subtype != "BANK" || !acc.IsActive {
		t.Fatalf("unexpected account: %+v", acc)
	}

	resp = c.do(http.MethodPost, "/v1/accounts", token, map[string]any{
		"account_name": "Business Checking",
		"account_type": "ASSET",
	})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.do(http.MethodPost, "/v1/accounts", token, map[string]any{
		"account_name": "Mystery",
		"account_type": "GOODWILL",
	})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.do(http.MethodDelete, "/v1/accounts/"+acc.ID, token, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	cash := c.systemAccounts(token)[ledger.SubtypeCash]
	resp = c.do(http.MethodDelete, "/v1/accounts/"+cash.ID, token, nil)
	expectError(t, resp, http.StatusConflict, ledger.KindProtected)

	resp = c.get("/v1/accounts", token, url.Values{"include_inactive": {"true"}})
	expectStatus(t, resp, http.StatusOK)
	all := decode[struct {
		Items []ledger.Account `json:"items"`
	}](t, resp)
	if len(all.Items) != len(ledger.DefaultChart())+1 {
		t.Fatalf("expected inactive account to be listed, got %d", len(all.Items))
	}
}

func TestAPIRequiresToken(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/accounts", "", nil)
	expectError(t, resp, http.StatusUnauthorized, kindUnauthenticated)

	resp = c.get("/v1/accounts", "not-a-jwt", nil)
	expectError(t, resp, http.StatusUnauthorized, kindUnauthenticated)

	resp = c.do(http.MethodPost, "/v1/auth/token", "", map[string]any{"owner": "shop-a", "secret": "wrong"})
	expectError(t, resp, http.StatusUnauthorized, kindUnauthenticated)

	resp = c.do(http.MethodPost, "/v1/auth/token", "", map[string]any{"owner": "shop-a", "secret": "pw-a", "role": "admin"})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)
}

func TestAPIPostListAndReverse(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("shop-a", "pw-a")
	accs := c.systemAccounts(token)
	cash, capital := accs[ledger.SubtypeCash], accs[ledger.SubtypeOwnerCapital]

	resp := c.do(http.MethodPost, "/v1/ledger/transactions", token, map[string]any{
		"entries": []map[string]any{
			{"account_id": cash.ID, "debit": "500.00", "description": "Owner investment"},
			{"account_id": capital.ID, "credit": "500.00", "description": "Owner investment"},
		},
	})
	expectStatus(t, resp, http.StatusCreated)
	posted := decode[postingResponse](t, resp)

	resp = c.do(http.MethodPost, "/v1/ledger/transactions", token, map[string]any{
		"entries": []map[string]any{
			{"account_id": cash.ID, "debit": "100.00"},
			{"account_id": capital.ID, "credit": "90.00"},
		},
	})
	expectError(t, resp, http.StatusUnprocessableEntity, ledger.KindUnbalanced)

	resp = c.get("/v1/ledger/entries", token, url.Values{"account_id": {cash.ID}})
	expectStatus(t, resp, http.StatusOK)
	page := decode[listEntriesResponse](t, resp)
	if page.Total != 1 || page.Limit != 100 {
		t.Fatalf("unexpected page: total=%d limit=%d", page.Total, page.Limit)
	}

	resp = c.do(http.MethodPost, "/v1/ledger/transactions/"+posted.TransactionID+"/reversal", token, nil)
	expectStatus(t, resp, http.StatusCreated)
	rev := decode[postingResponse](t, resp)
	if rev.Reverses != posted.TransactionID || rev.TransactionID == posted.TransactionID {
		t.Fatalf("unexpected reversal: %+v", rev)
	}

	resp = c.do(http.MethodPost, "/v1/ledger/transactions/"+posted.TransactionID+"/reversal", token, nil)
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.do(http.MethodPost, "/v1/ledger/transactions/5b0d9f1e-9c53-4a4e-8f59-8f0f2b1b6a11/reversal", token, nil)
	expectError(t, resp, http.StatusNotFound, ledger.KindNotFound)

	resp = c.get("/v1/financials/trial-balance", token, nil)
	expectStatus(t, resp, http.StatusOK)
	tb := decode[map[string]any](t, resp)
	if tb["is_balanced"] != true || !amount(t, tb["total_debits"]).IsZero() {
		t.Fatalf("expected empty balanced trial balance after reversal, got %v", tb)
	}
}

func TestAPIEntriesValidation(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("shop-a", "pw-a")

	resp := c.get("/v1/ledger/entries", token, url.Values{"limit": {"ten"}})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.get("/v1/ledger/entries", token, url.Values{"from": {"yesterday"}})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.get("/v1/ledger/entries", token, url.Values{"from": {"2025-02-01"}, "to": {"2025-01-01"}})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.get("/v1/ledger/entries", token, url.Values{"offset": {"-1"}})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)
}

func TestAPIOwnersAreIsolated(t *testing.T) {
	c := newTestAPI(t)
	tokenA := c.obtainToken("shop-a", "pw-a")
	tokenB := c.obtainToken("shop-b", "pw-b")

	resp := c.do(http.MethodPost, "/v1/capital/contributions", tokenA, map[string]any{
		"value":       "250",
		"description": "Starting stock",
	})
	expectStatus(t, resp, http.StatusCreated)
	posted := decode[postingResponse](t, resp)

	resp = c.do(http.MethodPost, "/v1/ledger/transactions/"+posted.TransactionID+"/reversal", tokenB, nil)
	expectError(t, resp, http.StatusForbidden, ledger.KindAuthorization)

	resp = c.get("/v1/ledger/entries", tokenB, nil)
	expectStatus(t, resp, http.StatusOK)
	if page := decode[listEntriesResponse](t, resp); page.Total != 0 {
		t.Fatalf("shop-b sees %d foreign entries", page.Total)
	}

	accsA := c.systemAccounts(tokenA)
	accsB := c.systemAccounts(tokenB)
	resp = c.do(http.MethodPost, "/v1/ledger/transactions", tokenB, map[string]any{
		"entries": []map[string]any{
			{"account_id": accsA[ledger.SubtypeCash].ID, "debit": "1.00"},
			{"account_id": accsB[ledger.SubtypeOwnerCapital].ID, "credit": "1.00"},
		},
	})
	expectError(t, resp, http.StatusNotFound, ledger.KindNotFound)
}

func TestAPIContributionAndSaleKeepBooksBalanced(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("shop-a", "pw-a")

	resp := c.do(http.MethodPost, "/v1/capital/contributions", token, map[string]any{
		"item_name": "Harvested laptop parts",
		"quantity":  "10",
		"unit_cost": "25",
		"source":    "garage",
	})
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/v1/capital/contributions", token, map[string]any{})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.do(http.MethodPost, "/v1/sales", token, map[string]any{
		"part_id":      "part-1",
		"part_name":    "Keyboard",
		"sale_price":   "100",
		"shipping":     "15",
		"weight_class": "medium",
	})
	expectStatus(t, resp, http.StatusCreated)
	sale := decode[struct {
		TransactionID string         `json:"transaction_id"`
		Entries       []ledger.Entry `json:"entries"`
	}](t, resp)
	if len(sale.Entries) != 4 {
		t.Fatalf("expected 4 sale entries, got %d", len(sale.Entries))
	}

	resp = c.get("/v1/financials/accounting-equation", token, nil)
	expectStatus(t, resp, http.StatusOK)
	eq := decode[map[string]any](t, resp)
	if eq["is_balanced"] != true {
		t.Fatalf("equation not balanced: %v", eq)
	}
	if want := decimal.RequireFromString("318.65"); !amount(t, eq["assets"]).Equal(want) {
		t.Fatalf("assets=%v want %s", eq["assets"], want)
	}

	resp = c.get("/v1/financials/income-statement", token, nil)
	expectStatus(t, resp, http.StatusOK)
	is := decode[map[string]any](t, resp)
	if want := decimal.RequireFromString("68.65"); !amount(t, is["net_income"]).Equal(want) {
		t.Fatalf("net_income=%v want %s", is["net_income"], want)
	}

	resp = c.get("/v1/financials/balance-sheet", token, nil)
	expectStatus(t, resp, http.StatusOK)
	if bs := decode[map[string]any](t, resp); bs["is_balanced"] != true {
		t.Fatalf("balance sheet not balanced: %v", bs)
	}

	resp = c.get("/v1/ledger/entries", token, url.Values{"reference_type": {"sale"}})
	expectStatus(t, resp, http.StatusOK)
	if page := decode[listEntriesResponse](t, resp); page.Total != 4 {
		t.Fatalf("expected 4 SALE entries, got %d", page.Total)
	}
}

func TestAPIPricing(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("shop-a", "pw-a")

	resp := c.get("/v1/pricing/config", token, nil)
	expectStatus(t, resp, http.StatusOK)
	cfg := decode[pricingConfigResponse](t, resp)
	if len(cfg.Descriptions) != len(pricing.Keys()) {
		t.Fatalf("expected a description per key, got %d", len(cfg.Descriptions))
	}

	resp = c.do(http.MethodPut, "/v1/pricing/config", token, map[string]any{"ebay_final_value_fee": "1.5"})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.do(http.MethodPut, "/v1/pricing/config", token, map[string]any{"handling": "1"})
	expectError(t, resp, http.StatusBadRequest, ledger.KindValidation)

	resp = c.do(http.MethodPut, "/v1/pricing/config", token, map[string]any{"ebay_promoted_listing": "0.02"})
	expectStatus(t, resp, http.StatusOK)
	cfg = decode[pricingConfigResponse](t, resp)
	if !cfg.Config.PromotedListing.Equal(decimal.RequireFromString("0.02")) {
		t.Fatalf("promoted listing not updated: %s", cfg.Config.PromotedListing)
	}

	resp = c.do(http.MethodPost, "/v1/pricing/calculate", token, map[string]any{"price": "100", "weight_class": "medium"})
	expectStatus(t, resp, http.StatusOK)
	b := decode[pricing.Breakdown](t, resp)
	if !b.TotalFees.Equal(decimal.RequireFromString("18.35")) {
		t.Fatalf("total_fees=%s", b.TotalFees)
	}

	// other owners keep the defaults
	tokenB := c.obtainToken("shop-b", "pw-b")
	resp = c.do(http.MethodPost, "/v1/pricing/calculate", tokenB, map[string]any{"price": "100", "weight_class": "medium"})
	expectStatus(t, resp, http.StatusOK)
	if b := decode[pricing.Breakdown](t, resp); !b.TotalFees.Equal(decimal.RequireFromString("16.35")) {
		t.Fatalf("shop-b total_fees=%s", b.TotalFees)
	}

	resp = c.do(http.MethodPost, "/v1/pricing/summary", tokenB, map[string]any{
		"acquisition_cost": "100",
		"parts": []map[string]any{
			{"status": "listed", "weight_class": "light", "estimated_value": "50"},
			{"status": "kept"},
		},
	})
	expectStatus(t, resp, http.StatusOK)
	sum := decode[pricing.Summary](t, resp)
	if sum.PartsTotal != 2 || sum.PartsForSale != 1 || sum.PartsKept != 1 {
		t.Fatalf("unexpected summary counts: %+v", sum)
	}
}

func TestAPIStreamDeliversOwnPostings(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("shop-a", "pw-a")
	tokenB := c.obtainToken("shop-b", "pw-b")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/ledger/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(authHeader, bearer+token)
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.stream.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// shop-b's posting must not reach shop-a's stream
	resp2 := c.do(http.MethodPost, "/v1/capital/contributions", tokenB, map[string]any{"value": "5"})
	expectStatus(t, resp2, http.StatusCreated)
	resp2.Body.Close()
	resp2 = c.do(http.MethodPost, "/v1/capital/contributions", token, map[string]any{"value": "42.5"})
	expectStatus(t, resp2, http.StatusCreated)
	posted := decode[postingResponse](t, resp2)

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt stream.PostingEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.TransactionID != posted.TransactionID {
			t.Fatalf("unexpected event %+v", evt)
		}
		if evt.Kind != "capital_contribution" || evt.Amount != "42.50" {
			t.Fatalf("unexpected event payload %+v", evt)
		}
		return
	}
	t.Fatalf("stream ended without event: %v", sc.Err())
}

func TestAPIDefaultOwnerMode(t *testing.T) {
	quietLogs(t)
	api := New(Deps{
		Ledger:       ledger.NewService(ledger.NewInMemory()),
		Pricing:      pricing.NewMemoryStore(pricing.DefaultConfig()),
		DefaultOwner: "demo",
	})
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/v1/financials/trial-balance")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp, err = srv.Client().Post(srv.URL+"/v1/auth/token", "application/json", strings.NewReader(`{"owner":"demo","secret":"x"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	expectError(t, resp, http.StatusNotFound, kindUnauthenticated)
}

// unreadableEntries commits postings but fails every entry listing.
type unreadableEntries struct{ *ledger.InMemory }

func (unreadableEntries) Entries(context.Context, string, ledger.EntryFilter, int, int) ([]ledger.Entry, int, error) {
	return nil, 0, io.ErrUnexpectedEOF
}

func TestAPIPostingSucceedsWhenReadBackFails(t *testing.T) {
	quietLogs(t)
	api := New(Deps{
		Ledger:       ledger.NewService(unreadableEntries{ledger.NewInMemory()}),
		Pricing:      pricing.NewMemoryStore(pricing.DefaultConfig()),
		DefaultOwner: "demo",
	})
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/v1/sales", "application/json",
		strings.NewReader(`{"part_id":"p1","sale_price":"100","fees":"16.05","shipping":"15"}`))
	if err != nil {
		t.Fatalf("post sale: %v", err)
	}
	expectStatus(t, resp, http.StatusCreated)
	sale := decode[postingResponse](t, resp)
	if sale.TransactionID == "" {
		t.Fatal("sale response lacks transaction_id")
	}

	resp, err = srv.Client().Post(srv.URL+"/v1/ledger/transactions/"+sale.TransactionID+"/reversal", "application/json", nil)
	if err != nil {
		t.Fatalf("post reversal: %v", err)
	}
	expectStatus(t, resp, http.StatusCreated)
	if rev := decode[postingResponse](t, resp); rev.Reverses != sale.TransactionID || rev.TransactionID == "" {
		t.Fatalf("unexpected reversal response: %+v", rev)
	}

	resp, err = srv.Client().Get(srv.URL + "/v1/financials/trial-balance")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	expectStatus(t, resp, http.StatusOK)
	tb := decode[map[string]any](t, resp)
	if tb["is_balanced"] != true || !amount(t, tb["total_debits"]).IsZero() {
		t.Fatalf("sale and reversal should net out once each: %v", tb)
	}
}

type downProbe struct{}

func (downProbe) Check(context.Context) error { return io.ErrUnexpectedEOF }

func TestHealthReadyAndMetrics(t *testing.T) {
	quietLogs(t)
	api := New(Deps{
		Ledger:  ledger.NewService(ledger.NewInMemory()),
		Pricing: pricing.NewMemoryStore(pricing.DefaultConfig()),
		Ready:   downProbe{},
		Version: "1.2.3",
	})
	h := api.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "1.2.3") {
		t.Fatalf("healthz: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: expected 503, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Fatalf("metrics: %d", rr.Code)
	}

	obs.SetBuildInfo(obs.BuildInfo{Version: "1.2.3", Commit: "abc", Backend: "memory"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"backend":"memory"`) {
		t.Fatalf("info: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
