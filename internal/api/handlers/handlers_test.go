package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/api/middleware"
	"github.com/fredsystems/zabbid/internal/authn"
	"github.com/fredsystems/zabbid/internal/broadcast"
	"github.com/fredsystems/zabbid/internal/config"
	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/lifecycle"
	"github.com/fredsystems/zabbid/internal/pkg/worker"
	"github.com/fredsystems/zabbid/internal/testutil"
)

func newTestServer(t *testing.T) (*Server, *authn.Service) {
	t.Helper()
	store := testutil.OpenSQLiteStore(t, "handlers")
	hub := broadcast.New()
	engine := lifecycle.New(store, hub)
	authSvc := authn.New(store, middleware.JWTConfig{SigningKey: []byte("test-signing-key-0123456789abcdef")}, 0, 4)
	pool, err := worker.NewPool(worker.PoolConfig{Name: "test-csv", Size: 2})
	if err != nil {
		t.Fatalf("new worker pool: %v", err)
	}
	t.Cleanup(pool.Shutdown)

	srv := NewServer(ServerDeps{
		Store:   store,
		Engine:  engine,
		Authn:   authSvc,
		Hub:     hub,
		CSVPool: pool,
		Bidding: config.BiddingConfig{ConfirmationToken: "I CONFIRM THIS BID YEAR IS READY"},
	})
	return srv, authSvc
}

// testContext builds a gin.Context for handler-direct invocation (no
// router, no JWT middleware) with the given operator already "authenticated"
// via the same gin keys JWTAuthWithConfig sets.
func testContext(t *testing.T, method, target string, body any, operatorID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if operatorID != "" {
		c.Set("user_id", operatorID)
	}
	return c, w
}

func bootstrapAdmin(t *testing.T, authSvc *authn.Service) *domain.Operator {
	t.Helper()
	op, err := authSvc.Bootstrap(t.Context(), authn.BootstrapCredential, "admin", "Admin", "Passw0rd!Example")
	if err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	return op
}

func TestBootstrap_CreatesFirstAdminAndRejectsSecond(t *testing.T) {
	srv, _ := newTestServer(t)

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/bootstrap", bootstrapRequest{
		Credential:  authn.BootstrapCredential,
		LoginName:   "admin",
		DisplayName: "Admin",
		Password:    "Passw0rd!Example",
	}, "")
	srv.Bootstrap(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	c2, w2 := testContext(t, http.MethodPost, "/api/v1/auth/bootstrap", bootstrapRequest{
		Credential:  authn.BootstrapCredential,
		LoginName:   "second",
		DisplayName: "Second",
		Password:    "Passw0rd!Example",
	}, "")
	srv.Bootstrap(c2)
	if w2.Code == http.StatusCreated {
		t.Fatalf("expected bootstrap to be disabled once an operator exists, got status=%d", w2.Code)
	}
}

func TestCreateBidYear_RequiresCreateBidYearCapability(t *testing.T) {
	srv, authSvc := newTestServer(t)
	admin := bootstrapAdmin(t, authSvc)

	c, w := testContext(t, http.MethodPost, "/api/v1/bid-years", createBidYearRequest{
		Year:          2027,
		StartDate:     "2027-01-03",
		NumPayPeriods: 26,
	}, admin.OperatorID)
	srv.CreateBidYear(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		BidYearID string `json:"bid_year_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BidYearID == "" {
		t.Fatal("expected a bid_year_id in the response")
	}
}

func TestCreateBidYear_DeniesNonAdmin(t *testing.T) {
	srv, authSvc := newTestServer(t)
	bootstrapAdmin(t, authSvc)

	bidder := &domain.Operator{
		OperatorID:   "bidder-1",
		LoginName:    "bidder",
		DisplayName:  "Bidder",
		PasswordHash: "unused",
		Role:         domain.RoleBidder,
	}
	if err := srv.Store.CreateOperator(t.Context(), bidder); err != nil {
		t.Fatalf("seed bidder operator: %v", err)
	}

	c, w := testContext(t, http.MethodPost, "/api/v1/bid-years", createBidYearRequest{
		Year:          2028,
		StartDate:     "2028-01-02",
		NumPayPeriods: 26,
	}, bidder.OperatorID)
	srv.CreateBidYear(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a bidder creating a bid year, got status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	srv, authSvc := newTestServer(t)
	bootstrapAdmin(t, authSvc)

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/login", loginRequest{
		LoginName: "admin",
		Password:  "wrong-password",
	}, "")
	srv.Login(c)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad password, got status=%d body=%s", w.Code, w.Body.String())
	}
}
