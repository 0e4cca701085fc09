package authn

import (
	"testing"
	"time"

	"github.com/fredsystems/zabbid/internal/api/middleware"
	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
	"github.com/fredsystems/zabbid/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := testutil.OpenSQLiteStore(t, "authn")
	return New(store, middleware.JWTConfig{SigningKey: []byte("test-signing-key-0123456789abcdef")}, time.Hour, 4)
}

func TestBootstrap_DisabledOnceAnOperatorExists(t *testing.T) {
	svc := newTestService(t)

	op, err := svc.Bootstrap(t.Context(), BootstrapCredential, "Admin", "Admin", "Passw0rd!Example")
	if err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	if op.Role != domain.RoleAdmin {
		t.Fatalf("bootstrap operator role = %s, want Admin", op.Role)
	}
	if op.LoginName != "admin" {
		t.Fatalf("login name not normalized: got %q", op.LoginName)
	}

	if _, err := svc.Bootstrap(t.Context(), BootstrapCredential, "second", "Second", "Passw0rd!Example"); err == nil {
		t.Fatal("expected bootstrap to fail once an operator already exists")
	} else if !apperrors.IsKind(err, apperrors.KindAuthentication) {
		t.Fatalf("expected KindAuthentication, got %v", err)
	}
}

func TestBootstrap_RejectsWrongCredential(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Bootstrap(t.Context(), "not-the-credential", "admin", "Admin", "Passw0rd!Example"); err == nil {
		t.Fatal("expected an error for a wrong bootstrap credential")
	}
}

func TestLogin_IssuesVerifiableSessionAndLogoutRevokesIt(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Bootstrap(t.Context(), BootstrapCredential, "admin", "Admin", "Passw0rd!Example"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	token, op, err := svc.Login(t.Context(), "ADMIN", "Passw0rd!Example")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if op.LoginName != "admin" {
		t.Fatalf("unexpected operator returned: %+v", op)
	}

	claims, err := svc.JWT.ValidateToken(t.Context(), token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	jti := claims.ID

	revoked, err := svc.IsRevoked(t.Context(), jti)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("freshly issued session reported as revoked")
	}

	if err := svc.Logout(t.Context(), jti); err != nil {
		t.Fatalf("logout: %v", err)
	}
	revoked, err = svc.IsRevoked(t.Context(), jti)
	if err != nil {
		t.Fatalf("IsRevoked after logout: %v", err)
	}
	if !revoked {
		t.Fatal("session still reports live after logout")
	}
}

func TestLogin_RejectsWrongPasswordAndUnknownLogin(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Bootstrap(t.Context(), BootstrapCredential, "admin", "Admin", "Passw0rd!Example"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if _, _, err := svc.Login(t.Context(), "admin", "totally-wrong"); err == nil {
		t.Fatal("expected an error for a wrong password")
	}
	if _, _, err := svc.Login(t.Context(), "nobody", "whatever"); err == nil {
		t.Fatal("expected an error for an unknown login name")
	}
}

func TestTouch_UpdatesSessionActivity(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Bootstrap(t.Context(), BootstrapCredential, "admin", "Admin", "Passw0rd!Example"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	token, _, err := svc.Login(t.Context(), "admin", "Passw0rd!Example")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.JWT.ValidateToken(t.Context(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if err := svc.Touch(t.Context(), claims.ID); err != nil {
		t.Fatalf("touch: %v", err)
	}
}
