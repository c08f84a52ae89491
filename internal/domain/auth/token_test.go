package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	token, err := issuer.Issue("user123", ScopeApprover, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	principal, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.Subject != "user123" || principal.Scope != ScopeApprover {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestVerifyDefaultsScopeToUser(t *testing.T) {
	issuer, _ := NewIssuer("test-secret")
	token, err := issuer.Issue("user123", "", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	principal, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.Scope != ScopeUser {
		t.Fatalf("expected default scope %q, got %q", ScopeUser, principal.Scope)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	issuer, _ := NewIssuer("test-secret")
	token, err := issuer.WithClock(func() time.Time { return issued }).Issue("user123", "", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	later := issuer.WithClock(func() time.Time { return issued.Add(2 * time.Minute) })
	if _, err := later.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewIssuer("secret-a")
	other, _ := NewIssuer("secret-b")
	token, _ := issuer.Issue("user123", "", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsMalformedAndEmpty(t *testing.T) {
	issuer, _ := NewIssuer("test-secret")
	if _, err := issuer.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := issuer.Verify("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	issuer, _ := NewIssuer("test-secret")
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRequiresExpiry(t *testing.T) {
	issuer, _ := NewIssuer("test-secret")
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user123"}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer(""); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	if err != nil || token != "abc.def" {
		t.Fatalf("unexpected result %q %v", token, err)
	}
	if _, err := BearerToken(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := BearerToken("Basic abc"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPrincipalHasScope(t *testing.T) {
	p := Principal{Subject: "u", Scope: "user approver"}
	if !p.HasScope(ScopeApprover) {
		t.Fatal("expected approver scope")
	}
	if (Principal{Scope: ScopeUser}).HasScope(ScopeApprover) {
		t.Fatal("user scope must not grant approver")
	}
	if !(Principal{Scope: ScopeAdmin}).HasScope(ScopeApprover) {
		t.Fatal("admin grants approver")
	}
	if !IsDecisionScope(DecisionScope("LEAVE-1")) {
		t.Fatal("expected decision scope")
	}
}
