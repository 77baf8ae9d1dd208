package outlook

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jobtrail-backend/internal/application/domain"

	"golang.org/x/oauth2"
)

func newTestTokenStore(cred *Credential) *TokenStore {
	return NewTokenStore(NewMemoryCredentialCache(cred), "client-id", "consumers", "Mail.Read offline_access")
}

func TestGetValidToken_NoCachedCredentialIsAuthError(t *testing.T) {
	ts := newTestTokenStore(nil)

	_, err := ts.GetValidToken(context.Background())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestGetValidToken_ReturnsCachedTokenWhileValid(t *testing.T) {
	ts := newTestTokenStore(&Credential{
		AccessToken:  "cached-token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	ts.exchange = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		t.Fatal("valid cached token must not trigger a refresh")
		return nil, nil
	}

	token, err := ts.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "cached-token" {
		t.Fatalf("expected cached token, got %q", token)
	}
}

func TestGetValidToken_RefreshesExpiredToken(t *testing.T) {
	ts := newTestTokenStore(&Credential{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Hour),
	})
	ts.exchange = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		if refreshToken != "refresh-1" {
			t.Fatalf("expected cached refresh token, got %q", refreshToken)
		}
		return &oauth2.Token{
			AccessToken:  "fresh",
			RefreshToken: "refresh-2",
			Expiry:       time.Now().Add(time.Hour),
		}, nil
	}

	token, err := ts.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "fresh" {
		t.Fatalf("expected refreshed token, got %q", token)
	}

	// Rotated refresh token must be persisted.
	cred, _ := ts.cache.Load()
	if cred.RefreshToken != "refresh-2" {
		t.Fatalf("expected rotated refresh token cached, got %q", cred.RefreshToken)
	}
}

func TestGetValidToken_RefreshFailureIsAuthError(t *testing.T) {
	ts := newTestTokenStore(&Credential{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		ExpiresAt:    time.Now().Add(-time.Hour),
	})
	ts.exchange = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return nil, errors.New("invalid_grant")
	}

	_, err := ts.GetValidToken(context.Background())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestGetValidToken_ConcurrentCallersShareOneRefresh(t *testing.T) {
	ts := newTestTokenStore(&Credential{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Hour),
	})

	var exchanges int32
	ts.exchange = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		atomic.AddInt32(&exchanges, 1)
		time.Sleep(50 * time.Millisecond)
		return &oauth2.Token{
			AccessToken: "fresh",
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := ts.GetValidToken(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if token != "fresh" {
				t.Errorf("expected fresh token, got %q", token)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&exchanges); got != 1 {
		t.Fatalf("expected a single in-flight refresh, got %d exchanges", got)
	}
}

func authStateFromURL(t *testing.T, rawURL string) string {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("bad auth URL %q: %v", rawURL, err)
	}
	return parsed.Query().Get("state")
}

func TestAuthCodeURL_IssuesFreshStateNonce(t *testing.T) {
	ts := newTestTokenStore(nil)

	first := authStateFromURL(t, ts.AuthCodeURL())
	second := authStateFromURL(t, ts.AuthCodeURL())

	if first == "" || second == "" {
		t.Fatalf("expected non-empty state nonces, got %q and %q", first, second)
	}
	if first == second {
		t.Fatalf("expected a fresh nonce per URL, got %q twice", first)
	}
}

func TestAuthorize_RejectsMismatchedState(t *testing.T) {
	ts := newTestTokenStore(nil)
	_ = ts.AuthCodeURL()

	err := ts.Authorize(context.Background(), "forged-state", "auth-code")
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth on state mismatch, got %v", err)
	}
}

func TestAuthorize_RejectsCallbackWithoutPendingState(t *testing.T) {
	ts := newTestTokenStore(nil)

	err := ts.Authorize(context.Background(), "any-state", "auth-code")
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth without an issued state, got %v", err)
	}
}

func TestFileCredentialCache_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token_cache.json")
	cache := NewFileCredentialCache(path)

	// Absent file is "no credential yet", not an error.
	cred, err := cache.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred != nil {
		t.Fatalf("expected nil credential, got %+v", cred)
	}

	want := &Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	if err := cache.Store(want); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, err := cache.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", got, want)
	}
}
