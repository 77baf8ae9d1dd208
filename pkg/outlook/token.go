package outlook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"jobtrail-backend/internal/application/domain"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Credential is the cached OAuth state for the mail provider account.
// Persisted so a restart does not force re-authorization.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CredentialCache persists the credential between runs.
// Load returns (nil, nil) when no credential has been stored yet.
type CredentialCache interface {
	Load() (*Credential, error)
	Store(*Credential) error
}

// FileCredentialCache stores the credential as a JSON file.
type FileCredentialCache struct {
	path string
}

func NewFileCredentialCache(path string) *FileCredentialCache {
	return &FileCredentialCache{path: path}
}

func (c *FileCredentialCache) Load() (*Credential, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &cred, nil
}

func (c *FileCredentialCache) Store(cred *Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// MemoryCredentialCache keeps the credential in memory only (tests, or
// environments where a secret manager injects the credential at startup).
type MemoryCredentialCache struct {
	cred *Credential
}

func NewMemoryCredentialCache(cred *Credential) *MemoryCredentialCache {
	return &MemoryCredentialCache{cred: cred}
}

func (c *MemoryCredentialCache) Load() (*Credential, error) { return c.cred, nil }

func (c *MemoryCredentialCache) Store(cred *Credential) error {
	c.cred = cred
	return nil
}

// expiryMargin: a token expiring within this window is refreshed eagerly
// rather than risked against request latency.
const expiryMargin = time.Minute

// TokenStore owns the credential lifecycle: cached access-token reuse,
// refresh-token exchange, and the initial authorization-code exchange.
// Concurrent refresh attempts are collapsed into a single in-flight exchange.
type TokenStore struct {
	cache CredentialCache
	oauth *oauth2.Config
	group singleflight.Group
	// exchange performs the refresh-token grant; replaceable in tests.
	exchange func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	stateMu      sync.Mutex
	pendingState string
}

func NewTokenStore(cache CredentialCache, clientID, tenantID, scopes string) *TokenStore {
	oauthCfg := &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/authorize", tenantID),
			TokenURL: fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		},
		Scopes: strings.Fields(scopes),
	}

	ts := &TokenStore{
		cache: cache,
		oauth: oauthCfg,
	}
	ts.exchange = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		src := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		return src.Token()
	}
	return ts
}

// AuthCodeURL returns the URL the user visits to grant access during the
// one-time bootstrap authorization. Each call issues a fresh CSRF state
// nonce, which Authorize requires the callback to echo back.
func (t *TokenStore) AuthCodeURL() string {
	state := randomState()
	t.stateMu.Lock()
	t.pendingState = state
	t.stateMu.Unlock()
	return t.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func randomState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// Authorize exchanges an authorization code for the initial credential and
// caches it. The state must match the nonce issued by AuthCodeURL; a
// mismatch means the callback did not originate from our authorization URL.
func (t *TokenStore) Authorize(ctx context.Context, state, code string) error {
	t.stateMu.Lock()
	expected := t.pendingState
	t.pendingState = ""
	t.stateMu.Unlock()
	if expected == "" || state != expected {
		return fmt.Errorf("%w: authorization state mismatch", domain.ErrAuth)
	}

	token, err := t.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: authorization code exchange failed: %v", domain.ErrAuth, err)
	}
	if err := t.cache.Store(credentialFromToken(token, "")); err != nil {
		return fmt.Errorf("%w: failed to cache credential: %v", domain.ErrAuth, err)
	}
	log.Printf("[TokenStore] Authorization complete, credential cached")
	return nil
}

// GetValidToken returns a usable access token, refreshing through the cached
// refresh token when the current one is expired or expiring. Failure to
// obtain any token is domain.ErrAuth and fatal to the ingestion run; retrying
// is the orchestrator's call, not ours.
func (t *TokenStore) GetValidToken(ctx context.Context) (string, error) {
	cred, err := t.cache.Load()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	if cred == nil {
		return "", fmt.Errorf("%w: no cached credential, re-authorization required (visit %s)", domain.ErrAuth, t.AuthCodeURL())
	}

	if cred.AccessToken != "" && cred.ExpiresAt.After(time.Now().Add(expiryMargin)) {
		return cred.AccessToken, nil
	}

	// Single-flight: concurrent callers hitting an expired token await one
	// refresh instead of racing exchanges that could invalidate each other.
	v, err, _ := t.group.Do("refresh", func() (interface{}, error) {
		return t.refresh(ctx)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	return v.(string), nil
}

func (t *TokenStore) refresh(ctx context.Context) (string, error) {
	// Re-read the cache: a caller that just finished a refresh may already
	// have stored a fresh credential.
	cred, err := t.cache.Load()
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", fmt.Errorf("no cached credential")
	}
	if cred.AccessToken != "" && cred.ExpiresAt.After(time.Now().Add(expiryMargin)) {
		return cred.AccessToken, nil
	}
	if cred.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token available, re-authorization required")
	}

	token, err := t.exchange(ctx, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh token exchange failed: %v", err)
	}

	updated := credentialFromToken(token, cred.RefreshToken)
	if err := t.cache.Store(updated); err != nil {
		return "", fmt.Errorf("failed to cache refreshed credential: %v", err)
	}

	log.Printf("[TokenStore] Refreshed access token (expires: %s)", updated.ExpiresAt.Format(time.RFC3339))
	return updated.AccessToken, nil
}

// credentialFromToken keeps the previous refresh token when the provider does
// not rotate it on refresh.
func credentialFromToken(token *oauth2.Token, previousRefresh string) *Credential {
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    token.Expiry,
	}
}
