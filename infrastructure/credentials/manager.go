package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"media-ops/domain/model"
	"media-ops/domain/repository"
	"media-ops/infrastructure/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	youtube "google.golang.org/api/youtube/v3"
)

const platformYouTube = "youtube"

// expiryMargin is the safety window: a token this close to expiry is
// treated as stale and refreshed before use.
const expiryMargin = 5 * time.Minute

// Config holds the OAuth client settings for the platform account.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// Endpoint defaults to Google's; tests point it at a local server.
	Endpoint oauth2.Endpoint
	// AccountID keys the durable token store. Defaults to "default".
	AccountID string
}

// Manager owns the platform credential. Refresh is single-flight: while a
// refresh call is in flight, concurrent Token callers await its result
// instead of issuing duplicate refresh calls.
type Manager struct {
	oauthConfig *oauth2.Config
	tokens      repository.IOAuthToken
	accountID   string

	mu      sync.Mutex
	current *oauth2.Token
	group   singleflight.Group
}

// NewManager creates a credential manager. tokens may be nil, in which case
// refreshed tokens are held in memory only.
func NewManager(cfg *Config, tokens repository.IOAuthToken) *Manager {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{
			youtube.YoutubeScope,
			youtube.YoutubeUploadScope,
			youtube.YoutubeForceSslScope,
		}
	}
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	accountID := cfg.AccountID
	if accountID == "" {
		accountID = "default"
	}
	return &Manager{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		tokens:    tokens,
		accountID: accountID,
	}
}

// AuthURL returns the consent URL for (re-)authentication.
func (m *Manager) AuthURL(state string) string {
	return m.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token and stores it.
func (m *Manager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := m.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	if err := m.SetToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// SetToken installs a token as current and persists it.
func (m *Manager) SetToken(ctx context.Context, tok *oauth2.Token) error {
	m.mu.Lock()
	m.current = tok
	m.mu.Unlock()
	return m.store(ctx, tok)
}

// Token returns a token guaranteed not to be within the expiry margin. A
// stale token with a refresh token is refreshed and persisted; without a
// refresh token the caller gets an AuthRequiredError carrying the re-auth
// URL.
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	if usable(m.current) {
		c := *m.current
		m.mu.Unlock()
		return &c, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	tok := v.(*oauth2.Token)
	c := *tok
	return &c, nil
}

// Invalidate forces the next Token call to refresh. The current token is
// replaced with an expired copy rather than mutated in place: copies handed
// out by Token stay read-only and safe to use concurrently.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		expired := *m.current
		expired.Expiry = time.Now().Add(-time.Minute)
		m.current = &expired
	}
}

// Status reports whether a credential is connected and when it expires.
func (m *Manager) Status(ctx context.Context) (connected bool, expiry time.Time, scopes []string) {
	m.mu.Lock()
	var cur *oauth2.Token
	if m.current != nil {
		c := *m.current
		cur = &c
	}
	m.mu.Unlock()
	if cur == nil {
		cur = m.load(ctx)
	}
	if cur == nil {
		return false, time.Time{}, nil
	}
	return cur.RefreshToken != "" || usable(cur), cur.Expiry, m.oauthConfig.Scopes
}

func (m *Manager) refresh(ctx context.Context) (*oauth2.Token, error) {
	// Another caller may have finished a refresh while we queued.
	m.mu.Lock()
	cur := m.current
	if usable(cur) {
		c := *cur
		m.mu.Unlock()
		return &c, nil
	}
	m.mu.Unlock()

	if cur == nil || cur.RefreshToken == "" {
		if loaded := m.load(ctx); loaded != nil {
			cur = loaded
			if usable(cur) {
				m.mu.Lock()
				m.current = cur
				m.mu.Unlock()
				c := *cur
				return &c, nil
			}
		}
	}
	if cur == nil || cur.RefreshToken == "" {
		return nil, &model.AuthRequiredError{AuthURL: m.AuthURL("re-auth")}
	}

	newTok, err := m.oauthConfig.TokenSource(ctx, cur).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if newTok.RefreshToken == "" {
		newTok.RefreshToken = cur.RefreshToken
	}
	m.mu.Lock()
	m.current = newTok
	m.mu.Unlock()
	if err := m.store(ctx, newTok); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to persist refreshed token")
	}
	return newTok, nil
}

func (m *Manager) load(ctx context.Context) *oauth2.Token {
	if m.tokens == nil {
		return nil
	}
	stored, err := m.tokens.GetToken(ctx, m.accountID, platformYouTube)
	if err != nil || stored == nil {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    "Bearer",
	}
	if stored.TokenType != nil {
		tok.TokenType = *stored.TokenType
	}
	if stored.ExpiresAt != nil {
		tok.Expiry = *stored.ExpiresAt
	}
	return tok
}

func (m *Manager) store(ctx context.Context, tok *oauth2.Token) error {
	if m.tokens == nil {
		return nil
	}
	tokenType := tok.TokenType
	rec := &model.OAuthToken{
		AccountID:    m.accountID,
		Platform:     platformYouTube,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    &tokenType,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		rec.ExpiresAt = &exp
	}
	return m.tokens.UpsertToken(ctx, rec)
}

func usable(tok *oauth2.Token) bool {
	return tok != nil && tok.AccessToken != "" &&
		!tok.Expiry.IsZero() && time.Until(tok.Expiry) > expiryMargin
}
