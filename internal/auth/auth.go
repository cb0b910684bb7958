// Package auth supplies the authentication state the list store branches on,
// plus the sign-in/out operations behind it. The heavy lifting happens at the
// hosted endpoint; this service only holds the resulting session.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/common"
	"github.com/dmitrijs2005/cartsync/internal/logging"
	"github.com/dmitrijs2005/cartsync/internal/prefs"
	"github.com/google/uuid"
)

// Identity is the current user's stable reference: an authenticated account
// or a device-local anonymous placeholder.
type Identity struct {
	ID        string
	Email     string
	Anonymous bool
}

// Key returns the string other users see this identity under: the email when
// known, otherwise the opaque id. Matches how list membership rows are keyed.
func (i Identity) Key() string {
	if i.Email != "" {
		return i.Email
	}
	return i.ID
}

// Session holds the tokens of an authenticated user.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// State is the triple the store's mode selector consumes. It is re-read on
// every store operation, never cached by consumers.
type State struct {
	User    *Identity
	Session *Session
	Loading bool
}

// Authenticated reports whether operations should run against the hosted
// backend. Anonymous identities keep the store in Local Mode, and a state
// still loading counts as not yet authenticated.
func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil && s.Session != nil && !s.User.Anonymous
}

// Service implements the authentication collaborator.
type Service struct {
	client TokenClient
	prefs  prefs.Repository
	log    logging.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
}

// NewService constructs a Service. client may be nil when no auth endpoint is
// configured; email flows then fail with common.ErrBackendOffline. p may be
// nil to disable remember-me.
func NewService(client TokenClient, p prefs.Repository, log logging.Logger) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Service{client: client, prefs: p, log: log, now: time.Now}
}

// Current returns a copy of the present authentication state.
func (s *Service) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SignInAnonymously mints a device-local identity. No backend call is made
// and the resulting state is not authenticated, so the store stays in Local
// Mode.
func (s *Service) SignInAnonymously(ctx context.Context) (*Identity, error) {
	identity := &Identity{ID: "anon-" + uuid.NewString(), Anonymous: true}

	s.mu.Lock()
	s.state = State{User: identity}
	s.mu.Unlock()

	s.log.Info(ctx, "signed in anonymously", "id", identity.ID)
	return identity, nil
}

// SignInWithEmail authenticates against the hosted endpoint. When remember is
// set, the email and refresh token are persisted so the session can be
// restored on the next start.
func (s *Service) SignInWithEmail(ctx context.Context, email, password string, remember bool) (*Identity, error) {
	if s.client == nil {
		return nil, common.ErrBackendOffline
	}

	s.setLoading(true)
	defer s.setLoading(false)

	tok, err := s.client.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}

	identity, session, err := sessionFromToken(tok, s.now())
	if err != nil {
		return nil, err
	}
	if identity.Email == "" {
		identity.Email = email
	}

	s.mu.Lock()
	s.state = State{User: identity, Session: session}
	s.mu.Unlock()

	if s.prefs != nil {
		if remember {
			if err := s.prefs.Set(ctx, prefs.KeyRememberEmail, email); err == nil {
				err = s.prefs.Set(ctx, prefs.KeyRefreshToken, session.RefreshToken)
			}
		} else {
			_ = s.prefs.Delete(ctx, prefs.KeyRememberEmail)
			_ = s.prefs.Delete(ctx, prefs.KeyRefreshToken)
		}
	}

	s.log.Info(ctx, "signed in", "email", identity.Key(), "remember", remember)
	return identity, nil
}

// SignUpWithEmail creates an account and signs in with the returned session.
func (s *Service) SignUpWithEmail(ctx context.Context, email, password string) (*Identity, error) {
	if s.client == nil {
		return nil, common.ErrBackendOffline
	}

	s.setLoading(true)
	defer s.setLoading(false)

	tok, err := s.client.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	identity, session, err := sessionFromToken(tok, s.now())
	if err != nil {
		return nil, err
	}
	if identity.Email == "" {
		identity.Email = email
	}

	s.mu.Lock()
	s.state = State{User: identity, Session: session}
	s.mu.Unlock()

	s.log.Info(ctx, "signed up", "email", identity.Key())
	return identity, nil
}

// RestoreRemembered resumes a previous session from the persisted refresh
// token. Returns common.ErrNotRemembered when nothing was saved.
func (s *Service) RestoreRemembered(ctx context.Context) (*Identity, error) {
	if s.client == nil || s.prefs == nil {
		return nil, common.ErrNotRemembered
	}

	refreshToken, err := s.prefs.Get(ctx, prefs.KeyRefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotRemembered
		}
		return nil, err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	tok, err := s.client.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	identity, session, err := sessionFromToken(tok, s.now())
	if err != nil {
		return nil, err
	}
	if identity.Email == "" {
		if email, err := s.prefs.Get(ctx, prefs.KeyRememberEmail); err == nil {
			identity.Email = email
		}
	}

	s.mu.Lock()
	s.state = State{User: identity, Session: session}
	s.mu.Unlock()

	// Rotate the stored refresh token; the endpoint invalidates the old one.
	_ = s.prefs.Set(ctx, prefs.KeyRefreshToken, session.RefreshToken)

	s.log.Info(ctx, "session restored", "email", identity.Key())
	return identity, nil
}

// SignOut revokes the session (best effort) and clears state. The remembered
// refresh token is dropped so a stale token never lingers on disk.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	session := s.state.Session
	s.state = State{}
	s.mu.Unlock()

	if s.prefs != nil {
		_ = s.prefs.Delete(ctx, prefs.KeyRefreshToken)
	}

	if s.client != nil && session != nil {
		if err := s.client.SignOut(ctx, session.AccessToken); err != nil {
			s.log.Warn(ctx, "remote sign-out failed", "error", err)
		}
	}

	s.log.Info(ctx, "signed out")
	return nil
}

func (s *Service) setLoading(v bool) {
	s.mu.Lock()
	s.state.Loading = v
	s.mu.Unlock()
}
