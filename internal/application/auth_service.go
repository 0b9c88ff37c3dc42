package application

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/weedrice/whiteboard-cli/internal/adapters/gateway"
	"github.com/weedrice/whiteboard-cli/internal/domain"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

// AuthService owns the login lifecycle: it is, together with the gateway's
// refresh handler, the only writer of session state.
type AuthService struct {
	gw       *gateway.Client
	tokens   ports.TokenStore
	sessions ports.SessionRepository
	clock    ports.Clock
	log      zerolog.Logger
}

type loginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         domain.User `json:"user"`
}

func NewAuthService(gw *gateway.Client, tokens ports.TokenStore, sessions ports.SessionRepository, clock ports.Clock, log zerolog.Logger) *AuthService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	s := &AuthService{
		gw:       gw,
		tokens:   tokens,
		sessions: sessions,
		clock:    clock,
		log:      log,
	}

	// After a successful refresh the gateway re-syncs the cached user with
	// the new token. SkipAuthRefresh breaks the recursion; a failure here
	// only means a stale profile, never a failed refresh.
	gw.SetOnTokenRefreshed(func(ctx context.Context, _ string) {
		if _, err := s.FetchUser(ctx, gateway.Options{
			SkipAuthRefresh:        true,
			SkipGlobalErrorHandler: true,
		}); err != nil {
			s.log.Debug().Err(err).Msg("refresh user after token rotation")
		}
	})
	gw.SetOnSessionCleared(func(ctx context.Context) {
		if s.sessions == nil {
			return
		}
		if err := s.sessions.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Msg("clear persisted session")
		}
	})

	return s
}

func (s *AuthService) Session() domain.Session {
	return s.gw.Session().Snapshot()
}

// Login exchanges credentials for a token pair, persists both tokens, and
// caches the returned user profile.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.User, error) {
	resp, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"username": username, "password": password},
	}, gateway.Options{SkipGlobalErrorHandler: true})
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}

	var payload loginResponse
	if err := resp.Decode(&payload); err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		return domain.User{}, fmt.Errorf("login response missing tokens")
	}

	if err := s.tokens.Put(ctx, ports.AccessTokenKey, payload.AccessToken); err != nil {
		return domain.User{}, fmt.Errorf("persist access token: %w", err)
	}
	if err := s.tokens.Put(ctx, ports.RefreshTokenKey, payload.RefreshToken); err != nil {
		return domain.User{}, fmt.Errorf("persist refresh token: %w", err)
	}

	user := payload.User
	s.gw.Session().SetTokens(payload.AccessToken, payload.RefreshToken)
	s.gw.Session().SetUser(&user)
	s.saveSnapshot(ctx, &user)

	return user, nil
}

// Logout revokes the refresh token best-effort, then clears every trace of
// the session regardless of what the backend said.
func (s *AuthService) Logout(ctx context.Context) error {
	refreshToken, err := s.tokens.Get(ctx, ports.RefreshTokenKey)
	if err == nil && refreshToken != "" {
		if _, err := s.gw.Do(ctx, gateway.Request{
			Method: http.MethodPost,
			Path:   "/auth/logout",
			Body:   map[string]string{"refreshToken": refreshToken},
		}, gateway.Options{SkipGlobalErrorHandler: true, SkipAuthRefresh: true}); err != nil {
			s.log.Debug().Err(err).Msg("logout call failed; clearing local session anyway")
		}
	}

	if err := s.tokens.Delete(ctx, ports.AccessTokenKey); err != nil {
		return fmt.Errorf("drop access token: %w", err)
	}
	if err := s.tokens.Delete(ctx, ports.RefreshTokenKey); err != nil {
		return fmt.Errorf("drop refresh token: %w", err)
	}
	s.gw.Session().Clear()

	if s.sessions != nil {
		if err := s.sessions.Clear(ctx); err != nil {
			return fmt.Errorf("clear persisted session: %w", err)
		}
	}

	return nil
}

// FetchUser loads /users/me and caches the profile. A sanctioned account is
// logged out on the spot.
func (s *AuthService) FetchUser(ctx context.Context, opts gateway.Options) (domain.User, error) {
	if !s.gw.Session().Authenticated() {
		return domain.User{}, domain.ErrNotAuthenticated
	}

	resp, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/users/me",
	}, opts)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch current user: %w", err)
	}

	var user domain.User
	if err := resp.Decode(&user); err != nil {
		return domain.User{}, fmt.Errorf("fetch current user: %w", err)
	}

	if user.Sanctioned() {
		s.log.Warn().Int64("user_id", user.UserID).Msg("account sanctioned; logging out")
		if err := s.Logout(ctx); err != nil {
			s.log.Warn().Err(err).Msg("logout after sanction")
		}
		return domain.User{}, domain.ErrSessionExpired
	}

	s.gw.Session().SetUser(&user)
	s.saveSnapshot(ctx, &user)

	return user, nil
}

func (s *AuthService) saveSnapshot(ctx context.Context, user *domain.User) {
	if s.sessions == nil {
		return
	}
	err := s.sessions.Save(ctx, ports.SessionSnapshot{
		User:         user,
		LastSyncedAt: s.clock.Now(),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("persist session snapshot")
	}
}
