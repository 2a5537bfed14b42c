package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

// Authenticator resolves bearer tokens to users and serves the auth endpoints.
type Authenticator struct {
	users  *services.UserService
	tokens *TokenManager
}

// NewAuthenticator constructs an Authenticator with the provided dependencies.
func NewAuthenticator(users *services.UserService, tokens *TokenManager) *Authenticator {
	return &Authenticator{users: users, tokens: tokens}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *Authenticator) {
	r.Post("/register", auth.Register)
	r.Post("/login", auth.Login)
	r.Post("/refresh", auth.Refresh)
	r.With(auth.RequireAuth).Post("/logout", auth.Logout)
	r.With(auth.RequireAuth).Get("/me", auth.Me)
}

// RequireAuth enforces a valid access token from an ACTIVE account and
// injects the user into the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		a.serveAuthenticated(w, r, next, tokenString)
	})
}

// OptionalAuth lets anonymous requests through but still rejects a bad token.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			next.ServeHTTP(w, r)
			return
		}
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		a.serveAuthenticated(w, r, next, tokenString)
	})
}

func (a *Authenticator) serveAuthenticated(w http.ResponseWriter, r *http.Request, next http.Handler, tokenString string) {
	claims, err := a.tokens.Parse(tokenString, tokenTypeAccess)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, _ := claims.UserID()

	user, err := a.users.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeServiceError(w, r, err, "user", "load user")
		return
	}
	if user.Status != types.UserActive {
		writeError(w, http.StatusForbidden, "account is not active")
		return
	}

	ctx := context.WithValue(r.Context(), contextUserKey, user)
	ctx = context.WithValue(ctx, contextClaimsKey, claims)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// RequireRole admits authenticated users holding any of roles. It must run
// after RequireAuth.
func RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := actorFromContext(r.Context())
			if user.ID == 0 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !user.HasRole(roles...) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Register creates a new user account and returns a token pair.
func (a *Authenticator) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "user", "create user")
		return
	}
	a.writeSession(w, r, http.StatusCreated, user)
}

// Login verifies credentials and returns a token pair.
func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := a.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "user", "authenticate")
		return
	}
	a.writeSession(w, r, http.StatusOK, user)
}

// Refresh exchanges a refresh token for a new pair. The old refresh token is
// revoked.
func (a *Authenticator) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := a.tokens.Parse(strings.TrimSpace(req.RefreshToken), tokenTypeRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	userID, _ := claims.UserID()

	user, err := a.users.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeServiceError(w, r, err, "user", "refresh session")
		return
	}
	if user.Status != types.UserActive {
		writeError(w, http.StatusForbidden, "account is not active")
		return
	}

	a.tokens.Revoke(claims)
	a.writeSession(w, r, http.StatusOK, user)
}

// Logout revokes the presented access token and, when supplied, the refresh token.
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := r.Context().Value(contextClaimsKey).(Claims); ok {
		a.tokens.Revoke(claims)
	}

	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err == nil && req.RefreshToken != "" {
			if claims, err := a.tokens.Parse(req.RefreshToken, tokenTypeRefresh); err == nil {
				a.tokens.Revoke(claims)
			}
		}
	}
	writeMessage(w, http.StatusOK, "logged out")
}

// Me returns the current authenticated user.
func (a *Authenticator) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actorFromContext(r.Context()).Public())
}

func (a *Authenticator) writeSession(w http.ResponseWriter, r *http.Request, status int, user types.User) {
	pair, err := a.tokens.Issue(user.ID)
	if err != nil {
		writeServiceError(w, r, err, "user", "create token")
		return
	}
	writeJSON(w, status, AuthResponse{TokenPair: pair, User: user.Public()})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	TokenPair
	User types.PublicUser `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
