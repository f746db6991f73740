package mockapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/roach88/fmdesk/internal/identity"
)

const (
	issuer  = "fmdesk-mockapi"
	codeTTL = 5 * time.Minute
)

type authCode struct {
	fixture     string
	challenge   string
	redirectURI string
	clientID    string
	issued      time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// IssueToken signs an access token for the identity fixture, the way a
// completed login would.
func (s *Server) IssueToken(fixture string) (string, error) {
	s.mu.Lock()
	id, ok := s.identities[fixture]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("mockapi: unknown identity fixture %q", fixture)
	}
	return s.sign(id)
}

func (s *Server) sign(id Identity) (string, error) {
	now := s.now()
	claims := identity.Claims{
		Email:         id.Email,
		Name:          id.Name,
		Scope:         id.Scope,
		OrgID:         id.OrgID,
		EnterpriseSSO: id.EnterpriseSSO,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// handleAuthorize signs in the selected identity without a login page and
// redirects straight back with a code. A login_hint naming a fixture
// overrides LoginAs.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("response_type") != "code" {
		writeError(w, http.StatusBadRequest, "unsupported_response_type")
		return
	}
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || q.Get("redirect_uri") == "" || q.Get("client_id") == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	challenge := q.Get("code_challenge")
	if challenge != "" && q.Get("code_challenge_method") != "S256" {
		writeError(w, http.StatusBadRequest, "invalid_request: only S256 challenges are supported")
		return
	}

	code := uuid.NewString()
	s.mu.Lock()
	fixture := s.loginAs
	if hint := q.Get("login_hint"); hint != "" {
		if _, ok := s.identities[hint]; ok {
			fixture = hint
		}
	}
	s.codes[code] = authCode{
		fixture:     fixture,
		challenge:   challenge,
		redirectURI: q.Get("redirect_uri"),
		clientID:    q.Get("client_id"),
		issued:      s.now(),
	}
	s.mu.Unlock()

	back := redirect.Query()
	back.Set("code", code)
	if state := q.Get("state"); state != "" {
		back.Set("state", state)
	}
	redirect.RawQuery = back.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	clientID := r.PostForm.Get("client_id")
	if user, _, ok := r.BasicAuth(); ok && clientID == "" {
		clientID = user
	}

	var fixture string
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		s.mu.Lock()
		code, ok := s.codes[r.PostForm.Get("code")]
		delete(s.codes, r.PostForm.Get("code"))
		s.mu.Unlock()
		if !ok || s.now().Sub(code.issued) > codeTTL || code.clientID != clientID {
			writeError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		if uri := r.PostForm.Get("redirect_uri"); uri != "" && uri != code.redirectURI {
			writeError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		if code.challenge != "" && !verifyChallenge(r.PostForm.Get("code_verifier"), code.challenge) {
			writeError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		fixture = code.fixture
	case "refresh_token":
		old := r.PostForm.Get("refresh_token")
		s.mu.Lock()
		f, ok := s.refresh[old]
		delete(s.refresh, old)
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		fixture = f
	default:
		writeError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}

	s.mu.Lock()
	id := s.identities[fixture]
	refresh := uuid.NewString()
	s.refresh[refresh] = fixture
	s.mu.Unlock()

	access, err := s.sign(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenTTL / time.Second),
		RefreshToken: refresh,
		Scope:        id.Scope,
	})
}

func verifyChallenge(verifier, challenge string) bool {
	if verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	got := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(challenge)) == 1
}

func (s *Server) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	claims, err := s.verify(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.identities {
		if id.Subject == claims.Subject {
			writeJSON(w, http.StatusOK, map[string]any{
				"sub":            id.Subject,
				"email":          id.Email,
				"name":           id.Name,
				"picture":        id.Picture,
				"org_id":         id.OrgID,
				"enterprise_sso": id.EnterpriseSSO,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown subject")
}

// handleLogout ends every session and redirects to returnTo when given.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.refresh = map[string]string{}
	s.mu.Unlock()

	if to := r.URL.Query().Get("returnTo"); to != "" {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("logged out"))
}
