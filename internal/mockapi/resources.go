package mockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/fmdesk/internal/adapter"
	"github.com/roach88/fmdesk/internal/identity"
	"github.com/roach88/fmdesk/internal/model"
)

const maxBody = 1 << 20

type claimsKey struct{}

// requireBearer rejects requests without a valid access token.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.verify(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (s *Server) verify(r *http.Request) (*identity.Claims, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, fmt.Errorf("missing bearer token")
	}
	claims := &identity.Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return nil, false
	}
	return body, true
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// Users.

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := s.users.list()
	s.mu.Unlock()
	// Users come wrapped, service requests bare: the real API does both.
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	raw, ok := s.users.get(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey{}).(*identity.Claims)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.identities {
		if id.Subject != claims.Subject {
			continue
		}
		if raw, ok := s.users.get(id.UserID); ok {
			writeJSON(w, http.StatusOK, raw)
			return
		}
	}
	writeError(w, http.StatusNotFound, "no user record for "+claims.Subject)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	u, err := adapter.DecodeUser(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if u.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users.list() {
		other, err := adapter.DecodeUser(existing)
		if err == nil && strings.EqualFold(other.Email, u.Email) {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
	}
	u.ID = s.newID("u")
	raw, err := json.Marshal(adapter.UserToAPI(u))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.users.put(u.ID, raw)
	writeJSON(w, http.StatusCreated, json.RawMessage(raw))
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var changes model.UserChanges
	if err := json.Unmarshal(body, &changes); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	u, err := adapter.DecodeUser(current)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	raw, err := json.Marshal(adapter.UserToAPI(changes.Apply(u)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.users.put(id, raw)
	writeJSON(w, http.StatusOK, json.RawMessage(raw))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	removed := s.users.remove(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !removed {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Service requests.

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := s.requests.list()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	raw, ok := s.requests.get(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "service request not found")
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey{}).(*identity.Claims)
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var wire adapter.RawServiceRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	canon := wire.Canonical()
	if strings.TrimSpace(canon.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	if canon.Status == "" {
		canon.Status = string(model.DefaultRequestStatus)
	}
	if canon.Priority == "" {
		canon.Priority = string(model.DefaultPriority)
	}
	if canon.DateCreated.IsZero() {
		canon.DateCreated = s.now().UTC().Truncate(time.Second)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if canon.RequestedBy == "" {
		canon.RequestedBy = s.userIDFor(claims.Subject)
	}
	canon.ID = s.newID("r")
	raw, err := json.Marshal(adapter.ServiceRequestToAPI(adapter.ServiceRequestFromAPI(canon)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.requests.put(canon.ID, raw)
	writeJSON(w, http.StatusCreated, json.RawMessage(raw))
}

// userIDFor maps a token subject to its backend user. Callers hold s.mu.
func (s *Server) userIDFor(sub string) string {
	for _, id := range s.identities {
		if id.Subject == sub {
			return id.UserID
		}
	}
	return sub
}

func (s *Server) updateRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var changes model.ServiceRequestChanges
	if err := json.Unmarshal(body, &changes); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "service request not found")
		return
	}
	req, err := adapter.DecodeServiceRequest(current)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	raw, err := json.Marshal(adapter.ServiceRequestToAPI(changes.Apply(req)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.requests.put(id, raw)
	writeJSON(w, http.StatusOK, json.RawMessage(raw))
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	removed := s.requests.remove(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !removed {
		writeError(w, http.StatusNotFound, "service request not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
