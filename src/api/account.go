package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"sp2any/src/auth"
	"sp2any/src/secretstore"
	"sp2any/src/users"
)

// sessionTTL is how long an issued bearer token remains valid.
const sessionTTL = 7 * 24 * time.Hour

// AccountHandler implements registration and login, the thin stand-in for
// the out-of-scope registration/JWT collaborator.
type AccountHandler struct {
	Store     *secretstore.Store
	JWTSecret string
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /v1/register.
func (h AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not hash password")
		return
	}
	userID, err := h.Store.CreateUser(r.Context(), users.Email{Inner: req.Email}, hash)
	if err != nil {
		writeError(w, http.StatusConflict, "conflict", "could not create user")
		return
	}
	token, err := auth.IssueToken(h.JWTSecret, userID, sessionTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not issue session")
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]string{"user_id": userID.String(), "token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/login.
func (h AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request")
		return
	}
	userID, hash, err := h.Store.GetUserByEmail(r.Context(), users.Email{Inner: req.Email})
	if err != nil {
		if errors.Is(err, secretstore.ErrNoSuchUser) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}
	if !auth.CheckPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}
	token, err := auth.IssueToken(h.JWTSecret, userID, sessionTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not issue session")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"user_id": userID.String(), "token": token})
}
