package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/docuvec/docuvec/internal/config"
	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/models"
)

type AuthHandler struct {
	dbclient core.DbClient
	cfg      *config.Config
}

func NewAuthHandler(dbclient core.DbClient, cfg *config.Config) *AuthHandler {
	return &AuthHandler{dbclient: dbclient, cfg: cfg}
}

type signupRequest struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "could not hash password", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	if err := h.dbclient.CreateUser(r.Context(), user); err != nil {
		http.Error(w, "user exists", http.StatusConflict)
		return
	}

	token := h.generateJWT(user.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	user, err := h.dbclient.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user == nil ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token := h.generateJWT(user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// generateJWT creates a signed token with user ID claim
func (h *AuthHandler) generateJWT(userID string) string {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, _ := tok.SignedString([]byte(h.cfg.JwtSecret))
	return token
}
