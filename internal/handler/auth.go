package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bistro-admin/api/internal/auth"
	"github.com/bistro-admin/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetAdminByEmail(ctx context.Context, email string) (database.AdminUser, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (database.AdminUser, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	Admin        adminResponse `json:"admin"`
}

type adminResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondBadRequest(w, "email and password are required")
		return
	}

	admin, err := h.store.GetAdminByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondUnauthorized(w, "invalid credentials")
			return
		}
		respondServerError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(req.Password)); err != nil {
		respondUnauthorized(w, "invalid credentials")
		return
	}

	h.respondWithTokens(w, admin)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		respondBadRequest(w, "refreshToken is required")
		return
	}

	// Parse refresh token -- it uses RegisteredClaims with Subject = admin ID.
	token, err := jwt.ParseWithClaims(req.RefreshToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		respondUnauthorized(w, "invalid refresh token")
		return
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		respondUnauthorized(w, "invalid refresh token")
		return
	}

	adminID, err := uuid.Parse(claims.Subject)
	if err != nil {
		respondUnauthorized(w, "invalid refresh token")
		return
	}

	admin, err := h.store.GetAdminByID(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondUnauthorized(w, "admin not found")
			return
		}
		respondServerError(w, err)
		return
	}

	h.respondWithTokens(w, admin)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, admin database.AdminUser) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, admin.ID, admin.Email)
	if err != nil {
		respondServerError(w, err)
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, admin.ID)
	if err != nil {
		respondServerError(w, err)
		return
	}

	respondData(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Admin: adminResponse{
			ID:       admin.ID,
			FullName: admin.FullName,
			Email:    admin.Email,
		},
	})
}
