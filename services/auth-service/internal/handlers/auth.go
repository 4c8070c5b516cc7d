package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amiko-app/amiko/libs/auth"
	"github.com/amiko-app/amiko/libs/db"
	"github.com/amiko-app/amiko/services/auth-service/internal/audit"
	"github.com/amiko-app/amiko/services/auth-service/internal/deletion"
	"github.com/amiko-app/amiko/services/auth-service/internal/outbox"
	"github.com/amiko-app/amiko/services/auth-service/internal/sessions"
	"github.com/amiko-app/amiko/services/auth-service/internal/signup"
	"github.com/amiko-app/amiko/services/auth-service/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	signer      TokenSigner
	pool        *db.Pool
	users       *storage.UserRepository
	audit       *audit.Repository
	outbox      *outbox.Repository
	refreshRepo *sessions.RefreshRepository
	guard       *signup.Guard
	deleter     *deletion.Worker
	logger      *slog.Logger
	refreshTTL  time.Duration
}

func NewAuthHandler(
	signer TokenSigner,
	pool *db.Pool,
	users *storage.UserRepository,
	auditRepo *audit.Repository,
	outboxRepo *outbox.Repository,
	refreshRepo *sessions.RefreshRepository,
	guard *signup.Guard,
	deleter *deletion.Worker,
	logger *slog.Logger,
	refreshTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		signer:      signer,
		pool:        pool,
		users:       users,
		audit:       auditRepo,
		outbox:      outboxRepo,
		refreshRepo: refreshRepo,
		guard:       guard,
		deleter:     deleter,
		logger:      logger,
		refreshTTL:  refreshTTL,
	}
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	NativeLang string `json:"nativeLang"`
	Timezone   string `json:"timezone"`
	IsPartner  bool   `json:"isPartner"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type meResponse struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	NativeLang string `json:"nativeLang"`
	Timezone   string `json:"timezone,omitempty"`
	Role       string `json:"role"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.NativeLang != "ko" && req.NativeLang != "es" {
		writeError(w, http.StatusBadRequest, "nativeLang must be ko or es")
		return
	}
	if req.Timezone != "" && !validTimezone(req.Timezone) {
		writeError(w, http.StatusBadRequest, "invalid timezone")
		return
	}

	ctx := r.Context()
	reserved, err := h.guard.Reserve(ctx, req.Email)
	if err != nil {
		h.logger.Warn("signup guard unavailable, relying on unique index", "err", err)
	} else if !reserved {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		h.guard.Release(ctx, req.Email)
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	role := "user"
	if req.IsPartner {
		role = "partner"
	}
	user := storage.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		NativeLang:   req.NativeLang,
		Timezone:     req.Timezone,
		Role:         role,
		Status:       storage.StatusActive,
	}

	tx, err := h.pool.Begin(ctx)
	if err != nil {
		h.guard.Release(ctx, req.Email)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.users.CreateTx(ctx, tx, user); err != nil {
		h.guard.Release(ctx, req.Email)
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("create user failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	createdPayload, err := json.Marshal(map[string]any{
		"userId":     user.ID,
		"email":      user.Email,
		"nativeLang": user.NativeLang,
		"role":       user.Role,
		"createdAt":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to marshal user event")
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "user",
		AggregateID:   user.ID,
		EventType:     outbox.EventUserCreated,
		Payload:       createdPayload,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue user event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.guard.Release(ctx, req.Email)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	h.guard.Release(ctx, req.Email)

	token, err := issueJWT(user, h.signer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	refreshToken, err := h.issueRefreshToken(ctx, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{
		AccessToken:  token,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("user lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to lookup user")
		return
	}
	if err := verifyPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := issueJWT(user, h.signer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	refreshToken, err := h.issueRefreshToken(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  token,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken required")
		return
	}

	hash := sessions.HashToken(req.RefreshToken)
	record, err := h.refreshRepo.GetByHash(r.Context(), hash)
	if err != nil {
		if sessions.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to lookup refresh token")
		return
	}
	if record.RevokedAt != nil || record.ExpiresAt.Before(time.Now()) {
		writeError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	user, err := h.users.GetByID(r.Context(), record.UserID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to lookup user")
		return
	}

	if err := h.refreshRepo.Revoke(r.Context(), record.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to rotate refresh token")
		return
	}
	newRefresh, err := h.issueRefreshToken(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}
	newAccess, err := issueJWT(user, h.signer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  newAccess,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken required")
		return
	}

	hash := sessions.HashToken(req.RefreshToken)
	record, err := h.refreshRepo.GetByHash(r.Context(), hash)
	if err != nil {
		if sessions.IsNotFound(err) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to lookup refresh token")
		return
	}
	if record.RevokedAt == nil {
		if err := h.refreshRepo.Revoke(r.Context(), record.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to revoke refresh token")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetByID(r.Context(), claims.Sub)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to lookup user")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserID:     user.ID,
		Email:      user.Email,
		Phone:      user.Phone,
		NativeLang: user.NativeLang,
		Timezone:   user.Timezone,
		Role:       user.Role,
	})
}

func (h *AuthHandler) UpdateTimezone(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return
	}
	var req struct {
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Timezone != "" && !validTimezone(req.Timezone) {
		writeError(w, http.StatusBadRequest, "invalid timezone")
		return
	}
	if err := h.users.UpdateTimezone(r.Context(), claims.Sub, req.Timezone); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update timezone")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccount marks the account pending deletion and runs the
// teardown in the background; the client sees 202 immediately.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return
	}
	userID := claims.Sub

	if h.audit != nil {
		_ = h.audit.Record(r.Context(), "auth.account.delete_requested", userID, nil)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := h.deleter.Delete(ctx, userID); err != nil {
			h.logger.Error("account deletion did not converge, left pending", "userId", userID, "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": storage.StatusPendingDeletion})
}

func (h *AuthHandler) bearerClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
		return nil, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	claims, err := h.signer.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	return claims, true
}

func issueJWT(user storage.User, signer TokenSigner) (string, error) {
	now := time.Now()
	return signer.Sign(auth.Claims{
		Sub:  user.ID,
		Role: user.Role,
		Lang: user.NativeLang,
		Iat:  now.Unix(),
		Exp:  now.Add(1 * time.Hour).Unix(),
	})
}

func (h *AuthHandler) issueRefreshToken(ctx context.Context, userID string) (string, error) {
	raw, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(h.refreshTTL)
	if _, err := h.refreshRepo.Create(ctx, userID, raw, expiresAt); err != nil {
		return "", err
	}
	return raw, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func validTimezone(name string) bool {
	_, err := time.LoadLocation(name)
	return err == nil
}

func hashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash string, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}
