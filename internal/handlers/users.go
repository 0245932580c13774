package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

const minPasswordLength = 8

// registerFormLimit bounds the in-memory portion of profile image uploads.
const registerFormLimit = 32 << 20

// UserHandler implements registration, login, and account management.
type UserHandler struct {
	Users        UserStore
	Tokens       TokenService
	Media        MediaStorage
	Limiter      RateLimiter
	CookieSecure bool
	NowFunc      func() time.Time
}

// Register handles POST /api/v1/users/register. It accepts a multipart form
// with profile fields plus a required avatar and optional cover image.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(registerFormLimit); err != nil {
		logger.Warn("invalid register form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	username := strings.TrimSpace(strings.ToLower(r.FormValue("username")))
	password := r.FormValue("password")

	if fullName == "" || email == "" || username == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName, email, username and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(password) < minPasswordLength {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer avatarFile.Close()

	avatarURL, err := storeUpload(ctx, h.Media, "avatars", avatarFile, avatarHeader.Filename)
	if err != nil {
		logger.Error("store avatar", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	var coverImageURL string
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		coverImageURL, err = storeUpload(ctx, h.Media, "covers", coverFile, coverHeader.Filename)
		if err != nil {
			logger.Error("store cover image", "error", err)
			h.discard(ctx, avatarURL)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		h.discard(ctx, avatarURL, coverImageURL)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverImageURL,
		Password:      string(hashed),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Uniqueness is enforced by the database's unique indexes; there is no
	// advisory pre-check to race against.
	if err := h.Users.Create(ctx, user); err != nil {
		h.discard(ctx, avatarURL, coverImageURL)
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "username or email already exists")
			return
		}
		logger.Error("create user", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondData(ctx, w, http.StatusCreated, user.PublicProfile(), "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(strings.ToLower(req.Username))
	if identifier == "" {
		identifier = strings.TrimSpace(strings.ToLower(req.Email))
	}
	if identifier == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email, and password are required")
		return
	}

	user, err := h.Users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		logger.Warn("login user lookup failed", "identifier", identifier, "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Tokens.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("issue tokens", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setAuthCookies(w, tokens, h.CookieSecure)
	respondData(ctx, w, http.StatusOK, loginResponse{
		User:   user.PublicProfile(),
		Tokens: tokens,
	}, "logged in successfully")
}

// Logout handles POST /api/v1/users/logout. It clears the stored refresh
// token so the session chain cannot be continued.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Users.ClearRefreshToken(ctx, user.ID); err != nil {
		logging.FromContext(ctx).Error("clear refresh token", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to log out")
		return
	}

	clearAuthCookies(w, h.CookieSecure)
	respondData(ctx, w, http.StatusOK, nil, "logged out successfully")
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token may
// arrive in a cookie or the request body; a successful rotation invalidates
// the presented token permanently.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "refresh") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many refresh attempts")
		return
	}

	refreshToken := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		refreshToken = cookie.Value
	}
	if refreshToken == "" && r.Body != nil {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			refreshToken = strings.TrimSpace(req.RefreshToken)
		}
	}
	if refreshToken == "" {
		respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	tokens, err := h.Tokens.Rotate(ctx, refreshToken)
	if err != nil {
		logger.Warn("refresh rejected", "error", err)
		switch {
		case errors.Is(err, auth.ErrRefreshReused):
			respondError(ctx, w, http.StatusUnauthorized, "refresh token expired or reused")
		case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenInvalid):
			respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token: "+err.Error())
		default:
			respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		}
		return
	}

	setAuthCookies(w, tokens, h.CookieSecure)
	respondData(ctx, w, http.StatusOK, tokens, "tokens refreshed successfully")
}

// Current handles GET /api/v1/users/current.
func (h UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}
	respondData(ctx, w, http.StatusOK, user.PublicProfile(), "current user fetched")
}

// ChangePassword handles PATCH /api/v1/users/password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "old and new passwords are required")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	// The context user has credential fields blanked; fetch the stored hash.
	user, err := h.Users.FindByID(ctx, actor.ID)
	if err != nil {
		logger.Error("load user for password change", "error", err, "userId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to change password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "old password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash new password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		logger.Error("update password", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to change password")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "password changed successfully")
}

// UpdateAccount handles PATCH /api/v1/users/account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if fullName == "" || email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName and email are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.Users.UpdateProfile(ctx, actor.ID, fullName, email); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "email already in use")
			return
		}
		logger.Error("update profile", "error", err, "userId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update account")
		return
	}

	updated, err := h.Users.FindByID(ctx, actor.ID)
	if err != nil {
		logger.Error("reload updated profile", "error", err, "userId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update account")
		return
	}

	respondData(ctx, w, http.StatusOK, updated.PublicProfile(), "account updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", func(u models.User) string { return u.AvatarURL }, h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", func(u models.User) string { return u.CoverImageURL }, h.Users.UpdateCoverImage)
}

// replaceImage implements the two-phase image swap shared by avatar and cover
// updates: the new object is stored first, the row is updated, and only then
// is the old object removed. A failed row update deletes the new object; a
// failed old-object delete is logged with the orphaned location instead of
// failing the request.
func (h UserHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	currentURL func(models.User) string,
	persist func(ctx context.Context, userID, url string) error,
) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(registerFormLimit); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, field+" file is required")
		return
	}
	defer file.Close()

	prefix := "avatars"
	if field == "coverImage" {
		prefix = "covers"
	}

	newURL, err := storeUpload(ctx, h.Media, prefix, file, header.Filename)
	if err != nil {
		logger.Error("store "+field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store "+field)
		return
	}

	if err := persist(ctx, actor.ID, newURL); err != nil {
		// Compensate: the row still points at the old object.
		h.discard(ctx, newURL)
		logger.Error("persist "+field, "error", err, "userId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update "+field)
		return
	}

	if old := currentURL(actor); old != "" {
		if err := h.Media.Delete(ctx, old); err != nil {
			logger.Error("delete replaced "+field, "error", err, "orphanedLocation", old)
		}
	}

	updated, err := h.Users.FindByID(ctx, actor.ID)
	if err != nil {
		logger.Error("reload updated profile", "error", err, "userId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update "+field)
		return
	}

	respondData(ctx, w, http.StatusOK, updated.PublicProfile(), field+" updated successfully")
}

// discard best-effort deletes stored objects after a failed multi-step write.
func (h UserHandler) discard(ctx context.Context, locations ...string) {
	for _, location := range locations {
		if location == "" {
			continue
		}
		if err := h.Media.Delete(ctx, location); err != nil {
			logging.FromContext(ctx).Error("discard stored object", "error", err, "location", location)
		}
	}
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User   models.PublicProfile `json:"user"`
	Tokens models.TokenPair     `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
