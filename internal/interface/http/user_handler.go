package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/application"
	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/interface/middleware"
	"github.com/sobrhq/sobr-server/pkg/helpers"
	"github.com/sobrhq/sobr-server/pkg/response"
	"github.com/sobrhq/sobr-server/pkg/validation"
)

const maxAvatarSize = 5 << 20

type UserHandler struct {
	Svc     *application.UserService
	JWT     *helpers.JWTManager
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *application.UserService, jwt *helpers.JWTManager, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, JWT: jwt, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type upsertUserRequest struct {
	ID       string         `json:"id"`
	Email    string         `json:"email" binding:"required,email"`
	FullName string         `json:"full_name"`
	Role     string         `json:"role"`
	Metadata map[string]any `json:"metadata"`
}

type updateProfileRequest struct {
	Name          string         `json:"name"`
	AvatarURL     string         `json:"avatar_url"`
	Motivation    string         `json:"motivation"`
	RecoveryGoals []string       `json:"recovery_goals"`
	Metadata      map[string]any `json:"metadata"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,pwd"`
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, res, "login successful", map[string]any{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

func (h *UserHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie("refresh_token")
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, _, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, map[string]any{"refreshed": true}, "token refreshed", map[string]any{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	h.Svc.Logout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

// Upsert registers or updates a user keyed by email. Public, used by the
// client on first sign-in.
func (h *UserHandler) Upsert(c *gin.Context) {
	var req upsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Upsert(c.Request.Context(), application.UpsertInput{
		Email:    req.Email,
		Name:     req.FullName,
		Role:     req.Role,
		Metadata: req.Metadata,
	})
	if err != nil {
		if errors.Is(err, application.ErrInvalidRole) {
			response.Error[any](c, http.StatusBadRequest, "unknown role", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to save user", nil)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "user saved", nil)
}

// List returns the enriched directory: every user with role name and
// vetting state resolved.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.GetAll(c.Request.Context())
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to list users", nil)
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userView(&users[i]))
	}
	response.Success(c, http.StatusOK, out, "users", nil)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "profile", nil)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), uid, application.UpdateProfileInput{
		Name:          req.Name,
		AvatarURL:     req.AvatarURL,
		Motivation:    req.Motivation,
		RecoveryGoals: req.RecoveryGoals,
		Metadata:      req.Metadata,
	})
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "failed to update profile", err.Error())
		return
	}
	response.Success(c, http.StatusOK, userView(u), "profile updated", nil)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			response.Error[any](c, http.StatusUnauthorized, "current password incorrect", nil)
			return
		}
		response.Error[any](c, http.StatusBadRequest, "failed to change password", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"changed": true}, "password changed", nil)
}

// UploadAvatar accepts a multipart file field "avatar" and stores it in GCS.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	if fileHeader.Size > maxAvatarSize {
		response.Error[any](c, http.StatusBadRequest, "avatar too large", nil)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable avatar file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), uid, f, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to upload avatar", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"avatar_url": url}, "avatar uploaded", nil)
}

// Search queries the Elasticsearch user index. Admin only.
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "missing query", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		response.Error[any](c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}

func userView(u *entity.User) gin.H {
	return gin.H{
		"id":                  u.ID,
		"email":               u.Email,
		"full_name":           u.Name,
		"avatar_url":          u.AvatarURL,
		"role":                u.Role,
		"verified":            u.Vetted,
		"qualifications":      u.Qualifications,
		"years_of_experience": u.YearsOfExperience,
		"motivation":          u.Motivation,
		"recovery_goals":      u.RecoveryGoals,
		"created_at":          u.CreatedAt,
		"updated_at":          u.UpdatedAt,
	}
}
