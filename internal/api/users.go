package api

import (
	"net/http"
	"time"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func maxAge(expires time.Time) int {
	secs := int(time.Until(expires).Seconds())
	if secs < 1 {
		return -1
	}
	return secs
}

// setSession stores both tokens in HttpOnly cookies. The Google flow runs
// cross-site from the identity popup, so it needs SameSite=None.
func (h *Handler) setSession(c *gin.Context, s *service.Session, sameSite http.SameSite) {
	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, s.AccessToken, maxAge(s.AccessExpiresAt), "/", h.opts.CookieDomain, h.opts.CookieSecure, true)
	c.SetCookie(refreshCookie, s.RefreshToken, maxAge(s.RefreshExpiresAt), "/api/users", h.opts.CookieDomain, h.opts.CookieSecure, true)
}

func (h *Handler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, "", -1, "/", h.opts.CookieDomain, h.opts.CookieSecure, true)
	c.SetCookie(refreshCookie, "", -1, "/api/users", h.opts.CookieDomain, h.opts.CookieSecure, true)
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.svc.Auth.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setSession(c, session, http.SameSiteLaxMode)
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.svc.Auth.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setSession(c, session, http.SameSiteLaxMode)
	c.JSON(http.StatusOK, session)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshTokenFrom prefers the cookie and falls back to a JSON body.
func refreshTokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(refreshCookie); err == nil && v != "" {
		return v
	}
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	return req.RefreshToken
}

func (h *Handler) refresh(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token == "" {
		abort(c, http.StatusUnauthorized, "User.InvalidRefreshToken", "Session expired, please sign in again")
		return
	}
	session, err := h.svc.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		h.clearSession(c)
		h.respondError(c, err)
		return
	}
	h.setSession(c, session, http.SameSiteLaxMode)
	c.JSON(http.StatusOK, session)
}

func (h *Handler) logout(c *gin.Context) {
	if token := refreshTokenFrom(c); token != "" {
		if err := h.svc.Auth.Logout(c.Request.Context(), token); err != nil {
			h.respondError(c, err)
			return
		}
	}
	h.clearSession(c)
	c.Status(http.StatusNoContent)
}

type googleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

func (h *Handler) googleLogin(c *gin.Context) {
	var req googleLoginRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.svc.Auth.GoogleLogin(c.Request.Context(), req.IDToken)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setSession(c, session, http.SameSiteNoneMode)
	c.JSON(http.StatusOK, session)
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req service.ForgotPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Otp.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a code has been sent"})
}

func (h *Handler) verifyOtp(c *gin.Context) {
	var req service.VerifyOtpRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Otp.VerifyOtp(c.Request.Context(), req.Email, req.Code); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code is valid"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Otp.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (h *Handler) getProfile(c *gin.Context) {
	user, err := h.svc.Auth.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req service.ProfileInput
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.Auth.UpdateProfile(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Auth.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	h.clearSession(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) listUsers(c *gin.Context) {
	limit, offset := pageParams(c)
	users, err := h.svc.Auth.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) setUserRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req setRoleRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.Auth.SetRole(c.Request.Context(), id, req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
