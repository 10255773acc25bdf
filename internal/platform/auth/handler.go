package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler serves the admin login and logout endpoints.
type Handler struct {
	creds        Credentials
	issuer       *SessionIssuer
	revoked      *RevocationStore
	secureCookie bool
}

func NewHandler(creds Credentials, issuer *SessionIssuer, revoked *RevocationStore, secureCookie bool) *Handler {
	return &Handler{creds: creds, issuer: issuer, revoked: revoked, secureCookie: secureCookie}
}

// RegisterRoutes mounts login on the public group and logout on the
// authenticated admin group.
func (h *Handler) RegisterRoutes(api *echo.Group, admin *echo.Group) {
	api.POST("/admin/login", h.Login)
	admin.POST("/logout", h.Logout)
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	if !h.creds.Verify(req.Username, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, claims, err := h.issuer.Issue(req.Username, []string{RoleAdmin})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	expires := claims.ExpiresAt.Time
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(http.StatusOK, loginResponse{Token: token, Username: req.Username, ExpiresAt: expires})
}

func (h *Handler) Logout(c echo.Context) error {
	if claims := SessionFromContext(c.Request().Context()); claims != nil && h.revoked != nil {
		exp := time.Now().Add(time.Hour)
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		h.revoked.Revoke(claims.ID, exp)
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return c.NoContent(http.StatusNoContent)
}
