package http

import (
	"net/http"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/service"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var in service.UserInput
	if !bind(c, &in) {
		return
	}

	user, err := h.deps.Users.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	session, err := h.deps.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, session.Token, maxAge, "/", "", h.cfg.SecureCookie, true)
	respond(c, http.StatusOK, session)
}

func (h *Handler) handleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.cfg.SecureCookie, true)
	respondMessage(c, http.StatusOK, "logged out")
}

func (h *Handler) handleMe(c *gin.Context) {
	user, err := h.deps.Users.Me(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *Handler) handleListUsers(c *gin.Context) {
	users, err := h.deps.Users.ListUsers(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, users)
}

func (h *Handler) handleCreateUser(c *gin.Context) {
	var in service.UserInput
	if !bindAuthenticated(c, &in) {
		return
	}

	user, err := h.deps.Users.CreateUser(c.Request.Context(), identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

func (h *Handler) handleGetUser(c *gin.Context) {
	user, err := h.deps.Users.GetUser(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *Handler) handleUpdateUser(c *gin.Context) {
	var in service.UserInput
	if !bindAuthenticated(c, &in) {
		return
	}

	user, err := h.deps.Users.UpdateUser(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *Handler) handleDeleteUser(c *gin.Context) {
	if err := h.deps.Users.DeleteUser(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "user deleted")
}
