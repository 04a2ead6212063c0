package handlers

import (
	"errors"
	"net/http"

	"controlling_heatpump/internal/repository"
	"controlling_heatpump/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errCredentials = "invalid credentials"
	errAuthBackend = "authentication unavailable"
)

// operatorCredentials is the body of both sign-up and sign-in.
type operatorCredentials struct {
	Username string `json:"username" binding:"required" example:"operator"`
	Password string `json:"password" binding:"required" example:"warm-and-dry"`
}

func (h *Handler) bindCredentials(c *gin.Context) (operatorCredentials, bool) {
	var in operatorCredentials
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.Infow("auth_bad_request_body", "route", c.FullPath(), "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return in, false
	}
	return in, true
}

// signUpStatus maps an operator registration error to an HTTP status.
func signUpStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyUsername), errors.Is(err, service.ErrEmptyPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// @Summary      Register an operator
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   operatorCredentials  true  "Credentials"
// @Success      200   {object}  map[string]int  "id"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	id, err := h.services.SignUp(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		code := signUpStatus(err)
		if code == http.StatusInternalServerError {
			h.logAndJSONError(c, code, errAuthBackend, "auth_sign_up_failed", err, "username", in.Username)
			return
		}
		h.log.Infow("auth_sign_up_rejected", "username", in.Username, "err", err)
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}

	h.log.Infow("auth_operator_registered", "operator_id", id, "username", in.Username)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Issue a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   operatorCredentials  true  "Credentials"
// @Success      200   {object}  map[string]string  "token"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	token, err := h.services.GenerateToken(c.Request.Context(), in.Username, in.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"token": token})
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidPassword):
		h.log.Infow("auth_sign_in_rejected", "username", in.Username, "err", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": errCredentials})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errAuthBackend, "auth_sign_in_failed", err, "username", in.Username)
	}
}
