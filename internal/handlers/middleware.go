package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorIDKey holds the authenticated operator id in the gin context.
const operatorIDKey = "operator_id"

const (
	errAuthMissing = "missing Authorization header"
	errAuthScheme  = "Authorization header must be 'Bearer <token>'"
	errAuthToken   = "invalid or expired token"
)

// requireOperator authenticates the bearer token and stores the operator id
// under operatorIDKey. Rejections are logged with the route and client.
func (h *Handler) requireOperator(c *gin.Context) {
	token, reason := bearerToken(c.GetHeader("Authorization"))
	if reason != "" {
		h.rejectOperator(c, reason, nil)
		return
	}

	id, err := h.services.ParseToken(token)
	if err != nil {
		h.rejectOperator(c, errAuthToken, err)
		return
	}

	c.Set(operatorIDKey, id)
	c.Next()
}

func (h *Handler) rejectOperator(c *gin.Context, reason string, err error) {
	kv := []interface{}{"reason", reason, "route", c.FullPath(), "remote", c.ClientIP()}
	if err != nil {
		kv = append(kv, "err", err)
	}
	h.log.Infow("auth_rejected", kv...)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
}

// bearerToken extracts the token from an Authorization header value. A
// non-empty reason describes why the header was refused.
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", errAuthMissing
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errAuthScheme
	}
	return token, ""
}

// operatorID returns the id set by requireOperator, or 0 outside the api group.
func operatorID(c *gin.Context) int {
	return c.GetInt(operatorIDKey)
}
