package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/testcenter/internal/apiclient"
	"github.com/stemsi/testcenter/internal/response"
	"github.com/stemsi/testcenter/internal/service"
)

const (
	// ContextKeyCandidate is the Gin context key for the resolved candidate.
	ContextKeyCandidate = "candidate"
)

// CandidateFactory builds the candidate, with a backend client authenticated
// as them, from their bearer token.
type CandidateFactory func(token string) service.Candidate

// RequireCandidate resolves the caller from the Authorization header, or from
// ?token= for WebSocket upgrades which cannot send headers. The token is
// forwarded to the backend untouched; only its presence and expiry are
// checked here.
func RequireCandidate(newCandidate CandidateFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if _, err := apiclient.StaticToken(token).Token(); err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, apiclient.ErrCredentialExpired) {
				code = response.ErrTokenExpired
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		c.Set(ContextKeyCandidate, newCandidate(token))
		c.Next()
	}
}

// GetCandidate retrieves the candidate set by RequireCandidate.
func GetCandidate(c *gin.Context) (service.Candidate, bool) {
	val, exists := c.Get(ContextKeyCandidate)
	if !exists {
		return service.Candidate{}, false
	}
	cand, ok := val.(service.Candidate)
	return cand, ok
}

func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.Query("token"))
}
