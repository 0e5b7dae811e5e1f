package apis

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/RobertPKyle/proofqr/ledger"
)

var ErrMissingParameter = errors.New("missing parameter")

const (
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
)

// RequestID tags every request with an id, reusing the caller's one if sent.
func RequestID(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(RequestIDHeader, id)
	c.Next()
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// requireQuery returns the named query parameter or ErrMissingParameter.
func requireQuery(c *gin.Context, name string) (string, error) {
	v := c.Query(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	return v, nil
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// anchorStatus maps a generate failure to its HTTP status.
func anchorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrSignerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrAnchoringFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ExplorerLink joins a block explorer base URL and a transaction hash.
func ExplorerLink(base, txHash string) string {
	if base == "" || txHash == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/" + txHash
}
