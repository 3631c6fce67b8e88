package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

// errParam marks a malformed query parameter or body.
var errParam = errors.New("invalid parameter")

// Error codes carried in the envelope's "code" field. Clients use them to
// tell apart failures that share a status, such as a bad parameter and an
// offset outside the buffer.
const (
	CodeInvalidParameter = "invalid_parameter"
	CodeOutOfRange       = "out_of_range"
	CodeNotFound         = "not_found"
	CodeSessionClosed    = "session_closed"
	CodeShutdown         = "shutdown"
	CodeInterrupted      = "interrupted"
	CodeInternal         = "internal"
)

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{errParam, http.StatusBadRequest, CodeInvalidParameter},
	{chardev.ErrOutOfRange, http.StatusBadRequest, CodeOutOfRange},
	{chardev.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{chardev.ErrSessionClosed, http.StatusGone, CodeSessionClosed},
	{chardev.ErrShutdown, http.StatusServiceUnavailable, CodeShutdown},
	{chardev.ErrInterrupted, http.StatusRequestTimeout, CodeInterrupted},
}

// classify maps device errors to an HTTP status and envelope code.
func classify(err error) (int, string) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

func statusFor(err error) int {
	status, _ := classify(err)
	return status
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code := classify(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}
