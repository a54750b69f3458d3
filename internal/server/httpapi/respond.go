package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/gin-gonic/gin"
)

func respSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"message": "",
		"data":    data,
	})
}

func respErrorStr(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": msg,
	})
}

// respError maps the error taxonomy onto HTTP statuses. Storage and
// internal failures are logged and reported without detail.
func (s *Server) respError(c *gin.Context, err error) {
	var status int
	switch common.KindOf(err) {
	case common.ErrValidation:
		status = http.StatusBadRequest
	case common.ErrConflict:
		status = http.StatusConflict
	case common.ErrNotFound:
		status = http.StatusNotFound
	case common.ErrInvalidToken:
		status = http.StatusForbidden
	default:
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			respErrorStr(c, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		respErrorStr(c, http.StatusInternalServerError, "internal error")
		return
	}
	respErrorStr(c, status, err.Error())
}
