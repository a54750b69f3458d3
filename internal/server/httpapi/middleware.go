package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey string

const (
	requestIDKey ctxKey = "requestID"
	viewerKey    ctxKey = "viewer"
)

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(common.RequestIDHeaderName, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey, id))
		c.Next()
	}
}

// identity trusts the user id set by the session layer in front of the API;
// requests without one see every album.
func (s *Server) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := models.ViewerFor(c.GetHeader(common.UserIDHeaderName))
		c.Set(string(viewerKey), v)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		id, _ := ctx.Value(requestIDKey).(string)
		s.logger.Debug(ctx, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", id,
		)
	}
}

func viewer(c *gin.Context) models.Viewer {
	if v, ok := c.Get(string(viewerKey)); ok {
		return v.(models.Viewer)
	}
	return models.AnyViewer()
}
