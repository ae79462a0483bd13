package httpserver

import (
	"context"

	"github.com/and161185/pinboard/internal/model"
	"github.com/gin-gonic/gin"
)

type ctxKey string

const sessionKey ctxKey = "pb.session"

// WithSession stores the authenticated session in ctx.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromCtx fetches the session stored by WithSession.
func SessionFromCtx(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok && s != nil
}

// current is the session of the request, or nil.
func current(c *gin.Context) *model.Session {
	s, _ := SessionFromCtx(c.Request.Context())
	return s
}
