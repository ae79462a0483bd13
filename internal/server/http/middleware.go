package httpserver

import (
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/and161185/pinboard/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ZapLogger logs method, route, status, duration and client address. Bodies and query strings are never logged.
func ZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("http", fields...)
			return
		}
		log.Info("http", fields...)
	}
}

// ZapRecovery turns a handler panic into a 500.
func ZapRecovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("route", c.FullPath()),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

const sessionErrKey = "pb.sessionErr"

// token reads the bearer header first, then the session cookie. fromCookie tells which one.
func (s *Server) token(c *gin.Context) (tok string, fromCookie bool) {
	if h := c.GetHeader("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):]), false
		}
	}
	if v, err := c.Cookie(s.opts.CookieName); err == nil {
		return v, true
	}
	return "", false
}

// loadSession resolves the caller's session into the request context. A failed check is recorded
// for the gates and never treated as signed in. Cookie sessions close to expiry are refreshed.
func (s *Server) loadSession(c *gin.Context) {
	tok, fromCookie := s.token(c)
	if tok == "" {
		c.Next()
		return
	}
	sess, err := s.sessions.Current(c.Request.Context(), tok)
	switch {
	case err != nil:
		s.log.Warn("session check failed", zap.Error(err))
		c.Set(sessionErrKey, err)
	case sess == nil:
		if fromCookie {
			s.clearCookie(c)
		}
	default:
		if fromCookie {
			if fresh, rerr := s.sessions.Refresh(c.Request.Context(), sess); rerr == nil && fresh.AccessToken != sess.AccessToken {
				s.setCookie(c, fresh)
				sess = fresh
			}
		}
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), sess))
	}
	c.Next()
}

func sessionErr(c *gin.Context) error {
	if v, ok := c.Get(sessionErrKey); ok {
		err, _ := v.(error)
		return err
	}
	return nil
}

// gatePages applies route gating: failed checks get a retry page, anonymous users go to /login,
// signed-in users skip /login.
func (s *Server) gatePages(c *gin.Context) {
	if err := sessionErr(c); err != nil {
		s.renderError(c, http.StatusServiceUnavailable, "We couldn't verify your session. Please try again.", err)
		c.Abort()
		return
	}
	onLogin := c.FullPath() == "/login"
	signedIn := current(c) != nil
	switch {
	case onLogin && signedIn:
		c.Redirect(http.StatusSeeOther, "/")
		c.Abort()
	case !onLogin && !signedIn:
		c.Redirect(http.StatusSeeOther, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	default:
		c.Next()
	}
}

// requireAPI rejects API calls without a session.
func (s *Server) requireAPI(c *gin.Context) {
	if err := sessionErr(c); err != nil {
		s.apiError(c, err)
		return
	}
	if current(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("sign in required", "auth"))
		return
	}
	c.Next()
}

func (s *Server) setCookie(c *gin.Context, sess *model.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.opts.CookieName, sess.AccessToken, maxAge, "/", "", s.opts.CookieSecure, true)
}

func (s *Server) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.opts.CookieName, "", -1, "/", "", s.opts.CookieSecure, true)
}
