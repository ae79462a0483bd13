// Package httpserver serves the pinboard pages, the JSON API and, for the in-memory store, uploaded media.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/service"
	"github.com/and161185/pinboard/internal/session"
	"github.com/and161185/pinboard/internal/setup"
	"github.com/and161185/pinboard/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Sessions is the identity provider as seen by handlers.
type Sessions interface {
	SignUp(ctx context.Context, req session.SignUpRequest) (*model.Session, error)
	SignIn(ctx context.Context, email, password, ip string) (*model.Session, error)
	SignOut(ctx context.Context, s *model.Session) error
	Refresh(ctx context.Context, s *model.Session) (*model.Session, error)
	Current(ctx context.Context, token string) (*model.Session, error)
}

// Feed is the read path for the feed, profile and pin pages.
type Feed interface {
	Feed(ctx context.Context, viewer uuid.UUID, term string, refresh bool) ([]model.FeedItem, error)
	Profile(ctx context.Context, viewer, owner uuid.UUID) ([]model.FeedItem, error)
	Pin(ctx context.Context, viewer, id uuid.UUID) (*model.FeedItem, error)
}

// Setup reports storage readiness.
type Setup interface {
	Status() setup.Status
	Ready(ctx context.Context) error
}

// Options tune the HTTP surface.
type Options struct {
	CookieName     string
	CookieSecure   bool
	MaxUploadBytes int64
	AllowOrigins   []string
	// Media, when set, is served under /media/<bucket>/<path>.
	Media *storage.MemoryStore
}

// Server wires services into gin handlers.
type Server struct {
	sessions Sessions
	feed     Feed
	pins     service.PinService
	profiles service.ProfileService
	setup    Setup
	opts     Options
	log      *zap.Logger
	pages    *pages
	engine   *gin.Engine
}

// New builds the router.
func New(sessions Sessions, feed Feed, pins service.PinService, profiles service.ProfileService, st Setup, opts Options, log *zap.Logger) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "pb_session"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	s := &Server{
		sessions: sessions,
		feed:     feed,
		pins:     pins,
		profiles: profiles,
		setup:    st,
		opts:     opts,
		log:      log,
		pages:    mustParsePages(),
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.opts.MaxUploadBytes
	r.Use(ZapRecovery(s.log), ZapLogger(s.log))
	if len(s.opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", s.health)
	if s.opts.Media != nil {
		r.GET("/media/:bucket/*path", s.media)
	}

	withSession := r.Group("/", s.loadSession)

	site := withSession.Group("/", s.gatePages)
	site.GET("/", s.feedPage)
	site.GET("/login", s.loginPage)
	site.POST("/login", s.loginSubmit)
	site.POST("/logout", s.logout)
	site.GET("/create", s.createPage)
	site.POST("/create", s.createSubmit)
	site.GET("/profile", s.profilePage)
	site.POST("/profile", s.profileSubmit)
	site.GET("/finish-profile", s.finishPage)
	site.POST("/finish-profile", s.finishSubmit)
	site.GET("/settings", s.settingsPage)
	site.GET("/pin/:id", s.pinPage)
	site.POST("/pin/:id/delete", s.pinDelete)

	api := withSession.Group("/api")
	api.POST("/auth/signin", s.apiSignIn)
	api.POST("/auth/signup", s.apiSignUp)

	authed := api.Group("/", s.requireAPI)
	authed.POST("/auth/signout", s.apiSignOut)
	authed.GET("/auth/session", s.apiSession)
	authed.GET("/feed", s.apiFeed)
	authed.GET("/pins/:id", s.apiPin)
	authed.POST("/pins", s.apiUpload)
	authed.DELETE("/pins/:id", s.apiDelete)
	authed.GET("/profile", s.apiProfile)
	authed.PUT("/profile", s.apiProfileSave)
	authed.GET("/setup", s.apiSetup)

	r.NoRoute(func(c *gin.Context) { c.JSON(http.StatusNotFound, errorBody("not found", "")) })
	return r
}

// Run serves on addr until ctx is done, then shuts down within grace.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) health(c *gin.Context) {
	st := s.setup.Status()
	if !st.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "storage": st})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": st})
}
