package httpserver

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/layout"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/service"
	"github.com/and161185/pinboard/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"feed", "login", "create", "profile", "finish", "settings", "pin", "error"}

type pages struct {
	sets map[string]*template.Template
}

func mustParsePages() *pages {
	funcs := template.FuncMap{
		"icon":        layout.Icon,
		"breakpoints": func() []int { return layout.Breakpoints[:] },
	}
	p := &pages{sets: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		p.sets[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return p
}

// pageData is what every template receives.
type pageData struct {
	Title      string
	Session    *model.Session
	Error      string
	Retry      string
	ScrollLock bool
	// Width is the viewport the grid was laid out for; zero on pages without a grid.
	Width int
	Data  any
}

// defaultWidth lays out server-rendered feeds before the client reports its viewport.
const defaultWidth = 1280

func (s *Server) render(c *gin.Context, status int, name string, d pageData) {
	d.Session = current(c)
	var buf bytes.Buffer
	if err := s.pages.sets[name].ExecuteTemplate(&buf, "layout", d); err != nil {
		s.log.Error("render", zap.String("page", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// renderError shows msg with a retry link back to the current page.
func (s *Server) renderError(c *gin.Context, status int, msg string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	retry := ""
	if c.Request.Method == http.MethodGet {
		retry = c.Request.URL.RequestURI()
	}
	s.render(c, status, "error", pageData{Title: "Something went wrong", Error: msg, Retry: retry})
}

func (s *Server) pageError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("page", zap.String("route", c.FullPath()), zap.Error(err))
	}
	s.renderError(c, status, message(err, status), err)
}

func viewport(c *gin.Context) int {
	if w, err := strconv.Atoi(c.Query("w")); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

type feedData struct {
	Query   string
	Columns [][]model.FeedItem
	Count   int
}

func (s *Server) feedPage(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	items, err := s.feed.Feed(c.Request.Context(), current(c).UserID, q, c.Query("refresh") != "")
	if err != nil {
		s.pageError(c, err)
		return
	}
	g := layout.NewGrid(items, viewport(c))
	s.render(c, http.StatusOK, "feed", pageData{Title: "Home", Width: g.Width(), Data: feedData{Query: q, Columns: g.Columns(), Count: g.Len()}})
}

type loginData struct {
	SignUp bool
	Email  string
	Next   string
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/login") {
		return "/"
	}
	return next
}

func (s *Server) loginPage(c *gin.Context) {
	s.render(c, http.StatusOK, "login", pageData{Title: "Log in", Data: loginData{SignUp: c.Query("mode") == "signup", Next: c.Query("next")}})
}

func (s *Server) loginSubmit(c *gin.Context) {
	signUp := c.PostForm("mode") == "signup"
	email := c.PostForm("email")
	next := c.PostForm("next")

	var (
		sess *model.Session
		err  error
	)
	if signUp {
		sess, err = s.sessions.SignUp(c.Request.Context(), session.SignUpRequest{
			Email:    email,
			Password: c.PostForm("password"),
			Username: c.PostForm("username"),
			Redirect: "/finish-profile",
		})
		next = "/finish-profile"
	} else {
		sess, err = s.sessions.SignIn(c.Request.Context(), email, c.PostForm("password"), c.Request.RemoteAddr)
	}
	if err != nil {
		status := statusFor(err)
		s.render(c, status, "login", pageData{Title: "Log in", Error: message(err, status), Data: loginData{SignUp: signUp, Email: email, Next: next}})
		return
	}
	s.setCookie(c, sess)
	c.Redirect(http.StatusSeeOther, safeNext(next))
}

func (s *Server) logout(c *gin.Context) {
	if err := s.sessions.SignOut(c.Request.Context(), current(c)); err != nil {
		s.log.Warn("sign out", zap.Error(err))
	}
	s.clearCookie(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

type createData struct {
	SetupBlocked bool
	Title        string
	Description  string
	Public       bool
}

func (s *Server) createPage(c *gin.Context) {
	d := pageData{Title: "Create Pin", Data: createData{Public: true}}
	if err := s.setup.Ready(c.Request.Context()); err != nil {
		d.Error = err.Error()
		d.Retry = "/create"
		d.Data = createData{SetupBlocked: true}
		s.render(c, http.StatusServiceUnavailable, "create", d)
		return
	}
	s.render(c, http.StatusOK, "create", d)
}

func (s *Server) createSubmit(c *gin.Context) {
	s.limitBody(c)
	req, f, err := s.uploadRequest(c, false)
	if f != nil {
		defer f.Close()
	}
	if err == nil {
		_, err = s.pins.Upload(c.Request.Context(), current(c), req)
	}
	if err != nil {
		status := statusFor(err)
		d := pageData{Title: "Create Pin", Error: message(err, status), Data: createData{
			SetupBlocked: errors.Is(err, errs.ErrStorageSetup),
			Title:        req.Title,
			Description:  req.Description,
			Public:       req.IsPublic,
		}}
		if errors.Is(err, errs.ErrStorageSetup) {
			d.Retry = "/create"
		}
		s.render(c, status, "create", d)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

type profileData struct {
	View    *service.ProfileView
	Columns [][]model.FeedItem
	Count   int
	Edit    bool
}

func (s *Server) profilePage(c *gin.Context) {
	s.showProfile(c, http.StatusOK, "", c.Query("edit") != "")
}

func (s *Server) showProfile(c *gin.Context, status int, formErr string, edit bool) {
	sess := current(c)
	view, err := s.profiles.Get(c.Request.Context(), sess.UserID)
	if err != nil {
		s.pageError(c, err)
		return
	}
	items, err := s.feed.Profile(c.Request.Context(), sess.UserID, sess.UserID)
	if err != nil {
		s.pageError(c, err)
		return
	}
	g := layout.NewGrid(items, viewport(c))
	lock := layout.NewScrollLock(nil)
	modal := layout.NewModal(lock)
	if edit {
		modal.Open()
	}
	d := pageData{
		Title:      view.User.DisplayName(),
		Error:      formErr,
		ScrollLock: lock.Locked(),
		Width:      g.Width(),
		Data:       profileData{View: view, Columns: g.Columns(), Count: g.Len(), Edit: modal.IsOpen()},
	}
	modal.Close(layout.Unmount)
	s.render(c, status, "profile", d)
}

func (s *Server) profileSubmit(c *gin.Context) {
	s.limitBody(c)
	req := service.EditRequest{Description: c.PostForm("description")}
	if fh, err := c.FormFile("avatar"); err == nil {
		f, err := fh.Open()
		if err != nil {
			s.showProfile(c, http.StatusUnprocessableEntity, "Could not read the selected image.", true)
			return
		}
		defer f.Close()
		req.Avatar, req.AvatarName, req.AvatarType, req.AvatarSize = f, fh.Filename, fh.Header.Get("Content-Type"), fh.Size
	}
	if _, err := s.profiles.Edit(c.Request.Context(), current(c).UserID, req); err != nil {
		status := statusFor(err)
		s.showProfile(c, status, message(err, status), true)
		return
	}
	c.Redirect(http.StatusSeeOther, "/profile")
}

type finishData struct {
	Description string
	AvatarURL   string
}

func (s *Server) finishPage(c *gin.Context) {
	s.render(c, http.StatusOK, "finish", pageData{Title: "Complete your profile", Data: finishData{}})
}

func (s *Server) finishSubmit(c *gin.Context) {
	d := finishData{Description: c.PostForm("description"), AvatarURL: c.PostForm("avatar_url")}
	if _, err := s.profiles.Finish(c.Request.Context(), current(c).UserID, d.Description, d.AvatarURL); err != nil {
		status := statusFor(err)
		s.render(c, status, "finish", pageData{Title: "Complete your profile", Error: message(err, status), Data: d})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

var settingsTabs = []struct{ ID, Label string }{
	{"profile", "Profile"},
	{"account", "Account"},
	{"notifications", "Notifications"},
	{"privacy", "Privacy & Safety"},
}

type settingsData struct {
	Tabs   []struct{ ID, Label string }
	Active string
	View   *service.ProfileView
}

func (s *Server) settingsPage(c *gin.Context) {
	active := c.DefaultQuery("tab", "profile")
	known := false
	for _, t := range settingsTabs {
		known = known || t.ID == active
	}
	if !known {
		active = "profile"
	}
	view, err := s.profiles.Get(c.Request.Context(), current(c).UserID)
	if err != nil {
		s.pageError(c, err)
		return
	}
	s.render(c, http.StatusOK, "settings", pageData{Title: "Settings", Data: settingsData{Tabs: settingsTabs, Active: active, View: view}})
}

type pinData struct {
	Item      model.FeedItem
	Deletable bool
}

// pinPage renders the detail modal standalone. It holds the scroll lock for the lifetime of the render.
func (s *Server) pinPage(c *gin.Context) {
	id, err := pinID(c)
	if err != nil {
		s.pageError(c, err)
		return
	}
	sess := current(c)
	it, err := s.feed.Pin(c.Request.Context(), sess.UserID, id)
	if err != nil {
		s.pageError(c, err)
		return
	}
	lock := layout.NewScrollLock(nil)
	modal := layout.NewModal(lock)
	modal.Open()
	defer modal.Close(layout.Unmount)

	s.render(c, http.StatusOK, "pin", pageData{
		Title:      it.Title,
		ScrollLock: lock.Locked(),
		Data:       pinData{Item: *it, Deletable: it.Image.UserID == sess.UserID},
	})
}

func (s *Server) pinDelete(c *gin.Context) {
	id, err := pinID(c)
	if err != nil {
		s.pageError(c, err)
		return
	}
	if err := s.pins.Delete(c.Request.Context(), current(c), id); err != nil {
		s.pageError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, safeNext(c.PostForm("next")))
}

func (s *Server) media(c *gin.Context) {
	store := s.opts.Media
	if c.Param("bucket") != store.Bucket() {
		c.Status(http.StatusNotFound)
		return
	}
	info, _ := store.BucketInfo(c.Request.Context())
	if !info.Public {
		c.Status(http.StatusForbidden)
		return
	}
	obj, ok := store.Get(strings.TrimPrefix(c.Param("path"), "/"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	if obj.CacheControl != "" {
		c.Header("Cache-Control", "max-age="+obj.CacheControl)
	}
	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Data(http.StatusOK, ct, obj.Data)
}
