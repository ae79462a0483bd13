package httpserver

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/and161185/pinboard/internal/convert"
	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/service"
	"github.com/and161185/pinboard/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
)

type signInBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signUpBody struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type profileBody struct {
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
}

func bindErr(err error) error { return fmt.Errorf("%w: %v", errs.ErrValidation, err) }

func (s *Server) apiSignIn(c *gin.Context) {
	var body signInBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.apiError(c, bindErr(err))
		return
	}
	sess, err := s.sessions.SignIn(c.Request.Context(), body.Email, body.Password, c.Request.RemoteAddr)
	if err != nil {
		s.apiError(c, err)
		return
	}
	s.setCookie(c, sess)
	c.JSON(http.StatusOK, convert.ToSession(sess, true))
}

func (s *Server) apiSignUp(c *gin.Context) {
	var body signUpBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.apiError(c, bindErr(err))
		return
	}
	sess, err := s.sessions.SignUp(c.Request.Context(), session.SignUpRequest{
		Email:     body.Email,
		Password:  body.Password,
		Username:  body.Username,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		s.apiError(c, err)
		return
	}
	s.setCookie(c, sess)
	c.JSON(http.StatusCreated, convert.ToSession(sess, true))
}

func (s *Server) apiSignOut(c *gin.Context) {
	if err := s.sessions.SignOut(c.Request.Context(), current(c)); err != nil {
		s.apiError(c, err)
		return
	}
	s.clearCookie(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) apiSession(c *gin.Context) {
	c.JSON(http.StatusOK, convert.ToSession(current(c), false))
}

func (s *Server) apiFeed(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	width, _ := strconv.Atoi(c.Query("width"))
	items, err := s.feed.Feed(c.Request.Context(), current(c).UserID, q, c.Query("refresh") != "")
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToFeed(items, q, width))
}

func pinID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: pin id %q: %w", errs.ErrNotFound, c.Param("id"), err)
	}
	return id, nil
}

func (s *Server) apiPin(c *gin.Context) {
	id, err := pinID(c)
	if err != nil {
		s.apiError(c, err)
		return
	}
	sess := current(c)
	it, err := s.feed.Pin(c.Request.Context(), sess.UserID, id)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToPin(*it, sess))
}

// uploadRequest reads the multipart pin form. The caller closes the returned file.
func (s *Server) uploadRequest(c *gin.Context, publicDefault bool) (service.UploadRequest, multipart.File, error) {
	req := service.UploadRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		IsPublic:    formBool(c.PostFormArray("public"), publicDefault),
	}
	fh, err := c.FormFile("file")
	if err != nil {
		// validation reports the missing file
		return req, nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return req, nil, fmt.Errorf("%w: %w: reading file: %v", errs.ErrUpload, errs.ErrValidation, err)
	}
	req.File = f
	req.Filename = fh.Filename
	req.ContentType = fh.Header.Get("Content-Type")
	req.Size = fh.Size
	return req, f, nil
}

// formBool takes the last submitted value so a hidden "false" can precede a checkbox.
func formBool(values []string, def bool) bool {
	if len(values) == 0 {
		return def
	}
	switch strings.ToLower(values[len(values)-1]) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
}

func (s *Server) apiUpload(c *gin.Context) {
	s.limitBody(c)
	req, f, err := s.uploadRequest(c, true)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		s.apiError(c, err)
		return
	}
	item, err := s.pins.Upload(c.Request.Context(), current(c), req)
	if err != nil {
		s.apiError(c, err)
		return
	}
	if item == nil {
		c.Status(http.StatusAccepted)
		return
	}
	c.JSON(http.StatusCreated, convert.ToFeedItem(*item))
}

func (s *Server) apiDelete(c *gin.Context) {
	id, err := pinID(c)
	if err != nil {
		s.apiError(c, err)
		return
	}
	if err := s.pins.Delete(c.Request.Context(), current(c), id); err != nil {
		s.apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) apiProfile(c *gin.Context) {
	sess := current(c)
	view, err := s.profiles.Get(c.Request.Context(), sess.UserID)
	if err != nil {
		s.apiError(c, err)
		return
	}
	pins, err := s.feed.Profile(c.Request.Context(), sess.UserID, sess.UserID)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": convert.ToProfile(*view), "pins": convert.ToFeedItems(pins)})
}

// apiProfileSave takes JSON (description, absolute avatar URL) or a multipart form with an avatar file.
func (s *Server) apiProfileSave(c *gin.Context) {
	sess := current(c)
	ctx := c.Request.Context()
	var err error
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		s.limitBody(c)
		req := service.EditRequest{Description: c.PostForm("description")}
		if fh, ferr := c.FormFile("avatar"); ferr == nil {
			f, oerr := fh.Open()
			if oerr != nil {
				s.apiError(c, fmt.Errorf("%w: reading avatar: %v", errs.ErrValidation, oerr))
				return
			}
			defer f.Close()
			req.Avatar, req.AvatarName, req.AvatarType, req.AvatarSize = f, fh.Filename, fh.Header.Get("Content-Type"), fh.Size
		}
		_, err = s.profiles.Edit(ctx, sess.UserID, req)
	} else {
		var body profileBody
		if err := c.ShouldBindJSON(&body); err != nil {
			s.apiError(c, bindErr(err))
			return
		}
		_, err = s.profiles.Finish(ctx, sess.UserID, body.Description, body.AvatarURL)
	}
	if err != nil {
		s.apiError(c, err)
		return
	}
	view, err := s.profiles.Get(ctx, sess.UserID)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToProfile(*view))
}

// apiSetup reports storage readiness; ?retry=1 re-runs the setup when it is not ready.
func (s *Server) apiSetup(c *gin.Context) {
	if c.Query("retry") != "" {
		_ = s.setup.Ready(c.Request.Context())
	}
	st := s.setup.Status()
	code := http.StatusOK
	if !st.Ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, st)
}
