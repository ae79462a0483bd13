package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/and161185/pinboard/internal/convert"
)

// client calls the /api endpoints.
type client struct {
	base  string
	token string
	http  *http.Client
}

// apiError is a non-2xx response.
type apiError struct {
	Status int
	Body   convert.Error
}

func (e *apiError) Error() string {
	if e.Body.Kind != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Body.Kind, e.Body.Error)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Body.Error)
}

func (c *client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.base, "/")+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		ae := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&ae.Body)
		if ae.Body.Error == "" {
			ae.Body.Error = http.StatusText(resp.StatusCode)
		}
		return ae
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusAccepted {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json", out)
}

func (c *client) signIn(ctx context.Context, email, password string) (convert.Session, error) {
	var s convert.Session
	err := c.postJSON(ctx, "/api/auth/signin", map[string]string{"email": email, "password": password}, &s)
	return s, err
}

func (c *client) signUp(ctx context.Context, email, password, username string) (convert.Session, error) {
	var s convert.Session
	err := c.postJSON(ctx, "/api/auth/signup", map[string]string{"email": email, "password": password, "username": username}, &s)
	return s, err
}

func (c *client) signOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signout", nil, "", nil)
}

func (c *client) session(ctx context.Context) (convert.Session, error) {
	var s convert.Session
	err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, "", &s)
	return s, err
}

func (c *client) feed(ctx context.Context, q string, width int) (convert.Feed, error) {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if width > 0 {
		v.Set("width", fmt.Sprint(width))
	}
	path := "/api/feed"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var f convert.Feed
	err := c.do(ctx, http.MethodGet, path, nil, "", &f)
	return f, err
}

func (c *client) deletePin(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/pins/"+url.PathEscape(id), nil, "", nil)
}

type uploadArgs struct {
	File        string
	Title       string
	Description string
	Private     bool
}

// upload sends the pin form. The returned item is nil when the server accepted the pin without
// being able to show it yet.
func (c *client) upload(ctx context.Context, a uploadArgs) (*convert.FeedItem, error) {
	data, err := os.ReadFile(a.File)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", a.Title)
	_ = mw.WriteField("description", a.Description)
	_ = mw.WriteField("public", fmt.Sprint(!a.Private))

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(a.File)))
	hdr.Set("Content-Type", contentTypeOf(a.File, data))
	fw, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var it convert.FeedItem
	if err := c.do(ctx, http.MethodPost, "/api/pins", &buf, mw.FormDataContentType(), &it); err != nil {
		return nil, err
	}
	if it.ID == "" {
		return nil, nil
	}
	return &it, nil
}

func contentTypeOf(name string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
