// Command pinctl is a command-line client for the pinboard JSON API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/and161185/pinboard/internal/convert"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usageText = `pinctl
Usage:
  pinctl [-addr URL] <cmd> [args]

Commands:
  version
  signup  -email <email> -p <password> [-username <name>]   (saves token)
  login   -email <email> -p <password>                      (saves token)
  logout
  whoami
  feed    [-q term] [-width px]
  upload  -file <path> -title <title> [-desc <text>] [-private]
  delete  <pin id>
`

var errUsage = errors.New("usage")

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	err := run(ctx, os.Args[1:], os.Stdout, http.DefaultClient)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run dispatches one subcommand.
func run(ctx context.Context, args []string, stdout io.Writer, hc *http.Client) error {
	global := flag.NewFlagSet("pinctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	addr := global.String("addr", envOr("PINBOARD_ADDR", "http://localhost:8080"), "server base URL")
	if err := global.Parse(args); err != nil || global.NArg() < 1 {
		return errUsage
	}
	cmd, rest := global.Arg(0), global.Args()[1:]
	c := &client{base: *addr, http: hc}

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "pinctl %s (%s)\n", version, buildDate)
		return nil

	case "signup", "login":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		email := fs.String("email", "", "email")
		pass := fs.String("p", "", "password")
		username := fs.String("username", "", "username (signup only)")
		if err := fs.Parse(rest); err != nil || *email == "" || *pass == "" {
			return fmt.Errorf("%w: need -email and -p", errUsage)
		}
		var (
			r   convert.Session
			err error
		)
		if cmd == "signup" {
			r, err = c.signUp(ctx, *email, *pass, *username)
		} else {
			r, err = c.signIn(ctx, *email, *pass)
		}
		if err != nil {
			return err
		}
		sess := tokenFile{AccessToken: r.Token, ExpiresAt: r.ExpiresAt, Email: r.Email}
		if err := saveToken(sess); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil

	case "logout":
		tok, err := loadToken()
		if err == nil {
			c.token = tok
			if err := c.signOut(ctx); err != nil {
				fmt.Fprintln(stdout, "server sign out failed:", err)
			}
		}
		if err := removeToken(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil

	case "whoami", "feed", "upload", "delete":
	default:
		return errUsage
	}

	tok, err := loadToken()
	if err != nil {
		return err
	}
	c.token = tok

	switch cmd {
	case "whoami":
		s, err := c.session(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, s)

	case "feed":
		fs := flag.NewFlagSet("feed", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		q := fs.String("q", "", "search term")
		width := fs.Int("width", 0, "viewport width; arranges items into masonry columns")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		f, err := c.feed(ctx, *q, *width)
		if err != nil {
			return err
		}
		return printJSON(stdout, f)

	case "upload":
		fs := flag.NewFlagSet("upload", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		var a uploadArgs
		fs.StringVar(&a.File, "file", "", "image file")
		fs.StringVar(&a.Title, "title", "", "pin title")
		fs.StringVar(&a.Description, "desc", "", "pin description")
		fs.BoolVar(&a.Private, "private", false, "hide the pin from other users")
		if err := fs.Parse(rest); err != nil || a.File == "" || a.Title == "" {
			return fmt.Errorf("%w: need -file and -title", errUsage)
		}
		it, err := c.upload(ctx, a)
		if err != nil {
			return err
		}
		if it == nil {
			fmt.Fprintln(stdout, "saved; it will appear on the next feed load")
			return nil
		}
		return printJSON(stdout, it)

	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("%w: delete <pin id>", errUsage)
		}
		if err := c.deletePin(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "deleted")
		return nil
	}
	return errUsage
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
