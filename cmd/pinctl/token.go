package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Email       string    `json:"email,omitempty"`
}

var errLoginRequired = errors.New("no valid token (login required)")

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "pinboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pinboard")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errLoginRequired
		}
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errLoginRequired
	}
	return tf.AccessToken, nil
}

func removeToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
