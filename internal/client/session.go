// Package client is a Go client for the camera management API, plus the
// local session file the camctl command keeps between runs.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iliyamo/camera-management/internal/model"
)

// ErrNoSession is returned by SessionStore.Load when nobody is logged in.
var ErrNoSession = errors.New("not logged in")

// Session is what a successful login leaves on disk.
type Session struct {
	Server  string           `json:"server"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
	SavedAt time.Time        `json:"savedAt"`
}

// SessionStore keeps a single Session in a JSON file readable only by the
// owner.  Logging out deletes the file; the token itself stays valid on the
// server until it expires.
type SessionStore struct {
	Path string
}

// DefaultSessionPath is ~/.camctl/session.json, or a file in the working
// directory when the home directory is unknown.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".camctl-session.json"
	}
	return filepath.Join(home, ".camctl", "session.json")
}

// Save writes s atomically.
func (st SessionStore) Save(s Session) error {
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now().UTC()
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(st.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("session temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), st.Path)
}

// Load returns the saved session or ErrNoSession.
func (st SessionStore) Load() (Session, error) {
	raw, err := os.ReadFile(st.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("corrupt session file %s: %w", st.Path, err)
	}
	if s.Token == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Clear discards the saved session.  Clearing when nothing is saved is not
// an error.
func (st SessionStore) Clear() error {
	err := os.Remove(st.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
