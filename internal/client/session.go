package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

// RejoinWindow is how long after joining a table the client rejoins it
// automatically.
const RejoinWindow = 4 * time.Hour

// Session is the state the client keeps between runs. The display name is
// kept indefinitely; the table fields only matter inside RejoinWindow.
type Session struct {
	Token       string           `json:"token,omitempty"`
	Principal   models.Principal `json:"principal"`
	DisplayName string           `json:"display_name,omitempty"`
	TableID     string           `json:"table_id,omitempty"`
	JoinedAt    time.Time        `json:"joined_at,omitempty"`
}

func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".buffet-bingo", "session.json")
	}
	return filepath.Join(home, ".buffet-bingo", "session.json")
}

// LoadSession reads the state file. A missing file yields an empty session.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return &s, nil
}

func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *Session) Joined(tableID string, at time.Time) {
	s.TableID = tableID
	s.JoinedAt = at
}

// Leave forgets the current table. Nothing is removed on the server; the
// plate stays on the scoreboard.
func (s *Session) Leave() {
	s.TableID = ""
	s.JoinedAt = time.Time{}
}

// Rejoinable returns the last table if it was joined within RejoinWindow
// of now, clearing a stale one.
func (s *Session) Rejoinable(now time.Time) (string, bool) {
	if s.TableID == "" {
		return "", false
	}
	if now.Sub(s.JoinedAt) >= RejoinWindow {
		s.Leave()
		return "", false
	}
	return s.TableID, true
}

func (s *Session) SignedIn(token string, p models.Principal) {
	s.Token = token
	s.Principal = p
	if s.DisplayName == "" && p.DisplayName != "" {
		s.DisplayName = p.DisplayName
	}
}
