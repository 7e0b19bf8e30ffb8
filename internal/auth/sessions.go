package auth

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/runelite/api.runelite.net/internal/model"
)

// SessionTable is an in-memory Authenticator keyed by session UUID.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]model.UserID
}

// Compile-time check that SessionTable implements Authenticator.
var _ Authenticator = (*SessionTable)(nil)

// NewSessionTable returns an empty table.
func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[uuid.UUID]model.UserID)}
}

// Add registers session for userID, replacing any previous owner.
func (t *SessionTable) Add(session uuid.UUID, userID model.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[session] = userID
}

// Remove forgets session.
func (t *SessionTable) Remove(session uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, session)
}

// Len returns the number of known sessions.
func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *SessionTable) Authenticate(_ context.Context, token string) (model.UserID, error) {
	session, err := uuid.Parse(token)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	userID, ok := t.sessions[session]
	if !ok {
		return 0, ErrUnauthenticated
	}
	return userID, nil
}

// sessionFile is the YAML layout read by LoadSessions:
//
//	sessions:
//	  - uuid: 6c1f4c1e-7a4b-4f0e-9d4a-1f2a3b4c5d6e
//	    user_id: 42
type sessionFile struct {
	Sessions []sessionEntry `yaml:"sessions"`
}

type sessionEntry struct {
	UUID   string `yaml:"uuid"`
	UserID int32  `yaml:"user_id"`
}

// LoadSessions reads a session table from a YAML file. ${VAR} references
// are expanded from the environment before parsing.
func LoadSessions(path string) (*SessionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sessions file: %w", err)
	}
	return ParseSessions([]byte(os.ExpandEnv(string(data))))
}

// ParseSessions parses the YAML form of a session table.
func ParseSessions(data []byte) (*SessionTable, error) {
	var f sessionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sessions: %w", err)
	}
	t := NewSessionTable()
	for i, e := range f.Sessions {
		session, err := uuid.Parse(e.UUID)
		if err != nil {
			return nil, fmt.Errorf("sessions[%d]: invalid uuid %q: %w", i, e.UUID, err)
		}
		t.Add(session, model.UserID(e.UserID))
	}
	return t, nil
}
