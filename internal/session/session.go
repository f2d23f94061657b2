// Package session persists the backend token and device uuid between runs.
package session

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"shopdesk/ledger-csv/internal/fileutils"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"
	"shopdesk/ledger-csv/internal/validation"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Session is the persisted client state.
type Session struct {
	Token string `yaml:"token"`
	UUID  string `yaml:"uuid"`
}

// IsEmpty reports whether no token is stored.
func (s Session) IsEmpty() bool {
	return strings.TrimSpace(s.Token) == ""
}

// Store reads and writes a Session as YAML. Loaded state is cached; Save and
// Clear update both the file and the cache.
type Store struct {
	path   string
	logger logging.Logger

	mu     sync.Mutex
	cached *Session
}

// NewStore returns a Store backed by path ("~" is expanded).
func NewStore(path string, logger logging.Logger) *Store {
	return &Store{
		path:   fileutils.ExpandHome(path),
		logger: logger.WithField(logging.FieldComponent, "SessionStore"),
	}
}

// Path is the resolved session file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored session. A missing file is an empty session.
func (s *Store) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (Session, error) {
	if s.cached != nil {
		return *s.cached, nil
	}
	data, err := fileutils.ReadFileIfExists(s.path)
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if len(data) > 0 {
		if info, statErr := os.Stat(s.path); statErr == nil {
			if permErr := validation.IsValidFilePermissions(info.Mode()); permErr != nil {
				s.logger.WithError(permErr).Warn("Session file is readable by others",
					logging.F(logging.FieldFile, s.path))
			}
		}
		if err := yaml.Unmarshal(data, &sess); err != nil {
			return Session{}, fmt.Errorf("failed to parse session file %s: %w", s.path, err)
		}
	}
	s.cached = &sess
	return sess, nil
}

// Save writes the session. A missing uuid is generated.
func (s *Store) Save(sess Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.UUID == "" {
		sess.UUID = uuid.NewString()
	}
	data, err := yaml.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := fileutils.WriteFileAtomic(s.path, data, models.PermissionConfigFile); err != nil {
		return Session{}, err
	}
	s.cached = &sess
	s.logger.Debug("Saved session", logging.F(logging.FieldOutputFile, s.path))
	return sess, nil
}

// Clear forgets the token but keeps the device uuid.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked()
	if err != nil {
		current = Session{}
	}
	cleared := Session{UUID: current.UUID}
	if cleared.UUID == "" {
		if err := fileutils.RemoveIfExists(s.path); err != nil {
			return err
		}
		s.cached = &cleared
		return nil
	}

	data, err := yaml.Marshal(cleared)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := fileutils.WriteFileAtomic(s.path, data, models.PermissionConfigFile); err != nil {
		return err
	}
	s.cached = &cleared
	s.logger.Info("Cleared session token")
	return nil
}

// Credentials returns the stored token and uuid. Read errors yield empty
// credentials and are logged.
func (s *Store) Credentials() (string, string) {
	sess, err := s.Load()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load session")
		return "", ""
	}
	return sess.Token, sess.UUID
}

// ClearSessionPolicy drops the stored token when the backend rejects it, so
// the next command asks for a fresh login.
type ClearSessionPolicy struct {
	Store *Store
}

// OnUnauthorized clears the session.
func (p ClearSessionPolicy) OnUnauthorized(status int) error {
	if p.Store == nil {
		return nil
	}
	p.Store.logger.Warn("Backend rejected session", logging.F(logging.FieldStatus, status))
	return p.Store.Clear()
}
