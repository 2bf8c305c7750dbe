package store

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pavelanni/firstaid/internal/model"
)

const authSessionTTL = 24 * time.Hour

// CreateAuthSession creates a new auth session token for a user.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// UserForSession returns the active user owning an unexpired session token,
// or nil if there is none.
func (s *Store) UserForSession(token string) (*model.User, error) {
	return scanUser(s.db.QueryRow(
		`SELECT u.id, u.username, u.display_name, u.password_hash, u.role, u.active, u.created_at
		 FROM auth_sessions a JOIN users u ON u.id = a.user_id
		 WHERE a.id = ? AND a.expires_at > ? AND u.active`,
		token, time.Now().UTC(),
	))
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions removes all expired auth sessions and reports how many were removed.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
