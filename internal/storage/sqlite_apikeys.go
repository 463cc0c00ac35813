package storage

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

const apiKeyColumns = "id, name, key_hash, key_prefix, scopes, rate_limit, is_active, last_used_at, created_at, expires_at"

// CreateAPIKey stores a new client API key
func (s *SQLiteStorage) CreateAPIKey(key *ClientAPIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	if key.Name == "" || key.KeyHash == "" || key.KeyPrefix == "" {
		return ErrInvalidInput
	}

	if key.ID == "" {
		key.ID = generateID("key")
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	if len(key.Scopes) == 0 {
		key.Scopes = []string{"proxy"}
	}

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, rate_limit, is_active, last_used_at, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, key.ID, key.Name, key.KeyHash, key.KeyPrefix, string(scopesJSON), key.RateLimit,
		boolToInt(key.IsActive), key.LastUsedAt, key.CreatedAt, key.ExpiresAt)

	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return ErrDuplicateKey
	}
	return err
}

// GetAPIKey retrieves an API key by ID
func (s *SQLiteStorage) GetAPIKey(id string) (*ClientAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStorageClosed
	}

	row := s.db.QueryRow("SELECT "+apiKeyColumns+" FROM api_keys WHERE id = ?", id)
	key, err := scanAPIKey(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return key, err
}

// GetAPIKeyByPrefix retrieves API keys matching an identifying prefix
func (s *SQLiteStorage) GetAPIKeyByPrefix(prefix string) ([]*ClientAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStorageClosed
	}

	rows, err := s.db.Query("SELECT "+apiKeyColumns+" FROM api_keys WHERE key_prefix = ?", prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAPIKeys(rows)
}

// ListAPIKeys retrieves all client API keys
func (s *SQLiteStorage) ListAPIKeys() ([]*ClientAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStorageClosed
	}

	rows, err := s.db.Query("SELECT " + apiKeyColumns + " FROM api_keys ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAPIKeys(rows)
}

// UpdateAPIKey updates the mutable fields of an API key
func (s *SQLiteStorage) UpdateAPIKey(key *ClientAPIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	if key.ID == "" {
		return ErrInvalidInput
	}

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(`
		UPDATE api_keys
		SET name = ?, key_hash = ?, key_prefix = ?, scopes = ?, rate_limit = ?, is_active = ?, expires_at = ?
		WHERE id = ?
	`, key.Name, key.KeyHash, key.KeyPrefix, string(scopesJSON), key.RateLimit,
		boolToInt(key.IsActive), key.ExpiresAt, key.ID)
	if err != nil {
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey removes an API key by ID
func (s *SQLiteStorage) DeleteAPIKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	result, err := s.db.Exec("DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAPIKeyLastUsed stamps the key's last-used time with now
func (s *SQLiteStorage) UpdateAPIKeyLastUsed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	_, err := s.db.Exec("UPDATE api_keys SET last_used_at = ? WHERE id = ?", time.Now().UTC(), id)
	return err
}

// scanner abstracts sql.Row and sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAPIKey(row scanner) (*ClientAPIKey, error) {
	var key ClientAPIKey
	var scopesJSON string
	var isActive int
	var lastUsedAt, expiresAt sql.NullTime

	err := row.Scan(&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix, &scopesJSON,
		&key.RateLimit, &isActive, &lastUsedAt, &key.CreatedAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(scopesJSON), &key.Scopes); err != nil {
		return nil, err
	}
	key.IsActive = isActive == 1
	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}
	if expiresAt.Valid {
		key.ExpiresAt = &expiresAt.Time
	}

	return &key, nil
}

func collectAPIKeys(rows *sql.Rows) ([]*ClientAPIKey, error) {
	var keys []*ClientAPIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
