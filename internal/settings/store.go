package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-gather/internal/bridges/gather"
)

// Setting keys.
const (
	KeyAPIKey     = "api_key"
	KeySpaceID    = "space_id"
	KeyAvatarName = "avatar_name"
)

// Values are the user-editable, non-secret settings.
type Values struct {
	SpaceID    string `json:"space_id"`
	AvatarName string `json:"avatar_name"`
}

// Options configures a Store.
type Options struct {
	// Passphrase seals the API token. Required for SaveToken and Token.
	Passphrase string

	// Defaults are used for anything not stored.
	Defaults gather.Settings

	// WorkFactor overrides the scrypt work factor (log2 N). Zero uses
	// the age default.
	WorkFactor int
}

// Store reads and writes settings in the gather_settings table.
type Store struct {
	db       *sql.DB
	sealer   sealer
	defaults gather.Settings
}

// NewStore creates a settings store on db. The gather_settings migration
// must have been applied.
func NewStore(db *sql.DB, opts Options) *Store {
	return &Store{
		db:       db,
		sealer:   sealer{passphrase: opts.Passphrase, workFactor: opts.WorkFactor},
		defaults: opts.Defaults,
	}
}

// Get returns a plain value. ErrNotFound when not stored.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, _, err := s.get(ctx, key)
	return value, err
}

// Put stores a plain value, replacing any previous value.
func (s *Store) Put(ctx context.Context, key, value string) error {
	return s.put(ctx, key, value, false)
}

// Values returns the stored space id and avatar name, falling back to the
// defaults for each one not stored or stored empty.
func (s *Store) Values(ctx context.Context) (Values, error) {
	spaceID, err := s.withDefault(ctx, KeySpaceID, s.defaults.SpaceID)
	if err != nil {
		return Values{}, err
	}
	avatar, err := s.withDefault(ctx, KeyAvatarName, s.defaults.AvatarName)
	if err != nil {
		return Values{}, err
	}
	return Values{SpaceID: spaceID, AvatarName: avatar}, nil
}

// Update stores v in one transaction and returns the settings before and
// after the change, for gather.Bridge.SettingsChanged.
func (s *Store) Update(ctx context.Context, v Values) (old, updated gather.Settings, err error) {
	old, err = s.Resolve(ctx)
	if err != nil {
		return gather.Settings{}, gather.Settings{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return gather.Settings{}, gather.Settings{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, kv := range [][2]string{{KeySpaceID, v.SpaceID}, {KeyAvatarName, v.AvatarName}} {
		if _, err := tx.ExecContext(ctx, upsertQuery, kv[0], kv[1], 0); err != nil {
			return gather.Settings{}, gather.Settings{}, fmt.Errorf("storing %s: %w", kv[0], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return gather.Settings{}, gather.Settings{}, fmt.Errorf("committing settings: %w", err)
	}

	updated, err = s.Resolve(ctx)
	if err != nil {
		return gather.Settings{}, gather.Settings{}, err
	}
	return old, updated, nil
}

// SaveToken seals and stores the API token.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	sealed, err := s.sealer.seal(token)
	if err != nil {
		return fmt.Errorf("sealing token: %w", err)
	}
	return s.put(ctx, KeyAPIKey, sealed, true)
}

// Token returns the stored API token. ErrNotFound when none is stored,
// ErrSealed when it cannot be opened with the configured passphrase.
func (s *Store) Token(ctx context.Context) (string, error) {
	value, sealed, err := s.get(ctx, KeyAPIKey)
	if err != nil {
		return "", err
	}
	if !sealed {
		return value, nil
	}
	return s.sealer.open(value)
}

// HasToken reports whether a token is stored or configured as a default.
func (s *Store) HasToken(ctx context.Context) (bool, error) {
	_, _, err := s.get(ctx, KeyAPIKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return s.defaults.APIKey != "", nil
	default:
		return false, err
	}
}

// Resolve returns the settings for the next connect. The stored token is
// preferred over the default; a token that cannot be unsealed is an error.
func (s *Store) Resolve(ctx context.Context) (gather.Settings, error) {
	values, err := s.Values(ctx)
	if err != nil {
		return gather.Settings{}, err
	}

	token, err := s.Token(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		token = s.defaults.APIKey
	case err != nil:
		return gather.Settings{}, err
	}

	return gather.Settings{
		APIKey:     token,
		SpaceID:    values.SpaceID,
		AvatarName: values.AvatarName,
	}, nil
}

const upsertQuery = `INSERT INTO gather_settings (key, value, sealed) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		sealed = excluded.sealed,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

func (s *Store) put(ctx context.Context, key, value string, sealed bool) error {
	flag := 0
	if sealed {
		flag = 1
	}
	if _, err := s.db.ExecContext(ctx, upsertQuery, key, value, flag); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (value string, sealed bool, err error) {
	const query = `SELECT value, sealed FROM gather_settings WHERE key = ?`
	var flag int
	err = s.db.QueryRowContext(ctx, query, key).Scan(&value, &flag)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, flag == 1, nil
}

func (s *Store) withDefault(ctx context.Context, key, fallback string) (string, error) {
	value, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) || (err == nil && value == "") {
		return fallback, nil
	}
	return value, err
}

// Compile-time interface check.
var _ gather.SettingsSource = (*Store)(nil)
