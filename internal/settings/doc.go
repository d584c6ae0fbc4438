// Package settings persists the Gather space settings in SQLite.
//
// The space id and avatar name are stored in plain text. The API token is
// sealed with age using a scrypt passphrase recipient, so a copy of the
// database alone does not reveal it.
//
// Store implements gather.SettingsSource: Resolve returns the stored values
// and falls back to the configured defaults (the GATHER_TOKEN, SPACE_ID and
// AVATAR_NAME environment) for anything not stored.
package settings
