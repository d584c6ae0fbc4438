package gather

import (
	"context"
	"strings"
)

// DefaultURLPrefix is the browser URL prefix stripped from space ids.
const DefaultURLPrefix = "https://app.gather.town/app/"

// spaceIDSeparator replaces "/" in normalised space ids.
const spaceIDSeparator = `\`

// Settings is the configuration a session is opened with.
type Settings struct {
	APIKey     string
	SpaceID    string
	AvatarName string
}

// SettingsSource resolves the settings for the next Connect.
// Implementations fall back from stored values to environment defaults.
type SettingsSource interface {
	Resolve(ctx context.Context) (Settings, error)
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func(ctx context.Context) (Settings, error)

// Resolve calls f.
func (f SettingsFunc) Resolve(ctx context.Context) (Settings, error) {
	return f(ctx)
}

// NormalizeSpaceID converts a raw or browser-form space id into the form
// the realtime service expects. prefix is stripped when raw starts with
// it; an empty prefix uses DefaultURLPrefix.
//
// Example:
//
//	NormalizeSpaceID("https://app.gather.town/app/abc/office", "") // `abc\office`
func NormalizeSpaceID(raw, prefix string) string {
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, prefix)
	return strings.ReplaceAll(id, "/", spaceIDSeparator)
}

// ChangedKeys returns the names of the settings that differ between old
// and updated, in a fixed order. The API key is reported by name only.
func ChangedKeys(old, updated Settings) []string {
	var keys []string
	if old.APIKey != updated.APIKey {
		keys = append(keys, "api_key")
	}
	if old.SpaceID != updated.SpaceID {
		keys = append(keys, "space_id")
	}
	if old.AvatarName != updated.AvatarName {
		keys = append(keys, "avatar_name")
	}
	return keys
}
