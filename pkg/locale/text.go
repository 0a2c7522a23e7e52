// Package locale holds translatable catalog text and request locale negotiation.
package locale

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Text is a translatable value keyed by locale code ("fr", "en", "ar").
type Text map[string]string

// Resolve returns the requested translation, then the fallback locale's, then "".
func (t Text) Resolve(requested, fallback string) string {
	if len(t) == 0 {
		return ""
	}
	if v, ok := t[normalize(requested)]; ok && v != "" {
		return v
	}
	if v, ok := t[normalize(fallback)]; ok && v != "" {
		return v
	}
	return ""
}

// Value implements driver.Valuer.
func (t Text) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]string(t))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (t *Text) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Text{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("locale.Text: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*t = Text{}
		return nil
	}
	out := map[string]string{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("locale.Text: %w", err)
	}
	*t = out
	return nil
}

// GormDBDataType stores translations as jsonb on Postgres and text elsewhere.
func (Text) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

func normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	return code
}
