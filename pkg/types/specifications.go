package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Specifications holds arbitrary key/value product attributes as JSONB.
type Specifications map[string]any

// Value marshals the map into JSON for Postgres.
func (s Specifications) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the map.
func (s *Specifications) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("specifications: unsupported scan type %T", value)
	}

	result := make(Specifications)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*s = result
	return nil
}
