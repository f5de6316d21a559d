package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringMap persists a flat string map (payout destination details) as JSON.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	payload, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = StringMap{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("string map: unsupported scan type %T", value)
	}
	out := map[string]string{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
