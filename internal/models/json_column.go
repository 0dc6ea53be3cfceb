package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
)

// jsonValue encodes v as a JSONB parameter.
func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(b).Value()
}

// jsonScan reads a JSONB column into dest. NULL and empty columns leave dest untouched.
func jsonScan(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
	case string:
		if v == "" {
			return nil
		}
	}
	var raw types.JSONText
	if err := raw.Scan(src); err != nil {
		return err
	}
	return raw.Unmarshal(dest)
}
