package core

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"
)

// StringList is a list of strings stored as a JSONB array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return JSONValue([]string{})
	}
	return JSONValue([]string(l))
}

func (l *StringList) Scan(src interface{}) error {
	return ScanJSON(src, (*[]string)(l))
}

// Add appends val if not present already. It reports whether val was added.
func (l *StringList) Add(val string) bool {
	if Contains(*l, val) {
		return false
	}
	*l = append(*l, val)
	return true
}

// Remove drops every occurrence of val.
func (l *StringList) Remove(val string) {
	kept := (*l)[:0]
	for _, item := range *l {
		if item != val {
			kept = append(kept, item)
		}
	}
	*l = kept
}

// JSONValue encodes v for a JSON/JSONB column.
func JSONValue(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding json column")
	}
	return data, nil
}

// ScanJSON decodes a JSON/JSONB column into dst. NULL leaves dst untouched.
func ScanJSON(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into a json column", src)
	}
	return errors.Wrap(json.Unmarshal(data, dst), "decoding json column")
}
