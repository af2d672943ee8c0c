package lpr

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// flexString accepts both JSON strings and numbers; registry feeds encode
// make/model codes either way.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = flexString(n.String())
	return nil
}

func (s flexString) String() string {
	return string(s)
}

func ParseRegistryEntry(raw string) (*RegistryEntry, error) {
	var entry RegistryEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decode registry entry: %w", err)
	}
	return &entry, nil
}

// AlertCatalog maps alert type codes to display labels.
type AlertCatalog struct {
	labels []string
}

func NewAlertCatalog(labels []string) (*AlertCatalog, error) {
	if len(labels) != int(MaxAlertType)+1 {
		return nil, fmt.Errorf("alert catalog needs %d labels, got %d", int(MaxAlertType)+1, len(labels))
	}
	return &AlertCatalog{labels: append([]string(nil), labels...)}, nil
}

func (c *AlertCatalog) Label(t AlertType) string {
	if !t.Valid() {
		return ""
	}
	return c.labels[t]
}
