package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayouts covers RFC 3339 plus what HTML date and datetime-local inputs post.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type installFabricRequest struct {
	Code        string   `json:"codigo"`
	Filter      formInt  `json:"filtro"`
	Board       formInt  `json:"placa"`
	Side        string   `json:"lado"`
	InstalledAt formTime `json:"instalado_em"`
	Installer   string   `json:"instalador"`
	Notes       *string  `json:"observacoes"`
}

type reportAnomalyRequest struct {
	FabricCode string   `json:"tecido_codigo"`
	ObservedAt formTime `json:"data"`
	Quadrant   string   `json:"quadrante"`
	Condition  string   `json:"condicao"`
	Observer   string   `json:"responsavel"`
	Notes      *string  `json:"observacoes"`
}

// formInt accepts a JSON number or a numeric string.
type formInt int

func (n *formInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		*n = formInt(v)
		return nil
	}

	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	*n = formInt(v)
	return nil
}

// formTime accepts any of timeLayouts; values without a zone are read as UTC.
type formTime struct {
	time.Time
}

func (t *formTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func derefText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
