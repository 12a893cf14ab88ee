package attributes

import (
	"strings"
	"time"
)

// Attribute types.
const (
	TypeText    = "text"
	TypeNumber  = "number"
	TypeChoice  = "choice"
	TypeBoolean = "boolean"
)

type Attribute struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"attribute_type"`
	Choices     string    `json:"choices"`
	IsRequired  bool      `json:"is_required"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChoiceList splits the comma separated choices, dropping blanks.
func (a Attribute) ChoiceList() []string {
	if a.Type != TypeChoice || a.Choices == "" {
		return []string{}
	}
	parts := strings.Split(a.Choices, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
