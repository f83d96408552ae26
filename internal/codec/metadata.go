package codec

import (
	"strings"

	"github.com/tidwall/gjson"
)

// UntitledEvent is the title used when metadata carries none.
const UntitledEvent = "Untitled event"

// Metadata is the display metadata embedded in an Event or Ticket metadata URI.
type Metadata struct {
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	Detail      string `json:"detail,omitempty"`
	Tiers       string `json:"tiers,omitempty"`
	Description string `json:"description,omitempty"`
}

// ParseMetadata parses a JSON metadata payload. It never fails: input that is not a
// JSON object degrades to a Metadata whose title is the raw text (or UntitledEvent).
func ParseMetadata(raw string) Metadata {
	if strings.TrimSpace(raw) != "" && gjson.Valid(raw) {
		parsed := gjson.Parse(raw)
		switch {
		case parsed.IsObject():
			return Metadata{
				Title:       titleOf(parsed),
				Location:    optional(parsed.Get("location")),
				Detail:      optional(parsed.Get("detail")),
				Tiers:       optional(parsed.Get("tiers")),
				Description: optional(parsed.Get("description")),
			}
		case parsed.IsArray():
			return Metadata{Title: UntitledEvent}
		}
	}

	if raw == "" {
		return Metadata{Title: UntitledEvent}
	}
	return Metadata{Title: raw}
}

func titleOf(obj gjson.Result) string {
	for _, key := range []string{"title", "name"} {
		if v := obj.Get(key); v.Exists() && v.Type != gjson.Null {
			return v.String()
		}
	}
	return UntitledEvent
}

// optional returns the string form of a truthy value, or "".
func optional(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		if v.Num == 0 {
			return ""
		}
		return v.Raw
	case gjson.True:
		return "true"
	case gjson.JSON:
		return v.Raw
	}
	return ""
}
