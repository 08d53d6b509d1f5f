package model

// RawContent is the untyped annotation output of the vision service. The
// objects/people/activities fields arrive in several shapes: a bare string, a
// list of strings, or a list of objects carrying a "description" field.
// NewContent normalizes all of them to ordered string sequences.
type RawContent struct {
	Caption    string `json:"caption"`
	Objects    any    `json:"objects"`
	People     any    `json:"people"`
	Activities any    `json:"activities"`
	Text       string `json:"text"`
	Speech     string `json:"speech"`
}

// NewContent normalizes raw annotation output into a Content value
func NewContent(raw *RawContent) Content {
	return Content{
		Caption:    raw.Caption,
		Objects:    flattenStrings(raw.Objects),
		People:     flattenStrings(raw.People),
		Activities: flattenStrings(raw.Activities),
		Text:       raw.Text,
		Speech:     raw.Speech,
	}
}

// flattenStrings applies the flattening rule for dynamic annotation fields:
//   - string -> single-element sequence (empty string -> empty sequence)
//   - []string / []any of string -> kept in order
//   - map with "description" -> the description string
//
// Unrecognized values and empty elements are dropped.
func flattenStrings(v any) []string {
	out := []string{}

	appendOne := func(e any) {
		switch val := e.(type) {
		case string:
			if val != "" {
				out = append(out, val)
			}
		case map[string]any:
			if desc, ok := val["description"].(string); ok && desc != "" {
				out = append(out, desc)
			}
		}
	}

	switch val := v.(type) {
	case nil:
		return out
	case string:
		appendOne(val)
	case []string:
		for _, e := range val {
			appendOne(e)
		}
	case []any:
		for _, e := range val {
			appendOne(e)
		}
	case map[string]any:
		appendOne(val)
	}

	return out
}
