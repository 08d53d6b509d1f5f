// Package render turns memories, composite events, and knowledge entries
// into the fixed textual blocks used for prompt context assembly.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/m-mizutani/memoir/pkg/model"
)

// long OCR text is elided from prompts
const maxTextWords = 100

var wordSplitter = regexp.MustCompile(`[ \n,.!?():"/;]+`)

func countWords(text string) int {
	count := 0
	for _, w := range wordSplitter.Split(text, -1) {
		if w != "" {
			count++
		}
	}
	return count
}

// Memory renders one memory block. Face tags are included only when face
// detection is enabled for the collection.
func Memory(m *model.Memory, withFaceTags bool) string {
	address := "Unknown"
	if m.Location != nil && m.Location.Address != "" {
		address = m.Location.Address
	}

	text := m.Content.Text
	if countWords(text) >= maxTextWords {
		text = ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nmemory_id: %s\n", m.ID)
	fmt.Fprintf(&b, "capture method: %s\n", m.CaptureMethod)
	fmt.Fprintf(&b, "temporal info: %s, %s, %s\n", m.Temporal.DateString, m.Temporal.DayOfWeek, m.Temporal.TimeOfDay)
	fmt.Fprintf(&b, "location: %s\n\n", address)
	b.WriteString("Content: \n")
	fmt.Fprintf(&b, "caption: %s\n", m.Content.Caption)
	fmt.Fprintf(&b, "visible objects: %s\n", strings.Join(m.Content.Objects, ", "))
	fmt.Fprintf(&b, "visible people: %s\n", strings.Join(m.Content.People, ", "))
	fmt.Fprintf(&b, "visible text: %s\n", text)
	fmt.Fprintf(&b, "heard speech: %s\n", m.Content.Speech)
	fmt.Fprintf(&b, "inferred activities: %s\n", strings.Join(m.Content.Activities, ", "))
	if withFaceTags {
		fmt.Fprintf(&b, "tagged people: %s\n", strings.Join(m.Content.FaceTags, ", "))
	}
	b.WriteString("\n")
	return b.String()
}

// CompositeEvent renders one composite event block
func CompositeEvent(e *model.CompositeEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nevent: %s\n", e.EventName)
	fmt.Fprintf(&b, "description: %s\n", e.Description)
	if e.StartDate != "" && e.EndDate != "" {
		fmt.Fprintf(&b, "date range: %s to %s\n", e.StartDate, e.EndDate)
	}
	ids := make([]string, 0, len(e.MemoryIDs))
	for _, id := range e.MemoryIDs {
		ids = append(ids, string(id))
	}
	fmt.Fprintf(&b, "memory_ids: %s\n", strings.Join(ids, ", "))
	return b.String()
}

// Knowledge renders one knowledge block
func Knowledge(k *model.Knowledge) string {
	return fmt.Sprintf("\n- %s\n", k.Fact)
}
