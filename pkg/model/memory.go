package model

import (
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidMediaType = goerr.New("invalid media type")
)

// MemoryID is the source filename of a captured item. It is the primary key
// of the store and never changes after ingestion.
type MemoryID string

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Validate checks if the media type is valid
func (m MediaType) Validate() error {
	switch m {
	case MediaTypeImage, MediaTypeVideo:
		return nil
	default:
		return goerr.Wrap(ErrInvalidMediaType, "unknown media type", goerr.Value("type", m))
	}
}

// DateStringFormat is the capture timestamp layout used in TemporalInfo,
// matching EXIF DateTimeOriginal. Lexicographic order equals chronological
// order, so memories can be sorted by the raw string.
const DateStringFormat = "2006:01:02 15:04:05"

type TemporalInfo struct {
	DateString string `json:"date_string"`
	DayOfWeek  string `json:"day_of_week"`
	TimeOfDay  string `json:"time_of_the_day"`
}

// NewTemporalInfo builds temporal info from a capture timestamp
func NewTemporalInfo(t time.Time) TemporalInfo {
	return TemporalInfo{
		DateString: t.Format(DateStringFormat),
		DayOfWeek:  t.Weekday().String(),
		TimeOfDay:  timeOfDay(t.Hour()),
	}
}

func timeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "Night"
	case hour < 12:
		return "Morning"
	case hour < 18:
		return "Afternoon"
	default:
		return "Evening"
	}
}

// CaptureTime parses the capture timestamp of the memory
func (t TemporalInfo) CaptureTime() (time.Time, error) {
	ts, err := time.Parse(DateStringFormat, t.DateString)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to parse date string", goerr.Value("date_string", t.DateString))
	}
	return ts, nil
}

type Location struct {
	GPS     []float64 `json:"gps,omitempty"`
	Address string    `json:"address,omitempty"`
	City    string    `json:"city,omitempty"`
	State   string    `json:"state,omitempty"`
	Zip     string    `json:"zip,omitempty"`
	Country string    `json:"country,omitempty"`
}

// Content holds the annotated descriptors of a memory. It is written exactly
// once at annotation time; only FaceTags may change afterwards.
type Content struct {
	Caption    string   `json:"caption"`
	Objects    []string `json:"objects"`
	People     []string `json:"people"`
	Activities []string `json:"activities"`
	Text       string   `json:"text,omitempty"`
	Speech     string   `json:"speech,omitempty"`
	FaceTags   []string `json:"face_tags,omitempty"`
}

// Memory represents one annotated captured item (image or video)
type Memory struct {
	ID            MemoryID     `json:"filename"`
	FilePath      string       `json:"filepath"`
	MediaType     MediaType    `json:"media_type"`
	CaptureMethod string       `json:"capture_method,omitempty"`
	Temporal      TemporalInfo `json:"temporal_info"`
	Location      *Location    `json:"location,omitempty"`
	Content       Content      `json:"content"`
}

// AddFaceTag appends a face tag unless it is already present
func (m *Memory) AddFaceTag(tag string) {
	if slices.Contains(m.Content.FaceTags, tag) {
		return
	}
	m.Content.FaceTags = append(m.Content.FaceTags, tag)
}

// RemoveFaceTag removes all occurrences of a face tag and reports whether
// the memory carried it
func (m *Memory) RemoveFaceTag(tag string) bool {
	before := len(m.Content.FaceTags)
	m.Content.FaceTags = slices.DeleteFunc(m.Content.FaceTags, func(t string) bool {
		return t == tag
	})
	return len(m.Content.FaceTags) != before
}

// RenameFaceTag replaces oldTag with newTag, deduplicating the result. A
// memory without oldTag is left untouched.
func (m *Memory) RenameFaceTag(oldTag, newTag string) bool {
	if !m.RemoveFaceTag(oldTag) {
		return false
	}
	m.AddFaceTag(newTag)
	return true
}
