package enums

import "fmt"

// LyricsSection selects which slice of the lyrics feeds a prompt.
type LyricsSection string

const (
	LyricsSectionChorus LyricsSection = "chorus"
	LyricsSectionVerse  LyricsSection = "verse"
	LyricsSectionAll    LyricsSection = "all"
)

var validLyricsSections = []LyricsSection{
	LyricsSectionChorus,
	LyricsSectionVerse,
	LyricsSectionAll,
}

// String returns the literal string for the section.
func (s LyricsSection) String() string {
	return string(s)
}

// IsValid reports whether the section is known.
func (s LyricsSection) IsValid() bool {
	for _, candidate := range validLyricsSections {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLyricsSection converts raw input into a LyricsSection.
func ParseLyricsSection(value string) (LyricsSection, error) {
	for _, candidate := range validLyricsSections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lyrics section %q", value)
}
