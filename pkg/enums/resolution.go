package enums

import "fmt"

// Resolution selects the output resolution for video generation.
type Resolution string

const (
	Resolution480p  Resolution = "480p"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
)

var validResolutions = []Resolution{
	Resolution480p,
	Resolution720p,
	Resolution1080p,
}

// String returns the literal string for the resolution.
func (r Resolution) String() string {
	return string(r)
}

// IsValid reports whether the resolution is known.
func (r Resolution) IsValid() bool {
	for _, candidate := range validResolutions {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResolution converts raw input into a Resolution.
func ParseResolution(value string) (Resolution, error) {
	for _, candidate := range validResolutions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resolution %q", value)
}
