package enums

import "fmt"

// ImageStyle selects the visual style for image and video prompts.
type ImageStyle string

const (
	ImageStyleBeautiful  ImageStyle = "beautiful"
	ImageStyleAbstract   ImageStyle = "abstract"
	ImageStyleRealistic  ImageStyle = "realistic"
	ImageStyleMinimalist ImageStyle = "minimalist"
	ImageStyleArtistic   ImageStyle = "artistic"
)

var validImageStyles = []ImageStyle{
	ImageStyleBeautiful,
	ImageStyleAbstract,
	ImageStyleRealistic,
	ImageStyleMinimalist,
	ImageStyleArtistic,
}

// String returns the literal string for the style.
func (s ImageStyle) String() string {
	return string(s)
}

// IsValid reports whether the style is known.
func (s ImageStyle) IsValid() bool {
	for _, candidate := range validImageStyles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseImageStyle converts raw input into an ImageStyle.
func ParseImageStyle(value string) (ImageStyle, error) {
	for _, candidate := range validImageStyles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid image style %q", value)
}
