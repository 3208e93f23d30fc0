package enums

import "fmt"

// ContentType identifies the media kind of a generated artifact.
type ContentType string

const (
	ContentTypeImage ContentType = "image"
	ContentTypeText  ContentType = "text"
	ContentTypeVideo ContentType = "video"
)

var validContentTypes = []ContentType{
	ContentTypeImage,
	ContentTypeText,
	ContentTypeVideo,
}

// String returns the literal string for the content type.
func (c ContentType) String() string {
	return string(c)
}

// IsValid reports whether the content type is known.
func (c ContentType) IsValid() bool {
	for _, candidate := range validContentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentType converts raw input into a ContentType.
func ParseContentType(value string) (ContentType, error) {
	for _, candidate := range validContentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content type %q", value)
}
