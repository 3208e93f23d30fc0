package enums

import "fmt"

// CommentRange selects which comments feed a summary.
type CommentRange string

const (
	CommentRangeAll    CommentRange = "all"
	CommentRangeHot    CommentRange = "hot"
	CommentRangeLatest CommentRange = "latest"
)

var validCommentRanges = []CommentRange{
	CommentRangeAll,
	CommentRangeHot,
	CommentRangeLatest,
}

// String returns the literal string for the range.
func (r CommentRange) String() string {
	return string(r)
}

// IsValid reports whether the range is known.
func (r CommentRange) IsValid() bool {
	for _, candidate := range validCommentRanges {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseCommentRange converts raw input into a CommentRange.
func ParseCommentRange(value string) (CommentRange, error) {
	for _, candidate := range validCommentRanges {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid comment range %q", value)
}
