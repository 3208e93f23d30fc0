package enums

import "fmt"

// ContentStatus describes the moderation state of generated content.
type ContentStatus string

const (
	ContentStatusPendingReview ContentStatus = "pending_review"
	ContentStatusApproved      ContentStatus = "approved"
	ContentStatusRejected      ContentStatus = "rejected"
	ContentStatusPublished     ContentStatus = "published"
)

var validContentStatuses = []ContentStatus{
	ContentStatusPendingReview,
	ContentStatusApproved,
	ContentStatusRejected,
	ContentStatusPublished,
}

// String returns the literal string for the status.
func (s ContentStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s ContentStatus) IsValid() bool {
	for _, candidate := range validContentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseContentStatus converts raw input into a ContentStatus.
func ParseContentStatus(value string) (ContentStatus, error) {
	for _, candidate := range validContentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content status %q", value)
}
