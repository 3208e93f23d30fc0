package enums

import "fmt"

// TaskType identifies the kind of generation a task performs.
type TaskType string

const (
	TaskTypeLyricImage     TaskType = "lyric_image"
	TaskTypeCommentSummary TaskType = "comment_summary"
	TaskTypeLyricVideo     TaskType = "lyric_video"
	TaskTypeTextToVideo    TaskType = "text_to_video"
)

var validTaskTypes = []TaskType{
	TaskTypeLyricImage,
	TaskTypeCommentSummary,
	TaskTypeLyricVideo,
	TaskTypeTextToVideo,
}

// String returns the literal string for the task type.
func (t TaskType) String() string {
	return string(t)
}

// IsValid reports whether the task type is known.
func (t TaskType) IsValid() bool {
	for _, candidate := range validTaskTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaskType converts raw input into a TaskType.
func ParseTaskType(value string) (TaskType, error) {
	for _, candidate := range validTaskTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task type %q", value)
}
