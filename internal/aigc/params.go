package aigc

import (
	"fmt"

	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/enums"
	"github.com/musebox/musebox-backend/pkg/types"
)

const (
	defaultImageCount    = 2
	minImageCount        = 1
	maxImageCount        = 3
	defaultVideoDuration = 5
	minVideoDuration     = 5
	maxVideoDuration     = 10
	defaultMood          = "soothing"
)

// imageParams drive the lyric_image workflow.
type imageParams struct {
	Style   enums.ImageStyle
	Count   int
	Section enums.LyricsSection
}

// summaryParams drive the comment_summary workflow.
type summaryParams struct {
	Range enums.CommentRange
}

// videoParams drive the lyric_video and text_to_video workflows.
type videoParams struct {
	Style            enums.ImageStyle
	Duration         int
	Resolution       enums.Resolution
	UseExistingImage bool
	Mood             string
}

func parseImageParams(raw types.JSONMap) (imageParams, error) {
	params := imageParams{
		Style:   enums.ImageStyleBeautiful,
		Count:   defaultImageCount,
		Section: enums.LyricsSectionChorus,
	}
	if v, ok := raw["style"]; ok {
		style, err := enums.ParseImageStyle(asString(v))
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid style parameter")
		}
		params.Style = style
	}
	if v, ok := raw["count"]; ok {
		count, ok := asInt(v)
		if !ok || count < minImageCount || count > maxImageCount {
			return params, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("count must be between %d and %d", minImageCount, maxImageCount))
		}
		params.Count = count
	}
	if v, ok := raw["lyrics_section"]; ok {
		section, err := enums.ParseLyricsSection(asString(v))
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lyrics_section parameter")
		}
		params.Section = section
	}
	return params, nil
}

func parseSummaryParams(raw types.JSONMap) (summaryParams, error) {
	params := summaryParams{Range: enums.CommentRangeAll}
	if v, ok := raw["comment_range"]; ok {
		commentRange, err := enums.ParseCommentRange(asString(v))
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid comment_range parameter")
		}
		params.Range = commentRange
	}
	return params, nil
}

func parseVideoParams(raw types.JSONMap) (videoParams, error) {
	params := videoParams{
		Style:            enums.ImageStyleBeautiful,
		Duration:         defaultVideoDuration,
		Resolution:       enums.Resolution720p,
		UseExistingImage: true,
		Mood:             defaultMood,
	}
	if v, ok := raw["style"]; ok {
		style, err := enums.ParseImageStyle(asString(v))
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid style parameter")
		}
		params.Style = style
	}
	if v, ok := raw["duration"]; ok {
		duration, ok := asInt(v)
		if !ok || duration < minVideoDuration || duration > maxVideoDuration {
			return params, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duration must be between %d and %d seconds", minVideoDuration, maxVideoDuration))
		}
		params.Duration = duration
	}
	if v, ok := raw["resolution"]; ok {
		resolution, err := enums.ParseResolution(asString(v))
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resolution parameter")
		}
		params.Resolution = resolution
	}
	if v, ok := raw["use_existing_image"]; ok {
		b, ok := v.(bool)
		if !ok {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "use_existing_image must be a boolean")
		}
		params.UseExistingImage = b
	}
	if v, ok := raw["mood"]; ok {
		if mood := asString(v); mood != "" {
			params.Mood = mood
		}
	}
	return params, nil
}

// validateParameters runs the per-type schema check at submission time.
func validateParameters(taskType enums.TaskType, raw types.JSONMap) error {
	var err error
	switch taskType {
	case enums.TaskTypeLyricImage:
		_, err = parseImageParams(raw)
	case enums.TaskTypeCommentSummary:
		_, err = parseSummaryParams(raw)
	case enums.TaskTypeLyricVideo, enums.TaskTypeTextToVideo:
		_, err = parseVideoParams(raw)
	default:
		err = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported task type %q", taskType))
	}
	return err
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asInt accepts both int and float64 since JSON decoding yields floats.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
