package aigc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musebox/musebox-backend/pkg/enums"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/types"
)

func TestParseImageParamsDefaults(t *testing.T) {
	params, err := parseImageParams(types.JSONMap{})
	require.NoError(t, err)

	assert.Equal(t, enums.ImageStyleBeautiful, params.Style)
	assert.Equal(t, 2, params.Count)
	assert.Equal(t, enums.LyricsSectionChorus, params.Section)
}

func TestParseImageParamsOverrides(t *testing.T) {
	params, err := parseImageParams(types.JSONMap{
		"style":          "minimalist",
		"count":          float64(3), // JSON numbers decode as float64
		"lyrics_section": "verse",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ImageStyleMinimalist, params.Style)
	assert.Equal(t, 3, params.Count)
	assert.Equal(t, enums.LyricsSectionVerse, params.Section)
}

func TestParseImageParamsRejectsBadCount(t *testing.T) {
	for _, count := range []any{0, 4, 1.5, "two"} {
		_, err := parseImageParams(types.JSONMap{"count": count})
		require.Error(t, err, "count %v", count)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
}

func TestParseImageParamsRejectsUnknownStyle(t *testing.T) {
	_, err := parseImageParams(types.JSONMap{"style": "vaporwave"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestParseSummaryParamsDefaultsToAll(t *testing.T) {
	params, err := parseSummaryParams(types.JSONMap{})
	require.NoError(t, err)
	assert.Equal(t, enums.CommentRangeAll, params.Range)

	params, err = parseSummaryParams(types.JSONMap{"comment_range": "hot"})
	require.NoError(t, err)
	assert.Equal(t, enums.CommentRangeHot, params.Range)
}

func TestParseVideoParamsDefaults(t *testing.T) {
	params, err := parseVideoParams(nil)
	require.NoError(t, err)

	assert.Equal(t, enums.ImageStyleBeautiful, params.Style)
	assert.Equal(t, 5, params.Duration)
	assert.Equal(t, enums.Resolution720p, params.Resolution)
	assert.True(t, params.UseExistingImage)
	assert.Equal(t, defaultMood, params.Mood)
}

func TestParseVideoParamsRejectsBadDuration(t *testing.T) {
	for _, duration := range []any{4, 11, "long"} {
		_, err := parseVideoParams(types.JSONMap{"duration": duration})
		require.Error(t, err, "duration %v", duration)
	}
}

func TestParseVideoParamsOverrides(t *testing.T) {
	params, err := parseVideoParams(types.JSONMap{
		"duration":           10,
		"resolution":         "1080p",
		"use_existing_image": false,
		"mood":               "uplifting",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, params.Duration)
	assert.Equal(t, enums.Resolution1080p, params.Resolution)
	assert.False(t, params.UseExistingImage)
	assert.Equal(t, "uplifting", params.Mood)
}

func TestValidateParametersRejectsUnknownTaskType(t *testing.T) {
	err := validateParameters(enums.TaskType("karaoke"), types.JSONMap{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
