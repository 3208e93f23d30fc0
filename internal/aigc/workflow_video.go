package aigc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/musebox/musebox-backend/pkg/dashscope"
	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/types"
)

// runLyricVideo animates the song's cover art into a short video. The first
// frame comes from the newest published image for the song when one exists
// and the task asked for it; otherwise a fresh frame is synthesized inline.
func (o *Orchestrator) runLyricVideo(ctx context.Context, task *models.GenerationTask, song *models.Song) error {
	params, err := parseVideoParams(task.Parameters)
	if err != nil {
		return err
	}

	excerpt := lyricsExcerpt(song.Lyrics, enums.LyricsSectionChorus)
	if excerpt == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "song has no lyrics to animate")
	}

	imageURL, imageSource, err := o.sourceImage(ctx, song, params)
	if err != nil {
		return err
	}

	prompt := o.prompts.LyricVideo(song.Title, song.Artist, excerpt, params.Style)
	videoURL, err := o.provider.GenerateVideo(ctx, dashscope.VideoRequest{
		Prompt:     prompt,
		ImageURL:   imageURL,
		Duration:   params.Duration,
		Resolution: params.Resolution.String(),
	})
	if err != nil {
		return err
	}

	metadata := types.JSONMap{
		"style":        params.Style.String(),
		"duration":     params.Duration,
		"resolution":   params.Resolution.String(),
		"image_source": imageSource,
	}
	return o.persistVideo(ctx, task, song, videoURL, metadata)
}

// runTextToVideo synthesizes a seed frame and animates it from the lyrics
// alone. Unlike the lyric video flow there is no fallback frame, so a failed
// image synthesis aborts the task.
func (o *Orchestrator) runTextToVideo(ctx context.Context, task *models.GenerationTask, song *models.Song) error {
	params, err := parseVideoParams(task.Parameters)
	if err != nil {
		return err
	}

	excerpt := lyricsExcerpt(song.Lyrics, enums.LyricsSectionAll)
	if excerpt == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "song has no lyrics to animate")
	}

	imageURL, err := o.synthesizeFrame(ctx, song, excerpt, params.Style)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "synthesize seed frame")
	}

	prompt := o.prompts.TextToVideo(song.Title, song.Artist, excerpt, params.Style, params.Mood)
	videoURL, err := o.provider.GenerateVideo(ctx, dashscope.VideoRequest{
		Prompt:     prompt,
		ImageURL:   imageURL,
		Duration:   params.Duration,
		Resolution: params.Resolution.String(),
	})
	if err != nil {
		return err
	}

	metadata := types.JSONMap{
		"style":      params.Style.String(),
		"mood":       params.Mood,
		"duration":   params.Duration,
		"resolution": params.Resolution.String(),
	}
	return o.persistVideo(ctx, task, song, videoURL, metadata)
}

// sourceImage picks the first frame for a lyric video and reports where it
// came from.
func (o *Orchestrator) sourceImage(ctx context.Context, song *models.Song, params videoParams) (string, string, error) {
	if params.UseExistingImage {
		existing, err := o.repo.LatestPublishedImage(ctx, song.ID)
		if err == nil {
			return existing.DisplayURL(), "published", nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load published image")
		}
	}

	excerpt := lyricsExcerpt(song.Lyrics, enums.LyricsSectionChorus)
	url, err := o.synthesizeFrame(ctx, song, excerpt, params.Style)
	if err != nil {
		return "", "", err
	}
	return url, "synthesized", nil
}

// synthesizeFrame generates a single provider-hosted image to seed a video.
// The frame is consumed immediately by the video call and never stored.
func (o *Orchestrator) synthesizeFrame(ctx context.Context, song *models.Song, excerpt string, style enums.ImageStyle) (string, error) {
	prompt := o.prompts.LyricImage(song.Title, song.Artist, excerpt, style)
	urls, err := o.provider.GenerateImages(ctx, dashscope.ImageRequest{
		Prompt: prompt,
		Count:  1,
	})
	if err != nil {
		return "", err
	}
	return urls[0], nil
}

// persistVideo copies the provider video into the bucket and writes the
// content row. Provider URLs expire quickly, so a storage failure is
// recorded on the row rather than failing the whole task.
func (o *Orchestrator) persistVideo(ctx context.Context, task *models.GenerationTask, song *models.Song, providerURL string, metadata types.JSONMap) error {
	key := videoObjectKey(song.ID.String(), task.ID.String())
	content := &models.GeneratedContent{
		ID:          uuid.New(),
		TaskID:      task.ID,
		ContentType: enums.ContentTypeVideo,
		ContentURL:  providerURL,
		Status:      enums.ContentStatusPendingReview,
		Metadata:    metadata,
	}

	storedURL, err := o.storeArtifact(ctx, providerURL, key, "video/mp4")
	if err != nil {
		metadata["storage_failed"] = true
		logCtx := o.logg.WithFields(ctx, map[string]any{"object_key": key})
		o.logg.Warn(logCtx, "video storage failed; keeping provider url")
	} else {
		content.ObjectKey = &key
		content.StoredURL = &storedURL
	}

	if err := o.repo.CreateContent(ctx, content); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist generated video")
	}
	return nil
}
