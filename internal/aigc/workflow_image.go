package aigc

import (
	"context"

	"github.com/google/uuid"

	"github.com/musebox/musebox-backend/pkg/dashscope"
	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/types"
)

const defaultImageEdge = 1024

// runLyricImage turns a lyrics excerpt into cover art candidates. Every
// provider result gets a content row; rows where the bucket copy failed keep
// only the short-lived provider URL.
func (o *Orchestrator) runLyricImage(ctx context.Context, task *models.GenerationTask, song *models.Song) error {
	params, err := parseImageParams(task.Parameters)
	if err != nil {
		return err
	}

	excerpt := lyricsExcerpt(song.Lyrics, params.Section)
	if excerpt == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "song has no lyrics to illustrate")
	}
	prompt := o.prompts.LyricImage(song.Title, song.Artist, excerpt, params.Style)

	urls, err := o.provider.GenerateImages(ctx, dashscope.ImageRequest{
		Prompt: prompt,
		Count:  params.Count,
	})
	if err != nil {
		return err
	}

	for i, providerURL := range urls {
		key := imageObjectKey(song.ID.String(), task.ID.String(), i)
		content := &models.GeneratedContent{
			ID:          uuid.New(),
			TaskID:      task.ID,
			ContentType: enums.ContentTypeImage,
			ContentURL:  providerURL,
			Status:      enums.ContentStatusPendingReview,
			Metadata: types.JSONMap{
				"style":          params.Style.String(),
				"lyrics_section": params.Section.String(),
				"width":          defaultImageEdge,
				"height":         defaultImageEdge,
			},
		}

		storedURL, storeErr := o.storeArtifact(ctx, providerURL, key, "image/jpeg")
		if storeErr != nil {
			logCtx := o.logg.WithFields(ctx, map[string]any{"object_key": key})
			o.logg.Warn(logCtx, "image storage failed; keeping provider url")
		} else {
			content.ObjectKey = &key
			content.StoredURL = &storedURL
		}

		if err := o.repo.CreateContent(ctx, content); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist generated image")
		}
	}
	return nil
}
