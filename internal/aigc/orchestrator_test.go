package aigc

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/musebox/musebox-backend/pkg/config"
	"github.com/musebox/musebox-backend/pkg/dashscope"
	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/pagination"
)

type fakePipelineRepo struct {
	task        *models.GenerationTask
	contents    []models.GeneratedContent
	published   *models.GeneratedContent
	claimable   bool
	deleteCalls int
}

func (f *fakePipelineRepo) WithTx(tx *gorm.DB) Repository { return f }
func (f *fakePipelineRepo) CreateTask(ctx context.Context, task *models.GenerationTask) error {
	f.task = task
	return nil
}
func (f *fakePipelineRepo) FindTask(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	if f.task == nil || f.task.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.task, nil
}
func (f *fakePipelineRepo) FindTaskWithContents(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	return f.FindTask(ctx, id)
}
func (f *fakePipelineRepo) ClaimTask(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	if !f.claimable {
		return false, nil
	}
	f.task.Status = enums.TaskStatusProcessing
	f.task.Attempts++
	return true, nil
}
func (f *fakePipelineRepo) MarkTaskCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	f.task.Status = enums.TaskStatusCompleted
	f.task.CompletedAt = &now
	return nil
}
func (f *fakePipelineRepo) MarkTaskFailed(ctx context.Context, id uuid.UUID, message string, now time.Time) error {
	f.task.Status = enums.TaskStatusFailed
	f.task.ErrorMessage = &message
	return nil
}
func (f *fakePipelineRepo) ListTasks(ctx context.Context, params listTasksParams) ([]models.GenerationTask, *pagination.Cursor, error) {
	return nil, nil, nil
}
func (f *fakePipelineRepo) FindStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.GenerationTask, error) {
	return nil, nil
}
func (f *fakePipelineRepo) CreateContent(ctx context.Context, content *models.GeneratedContent) error {
	f.contents = append(f.contents, *content)
	return nil
}
func (f *fakePipelineRepo) FindContent(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakePipelineRepo) DeleteTaskContents(ctx context.Context, taskID uuid.UUID) error {
	f.deleteCalls++
	f.contents = nil
	return nil
}
func (f *fakePipelineRepo) ListContents(ctx context.Context, params listContentsParams) ([]models.GeneratedContent, *pagination.Cursor, error) {
	return nil, nil, nil
}
func (f *fakePipelineRepo) ListPublishedBySong(ctx context.Context, songID uuid.UUID) ([]models.GeneratedContent, error) {
	return nil, nil
}
func (f *fakePipelineRepo) LatestPublishedImage(ctx context.Context, songID uuid.UUID) (*models.GeneratedContent, error) {
	if f.published == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.published, nil
}
func (f *fakePipelineRepo) UpdateContent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}
func (f *fakePipelineRepo) IncrementUsage(ctx context.Context, id uuid.UUID) error { return nil }

type fakeProvider struct {
	imageURLs    []string
	imageErr     error
	imageCalls   int
	lastImageReq dashscope.ImageRequest

	text      string
	textErr   error
	textCalls int

	videoURL     string
	videoErr     error
	videoCalls   int
	lastVideoReq dashscope.VideoRequest
}

func (f *fakeProvider) GenerateImages(ctx context.Context, req dashscope.ImageRequest) ([]string, error) {
	f.imageCalls++
	f.lastImageReq = req
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.imageURLs, nil
}

func (f *fakeProvider) GenerateText(ctx context.Context, req dashscope.TextRequest) (string, error) {
	f.textCalls++
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

func (f *fakeProvider) GenerateVideo(ctx context.Context, req dashscope.VideoRequest) (string, error) {
	f.videoCalls++
	f.lastVideoReq = req
	if f.videoErr != nil {
		return "", f.videoErr
	}
	return f.videoURL, nil
}

type fakeStore struct {
	uploadErr error
	uploaded  []string
}

func (f *fakeStore) Upload(ctx context.Context, bucket, key string, payload io.Reader, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploaded = append(f.uploaded, key)
	return nil
}

func (f *fakeStore) PublicURL(bucket, key string) string {
	return "https://cdn.test/" + key
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("artifact-bytes")), nil
}

type fakeLeases struct {
	acquired bool
	releases int
}

func (f *fakeLeases) AcquireTaskLease(ctx context.Context, taskID, owner string, ttl time.Duration) (bool, error) {
	return f.acquired, nil
}

func (f *fakeLeases) ReleaseTaskLease(ctx context.Context, taskID, owner string) error {
	f.releases++
	return nil
}

type fakeComments struct {
	comments []models.Comment
	calls    int
}

func (f *fakeComments) FindForSummary(ctx context.Context, songID uuid.UUID, commentRange enums.CommentRange, limit int) ([]models.Comment, error) {
	f.calls++
	return f.comments, nil
}

type pipelineFixture struct {
	repo     *fakePipelineRepo
	provider *fakeProvider
	store    *fakeStore
	leases   *fakeLeases
	comments *fakeComments
	song     *models.Song
	orch     *Orchestrator
	waits    []time.Duration
}

func newPipelineFixture(t *testing.T, taskType enums.TaskType, params map[string]any) *pipelineFixture {
	t.Helper()

	song := activeSong()
	song.Lyrics = strings.Join([]string{
		"first line", "second line", "third line", "fourth line",
		"fifth line", "sixth line", "seventh line", "eighth line", "ninth line",
	}, "\n")

	fx := &pipelineFixture{
		repo: &fakePipelineRepo{claimable: true},
		provider: &fakeProvider{
			imageURLs: []string{"https://provider.test/img-0.jpg", "https://provider.test/img-1.jpg"},
			text:      "A warm, well-liked song.",
			videoURL:  "https://provider.test/video.mp4",
		},
		store:    &fakeStore{},
		leases:   &fakeLeases{acquired: true},
		comments: &fakeComments{},
		song:     song,
	}
	fx.repo.task = &models.GenerationTask{
		ID:         uuid.New(),
		TaskType:   taskType,
		SongID:     song.ID,
		Status:     enums.TaskStatusPending,
		Parameters: params,
	}

	orch, err := NewOrchestrator(OrchestratorParams{
		Repo:     fx.repo,
		Songs:    &stubSongs{song: song},
		Comments: fx.comments,
		Provider: fx.provider,
		Store:    fx.store,
		Fetcher:  fakeFetcher{},
		Leases:   fx.leases,
		Logger:   testLogger(),
		Config:   config.PipelineConfig{MaxAttempts: 3, BackoffStep: time.Minute, ClaimLeaseTTL: time.Minute},
		WorkerID: "worker-test",
	})
	require.NoError(t, err)
	orch.wait = func(ctx context.Context, d time.Duration) error {
		fx.waits = append(fx.waits, d)
		return nil
	}
	fx.orch = orch
	return fx
}

func TestExecuteLyricImageCreatesPendingReviewRows(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, map[string]any{"count": 2, "style": "abstract"})

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.TaskStatusCompleted, fx.repo.task.Status)
	require.Len(t, fx.repo.contents, 2)
	for i, content := range fx.repo.contents {
		assert.Equal(t, enums.ContentStatusPendingReview, content.Status)
		assert.Equal(t, enums.ContentTypeImage, content.ContentType)
		assert.Equal(t, fx.provider.imageURLs[i], content.ContentURL)
		require.NotNil(t, content.StoredURL)
		assert.Contains(t, *content.StoredURL, "aigc/images/")
		assert.Equal(t, "abstract", content.Metadata["style"])
	}
	assert.Equal(t, 1, fx.leases.releases)
}

func TestExecuteImageStorageFailureKeepsProviderURL(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, map[string]any{"count": 1})
	fx.provider.imageURLs = fx.provider.imageURLs[:1]
	fx.store.uploadErr = pkgerrors.New(pkgerrors.CodeStorage, "bucket unavailable")

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.TaskStatusCompleted, fx.repo.task.Status)
	require.Len(t, fx.repo.contents, 1)
	content := fx.repo.contents[0]
	assert.Equal(t, fx.provider.imageURLs[0], content.ContentURL)
	assert.Nil(t, content.StoredURL)
	assert.Nil(t, content.ObjectKey)
	assert.Equal(t, content.ContentURL, content.DisplayURL())
}

func TestExecuteCommentSummaryFailsFastWithoutComments(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeCommentSummary, nil)

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.Error(t, err)

	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Equal(t, 0, fx.provider.textCalls)
	assert.Equal(t, enums.TaskStatusFailed, fx.repo.task.Status)
	require.NotNil(t, fx.repo.task.ErrorMessage)
	assert.Contains(t, *fx.repo.task.ErrorMessage, "no comments")
}

func TestRunZeroCommentSummaryConsumesRetryBudget(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeCommentSummary, nil)

	err := fx.orch.Run(context.Background(), fx.repo.task.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Len(t, fx.waits, 2)
	assert.Equal(t, 0, fx.provider.textCalls)
	assert.Equal(t, 3, fx.repo.task.Attempts)
	assert.Equal(t, enums.TaskStatusFailed, fx.repo.task.Status)
}

func TestExecuteCommentSummaryStoresText(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeCommentSummary, map[string]any{"comment_range": "hot"})
	fx.comments.comments = []models.Comment{
		{ID: uuid.New(), Body: "love this"},
		{ID: uuid.New(), Body: "on repeat all week"},
	}

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.NoError(t, err)

	require.Len(t, fx.repo.contents, 1)
	content := fx.repo.contents[0]
	assert.Equal(t, enums.ContentTypeText, content.ContentType)
	require.NotNil(t, content.Body)
	assert.Equal(t, fx.provider.text, *content.Body)
	assert.Equal(t, "hot", content.Metadata["comment_range"])
	assert.Equal(t, 2, content.Metadata["comment_count"])
}

func TestExecuteLyricVideoUsesPublishedImage(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricVideo, nil)
	stored := "https://cdn.test/aigc/images/existing.jpg"
	fx.repo.published = &models.GeneratedContent{
		ID:          uuid.New(),
		ContentType: enums.ContentTypeImage,
		ContentURL:  "https://provider.test/expired.jpg",
		StoredURL:   &stored,
		Status:      enums.ContentStatusPublished,
	}

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, fx.provider.imageCalls)
	assert.Equal(t, stored, fx.provider.lastVideoReq.ImageURL)
	require.Len(t, fx.repo.contents, 1)
	assert.Equal(t, enums.ContentTypeVideo, fx.repo.contents[0].ContentType)
	assert.Equal(t, "published", fx.repo.contents[0].Metadata["image_source"])
}

func TestExecuteLyricVideoSynthesizesFrameWhenNonePublished(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricVideo, nil)

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, fx.provider.imageCalls)
	assert.Equal(t, 1, fx.provider.lastImageReq.Count)
	assert.Equal(t, fx.provider.imageURLs[0], fx.provider.lastVideoReq.ImageURL)
	assert.Equal(t, "synthesized", fx.repo.contents[0].Metadata["image_source"])
}

func TestExecuteVideoStorageFailureFlagsMetadata(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricVideo, nil)
	fx.store.uploadErr = pkgerrors.New(pkgerrors.CodeStorage, "bucket unavailable")

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.TaskStatusCompleted, fx.repo.task.Status)
	require.Len(t, fx.repo.contents, 1)
	content := fx.repo.contents[0]
	assert.Equal(t, fx.provider.videoURL, content.ContentURL)
	assert.Nil(t, content.StoredURL)
	assert.Equal(t, true, content.Metadata["storage_failed"])
}

func TestExecuteTextToVideoSeedsFrameAndCarriesMood(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeTextToVideo, map[string]any{"mood": "stormy"})

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, fx.provider.imageCalls)
	assert.Equal(t, fx.provider.imageURLs[0], fx.provider.lastVideoReq.ImageURL)
	assert.Contains(t, fx.provider.lastVideoReq.Prompt, "stormy")
	assert.Equal(t, "stormy", fx.repo.contents[0].Metadata["mood"])
}

func TestExecuteTextToVideoAbortsWhenFrameSynthesisFails(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeTextToVideo, nil)
	fx.provider.imageErr = pkgerrors.New(pkgerrors.CodeProvider, "image synthesis unavailable")

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.Error(t, err)

	assert.Equal(t, 0, fx.provider.videoCalls)
	assert.Equal(t, enums.TaskStatusFailed, fx.repo.task.Status)
}

func TestExecuteLeaseHeldIsStateConflict(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, nil)
	fx.leases.acquired = false

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Equal(t, enums.TaskStatusPending, fx.repo.task.Status)
}

func TestExecuteUnclaimableTaskIsStateConflict(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, nil)
	fx.repo.claimable = false
	fx.repo.task.Status = enums.TaskStatusCompleted

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Equal(t, enums.TaskStatusCompleted, fx.repo.task.Status)
}

func TestExecuteRetryReentryClearsPriorContents(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, map[string]any{"count": 1})
	fx.provider.imageURLs = fx.provider.imageURLs[:1]
	fx.repo.task.Attempts = 1 // claim bumps it to 2

	err := fx.orch.Execute(context.Background(), fx.repo.task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.repo.deleteCalls)
}

func TestRunRetriesTransientFailuresWithLinearBackoff(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, nil)
	fx.provider.imageErr = pkgerrors.New(pkgerrors.CodeProvider, "provider down")
	fx.repo.task.Status = enums.TaskStatusPending

	// Claim must accept failed tasks on re-entry.
	err := fx.orch.Run(context.Background(), fx.repo.task.ID)
	require.Error(t, err)

	assert.Equal(t, 3, fx.provider.imageCalls)
	require.Len(t, fx.waits, 2)
	assert.Equal(t, time.Minute, fx.waits[0])
	assert.Equal(t, 2*time.Minute, fx.waits[1])
	assert.Equal(t, enums.TaskStatusFailed, fx.repo.task.Status)
	assert.Equal(t, 3, fx.repo.task.Attempts)
}

func TestRunValidationFailuresStillConsumeAttempts(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, map[string]any{"count": 99})

	err := fx.orch.Run(context.Background(), fx.repo.task.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Len(t, fx.waits, 2)
	assert.Equal(t, 0, fx.provider.imageCalls)
	assert.Equal(t, enums.TaskStatusFailed, fx.repo.task.Status)
	assert.Equal(t, 3, fx.repo.task.Attempts)
}

func TestRunStateConflictShortCircuits(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, nil)
	fx.leases.acquired = false

	err := fx.orch.Run(context.Background(), fx.repo.task.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Empty(t, fx.waits)
}

func TestRunReturnsNilOnSuccess(t *testing.T) {
	fx := newPipelineFixture(t, enums.TaskTypeLyricImage, nil)

	require.NoError(t, fx.orch.Run(context.Background(), fx.repo.task.ID))
	assert.Empty(t, fx.waits)
	assert.Equal(t, enums.TaskStatusCompleted, fx.repo.task.Status)
}
