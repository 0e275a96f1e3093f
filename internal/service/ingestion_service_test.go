package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ai-mindmap-be/internal/dto"
	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/pkg/serverutils"
	"ai-mindmap-be/pkg/connector"
	"ai-mindmap-be/pkg/events"
	"ai-mindmap-be/pkg/scheduler"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngestionService(t *testing.T) (IIngestionService, *memoryFactory, *capturingPublisher) {
	t.Helper()
	factory := newMemoryFactory()
	publisher := &capturingPublisher{}
	queue := scheduler.NewInlineScheduler()

	svc := NewIngestionService(
		factory,
		connector.NewRegistry(connector.Config{}),
		queue,
		nil, // no embedding provider
		publisher,
		nil, // no redis, dedup falls back to the database
		nopLogger{},
	)

	queue.Bind(func(ctx context.Context, task scheduler.Task) error {
		jobId, err := uuid.Parse(task.ID)
		if err != nil {
			return err
		}
		return svc.Process(ctx, jobId)
	})
	return svc, factory, publisher
}

func textIngestionRequest(text string) *dto.CreateIngestionRequest {
	return &dto.CreateIngestionRequest{
		SourceType: connector.SourceText,
		Text:       text,
	}
}

func TestIngestionTextCompletesInline(t *testing.T) {
	svc, _, publisher := newTestIngestionService(t)
	userId := uuid.New()

	text := strings.Repeat("Photosynthesis converts light into chemical energy. ", 40)
	res, err := svc.Create(context.Background(), userId, textIngestionRequest(text))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.JobId)

	status, err := svc.GetStatus(context.Background(), userId, res.JobId)
	require.NoError(t, err)
	assert.Equal(t, entity.IngestionStatusCompleted, status.Status)
	assert.Greater(t, status.ChunkCount, 0)
	assert.Greater(t, status.WordCount, 0)

	content, err := svc.GetContent(context.Background(), userId, res.JobId)
	require.NoError(t, err)
	require.Len(t, content.Chunks, status.ChunkCount)
	for i, c := range content.Chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.NotEmpty(t, c.Text)
	}

	assert.Contains(t, publisher.types(), events.TypeIngestionCompleted)
}

func TestIngestionTextCompletesWithoutQueueWorker(t *testing.T) {
	// Same service but with a queue whose worker never runs: text must
	// still be processed before Create returns.
	factory := newMemoryFactory()
	svc := NewIngestionService(
		factory,
		connector.NewRegistry(connector.Config{}),
		discardScheduler{},
		nil,
		&capturingPublisher{},
		nil,
		nopLogger{},
	)
	userId := uuid.New()

	res, err := svc.Create(context.Background(), userId,
		textIngestionRequest("Osmosis moves water across a semipermeable membrane toward the higher solute concentration."))
	require.NoError(t, err)
	assert.Equal(t, entity.IngestionStatusCompleted, res.Status)

	content, err := svc.GetContent(context.Background(), userId, res.JobId)
	require.NoError(t, err)
	assert.Equal(t, entity.IngestionStatusCompleted, content.Status)
	assert.NotEmpty(t, content.Chunks)
}

func TestIngestionContentCarriesSummary(t *testing.T) {
	svc, _, _ := newTestIngestionService(t)
	userId := uuid.New()

	text := strings.Repeat("Enzymes lower the activation energy of reactions. ", 40)
	res, err := svc.Create(context.Background(), userId, textIngestionRequest(text))
	require.NoError(t, err)

	content, err := svc.GetContent(context.Background(), userId, res.JobId)
	require.NoError(t, err)
	require.NotEmpty(t, content.Summary)
	assert.True(t, strings.HasSuffix(content.Summary, "..."))
	// First hundred words plus the ellipsis marker.
	assert.Len(t, strings.Fields(content.Summary), 100)
	assert.Greater(t, content.WordCount, 100)
}

func TestIngestionUnsupportedSource(t *testing.T) {
	svc, _, _ := newTestIngestionService(t)

	req := textIngestionRequest("irrelevant")
	req.SourceType = "rss"
	_, err := svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.ErrTypeUnsupportedSource, appErr.Type)
}

func TestIngestionInvalidPayloadRejectedUpfront(t *testing.T) {
	svc, _, _ := newTestIngestionService(t)

	req := textIngestionRequest("   ")
	_, err := svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.ErrTypeValidation, appErr.Type)
}

func TestIngestionFailureIsTerminal(t *testing.T) {
	svc, factory, publisher := newTestIngestionService(t)
	userId := uuid.New()

	// A stored payload that passes creation-time checks but fails during
	// extraction.
	payload, err := json.Marshal(connector.RawPayload{Text: "   "})
	require.NoError(t, err)

	job := entity.IngestionJob{
		Id:         uuid.New(),
		UserId:     userId,
		SourceType: connector.SourceText,
		Status:     entity.IngestionStatusPending,
		Payload:    payload,
		CreatedAt:  time.Now(),
	}
	uow := factory.NewUnitOfWork(context.Background())
	require.NoError(t, uow.IngestionJobRepository().Create(context.Background(), &job))

	// Failure is terminal and returns nil so the queue acks.
	require.NoError(t, svc.Process(context.Background(), job.Id))

	status, err := svc.GetStatus(context.Background(), userId, job.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.IngestionStatusFailed, status.Status)
	assert.Equal(t, serverutils.ErrTypeValidation, status.ErrorType)
	assert.NotEmpty(t, status.ErrorMessage)
	assert.Contains(t, publisher.types(), events.TypeIngestionFailed)

	// A second Process call must not resurrect a terminal job.
	failedEvents := len(publisher.types())
	require.NoError(t, svc.Process(context.Background(), job.Id))
	status, err = svc.GetStatus(context.Background(), userId, job.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.IngestionStatusFailed, status.Status)
	assert.Len(t, publisher.types(), failedEvents)
}

func TestIngestionDedupReusesChunks(t *testing.T) {
	svc, _, _ := newTestIngestionService(t)
	userId := uuid.New()

	text := strings.Repeat("Mitochondria are the powerhouse of the cell. ", 50)

	first, err := svc.Create(context.Background(), userId, textIngestionRequest(text))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), userId, textIngestionRequest(text))
	require.NoError(t, err)
	require.NotEqual(t, first.JobId, second.JobId)

	firstContent, err := svc.GetContent(context.Background(), userId, first.JobId)
	require.NoError(t, err)
	secondContent, err := svc.GetContent(context.Background(), userId, second.JobId)
	require.NoError(t, err)

	require.Len(t, secondContent.Chunks, len(firstContent.Chunks))
	for i := range firstContent.Chunks {
		assert.Equal(t, firstContent.Chunks[i].Text, secondContent.Chunks[i].Text)
		assert.NotEqual(t, firstContent.Chunks[i].Id, secondContent.Chunks[i].Id)
	}
}

func TestIngestionOwnershipEnforced(t *testing.T) {
	svc, _, _ := newTestIngestionService(t)
	owner := uuid.New()

	res, err := svc.Create(context.Background(), owner, textIngestionRequest("Some short note about compilers."))
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), uuid.New(), res.JobId)
	require.Error(t, err)

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.ErrTypeNotFound, appErr.Type)
}
