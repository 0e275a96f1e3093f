package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-mindmap-be/internal/dto"
	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/pkg/logger"
	"ai-mindmap-be/internal/pkg/serverutils"
	"ai-mindmap-be/internal/repository/specification"
	"ai-mindmap-be/internal/repository/unitofwork"
	"ai-mindmap-be/pkg/chunker"
	"ai-mindmap-be/pkg/connector"
	"ai-mindmap-be/pkg/embedding"
	"ai-mindmap-be/pkg/events"
	"ai-mindmap-be/pkg/scheduler"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// summaryWords bounds the preview summary stored with a completed job.
const summaryWords = 100

// EventPublisher is the slice of the NATS publisher the services need.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IIngestionService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateIngestionRequest) (*dto.CreateIngestionResponse, error)
	GetStatus(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.IngestionStatusResponse, error)
	GetContent(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.IngestionContentResponse, error)

	// Process runs one ingestion job to its terminal state. Bound to the
	// scheduler. Terminal jobs are never retried.
	Process(ctx context.Context, jobId uuid.UUID) error
}

type ingestionService struct {
	uowFactory        unitofwork.RepositoryFactory
	connectors        *connector.Registry
	queue             scheduler.Scheduler
	embeddingProvider embedding.Provider
	eventPublisher    EventPublisher
	rdb               *redis.Client
	log               logger.ILogger
}

func NewIngestionService(
	uowFactory unitofwork.RepositoryFactory,
	connectors *connector.Registry,
	queue scheduler.Scheduler,
	embeddingProvider embedding.Provider,
	eventPublisher EventPublisher,
	rdb *redis.Client,
	log logger.ILogger,
) IIngestionService {
	return &ingestionService{
		uowFactory:        uowFactory,
		connectors:        connectors,
		queue:             queue,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
		rdb:               rdb,
		log:               log,
	}
}

func payloadFromRequest(req *dto.CreateIngestionRequest) connector.RawPayload {
	return connector.RawPayload{
		Text:       req.Text,
		Title:      req.Title,
		URL:        req.URL,
		VideoID:    req.VideoID,
		Filename:   req.Filename,
		FileURL:    req.FileURL,
		Query:      req.Query,
		MaxResults: req.MaxResults,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *ingestionService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateIngestionRequest) (*dto.CreateIngestionResponse, error) {
	conn, err := s.connectors.Get(req.SourceType)
	if err != nil {
		return nil, serverutils.NewAppError(serverutils.ErrTypeUnsupportedSource,
			fmt.Sprintf("unsupported source type: %s", req.SourceType), err)
	}

	payload := payloadFromRequest(req)
	if err := conn.Validate(payload); err != nil {
		return nil, serverutils.NewAppError(serverutils.ErrTypeValidation, err.Error(), err)
	}

	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	job := entity.IngestionJob{
		Id:         uuid.New(),
		UserId:     userId,
		SourceType: req.SourceType,
		Status:     entity.IngestionStatusPending,
		Title:      req.Title,
		SourceURL:  firstNonEmpty(req.URL, req.FileURL),
		Payload:    payloadJson,
		CreatedAt:  time.Now(),
	}
	if err := uow.IngestionJobRepository().Create(ctx, &job); err != nil {
		return nil, err
	}

	// Text is local and fast, it completes before Create returns so the
	// chunks are readable immediately. Everything else goes through the
	// queue, with a blocking inline run when enqueueing fails.
	if job.SourceType == connector.SourceText {
		if perr := s.Process(ctx, job.Id); perr != nil {
			return nil, perr
		}
		return s.createdResponse(ctx, job.Id)
	}

	task := scheduler.Task{Kind: scheduler.TaskProcessIngestion, ID: job.Id.String()}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.log.Warn("ingestion", "enqueue failed, processing inline", map[string]interface{}{
			"job_id": job.Id, "error": err.Error(),
		})
		if perr := s.Process(ctx, job.Id); perr != nil {
			return nil, perr
		}
		return s.createdResponse(ctx, job.Id)
	}

	return &dto.CreateIngestionResponse{
		JobId:  job.Id,
		Status: job.Status,
	}, nil
}

// createdResponse re-reads a job processed during Create so the caller
// sees its terminal status.
func (s *ingestionService) createdResponse(ctx context.Context, jobId uuid.UUID) (*dto.CreateIngestionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.IngestionJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("ingestion job %s not found", jobId)
	}
	return &dto.CreateIngestionResponse{
		JobId:  job.Id,
		Status: job.Status,
	}, nil
}

func (s *ingestionService) Process(ctx context.Context, jobId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	jobs := uow.IngestionJobRepository()

	job, err := jobs.FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("ingestion job %s not found", jobId)
	}
	if job.IsTerminal() {
		s.log.Warn("ingestion", "skipping terminal job", map[string]interface{}{
			"job_id": jobId, "status": job.Status,
		})
		return nil
	}

	job.Status = entity.IngestionStatusProcessing
	if err := jobs.Update(ctx, job); err != nil {
		return err
	}

	if err := s.runExtraction(ctx, uow, job); err != nil {
		return s.failJob(ctx, uow, job, err)
	}

	job.Status = entity.IngestionStatusCompleted
	if err := jobs.Update(ctx, job); err != nil {
		return err
	}

	s.publishEvent(ctx, events.NewIngestionCompleted(
		job.UserId.String(), job.Id.String(), job.SourceType, job.ChunkCount))
	return nil
}

func (s *ingestionService) runExtraction(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.IngestionJob) error {
	conn, err := s.connectors.Get(job.SourceType)
	if err != nil {
		return err
	}

	var payload connector.RawPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode stored payload: %w", err)
	}

	extracted, err := conn.Extract(ctx, payload)
	if err != nil {
		return err
	}

	normalized := chunker.RemoveBoilerplate(chunker.NormalizeWhitespace(extracted.Text))
	hash := chunker.ContentHash(normalized)
	job.ContentHash = hash
	if job.Title == "" {
		job.Title = extracted.Metadata.Title
	}
	job.WordCount = extracted.Metadata.WordCount
	job.Summary = chunker.Summarize(normalized, summaryWords)
	job.Citations = extracted.Citations

	// Dedup: if this user already ingested identical content, reuse the
	// earlier job's chunks instead of re-chunking and re-embedding.
	if original := s.findDuplicate(ctx, uow, job, hash); original != nil {
		return s.copyChunks(ctx, uow, original, job)
	}

	chunks := chunker.ChunkText(normalized, chunker.Options{
		SourceType: job.SourceType,
		Title:      extracted.Metadata.Title,
		URL:        extracted.Metadata.URL,
		Author:     extracted.Metadata.Author,
		Timestamp:  extracted.Metadata.TimestampISO,
	})

	entities := make([]*entity.ContentChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = &entity.ContentChunk{
			Id:             uuid.New(),
			JobId:          job.Id,
			ChunkIndex:     c.Metadata.ChunkIndex,
			TotalChunks:    c.Metadata.TotalChunks,
			Text:           c.Text,
			TokensEstimate: c.TokensEstimate,
			SourceType:     c.Metadata.SourceType,
			Title:          c.Metadata.Title,
			URL:            c.Metadata.URL,
			Author:         c.Metadata.Author,
			Timestamp:      c.Metadata.Timestamp,
			CreatedAt:      time.Now(),
		}
		// Embeddings are best effort, a failure never fails the job.
		if s.embeddingProvider != nil {
			if vec, eerr := s.embeddingProvider.Generate(ctx, c.Text, embedding.TaskDocument); eerr == nil {
				entities[i].Embedding = vec
			} else {
				s.log.Warn("ingestion", "embedding failed for chunk", map[string]interface{}{
					"job_id": job.Id, "chunk_index": i, "error": eerr.Error(),
				})
			}
		}
	}

	if err := uow.ContentChunkRepository().CreateBatch(ctx, entities); err != nil {
		return err
	}
	job.ChunkCount = len(entities)
	return nil
}

// findDuplicate checks redis first (SETNX of hash -> job id) and falls
// back to the database when redis is unavailable.
func (s *ingestionService) findDuplicate(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.IngestionJob, hash string) *entity.IngestionJob {
	if s.rdb != nil {
		key := fmt.Sprintf("ingest:hash:%s:%s", job.UserId, hash)
		set, err := s.rdb.SetNX(ctx, key, job.Id.String(), 24*time.Hour).Result()
		if err == nil && set {
			return nil // first time we see this content
		}
		if err != nil {
			s.log.Warn("ingestion", "redis dedup check failed", map[string]interface{}{
				"job_id": job.Id, "error": err.Error(),
			})
		}
	}

	original, err := uow.IngestionJobRepository().FindOne(ctx,
		specification.ByUserID{UserID: job.UserId},
		specification.ByContentHash{Hash: hash},
		specification.ByStatus{Status: entity.IngestionStatusCompleted},
	)
	if err != nil || original == nil || original.Id == job.Id {
		return nil
	}
	return original
}

func (s *ingestionService) copyChunks(ctx context.Context, uow unitofwork.UnitOfWork, from, to *entity.IngestionJob) error {
	chunks, err := uow.ContentChunkRepository().FindAll(ctx,
		specification.ByJobID{JobID: from.Id},
		specification.OrderByChunkIndex{},
	)
	if err != nil {
		return err
	}

	copies := make([]*entity.ContentChunk, len(chunks))
	for i, c := range chunks {
		dup := *c
		dup.Id = uuid.New()
		dup.JobId = to.Id
		dup.CreatedAt = time.Now()
		copies[i] = &dup
	}
	if err := uow.ContentChunkRepository().CreateBatch(ctx, copies); err != nil {
		return err
	}

	to.ChunkCount = len(copies)
	s.log.Info("ingestion", "reused chunks from duplicate content", map[string]interface{}{
		"job_id": to.Id, "original_job_id": from.Id, "chunks": len(copies),
	})
	return nil
}

// failJob records the terminal failure. The error is classified into the
// client-facing taxonomy and never retried.
func (s *ingestionService) failJob(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.IngestionJob, cause error) error {
	job.Status = entity.IngestionStatusFailed
	job.ErrorType = classifyIngestionError(cause)
	job.ErrorMessage = cause.Error()

	if err := uow.IngestionJobRepository().Update(ctx, job); err != nil {
		return err
	}

	s.publishEvent(ctx, events.NewIngestionFailed(
		job.UserId.String(), job.Id.String(), job.SourceType, job.ErrorMessage))

	s.log.Error("ingestion", "job failed", map[string]interface{}{
		"job_id": job.Id, "error_type": job.ErrorType, "error": cause.Error(),
	})
	return nil
}

func classifyIngestionError(err error) string {
	switch {
	case errors.Is(err, connector.ErrUnsupportedSource):
		return serverutils.ErrTypeUnsupportedSource
	case errors.Is(err, connector.ErrInvalidPayload), errors.Is(err, connector.ErrNotConfigured):
		return serverutils.ErrTypeValidation
	case errors.Is(err, connector.ErrSizeLimitExceeded):
		return serverutils.ErrTypeSizeLimitExceeded
	case errors.Is(err, connector.ErrExtractionFailure):
		return serverutils.ErrTypeExtractionFailure
	case errors.Is(err, context.DeadlineExceeded):
		return serverutils.ErrTypeTimeout
	default:
		return serverutils.ErrTypeTransientFetch
	}
}

func (s *ingestionService) publishEvent(ctx context.Context, evt events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("ingestion", "event publish failed", map[string]interface{}{
			"event": evt.EventType(), "error": err.Error(),
		})
	}
}

func (s *ingestionService) GetStatus(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.IngestionStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.IngestionJobRepository().FindOne(ctx,
		specification.ByID{ID: jobId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, serverutils.NewAppError(serverutils.ErrTypeNotFound, "ingestion job not found", nil)
	}

	return &dto.IngestionStatusResponse{
		JobId:        job.Id,
		SourceType:   job.SourceType,
		Status:       job.Status,
		Title:        job.Title,
		ChunkCount:   job.ChunkCount,
		WordCount:    job.WordCount,
		ErrorType:    job.ErrorType,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}, nil
}

func (s *ingestionService) GetContent(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.IngestionContentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.IngestionJobRepository().FindOne(ctx,
		specification.ByID{ID: jobId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, serverutils.NewAppError(serverutils.ErrTypeNotFound, "ingestion job not found", nil)
	}

	chunks, err := uow.ContentChunkRepository().FindAll(ctx,
		specification.ByJobID{JobID: jobId},
		specification.OrderByChunkIndex{},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.IngestionContentResponse{
		JobId:     job.Id,
		Status:    job.Status,
		Summary:   job.Summary,
		WordCount: job.WordCount,
		Citations: job.Citations,
		Chunks:    make([]dto.ChunkResponse, len(chunks)),
	}
	for i, c := range chunks {
		res.Chunks[i] = dto.ChunkResponse{
			Id:             c.Id,
			ChunkIndex:     c.ChunkIndex,
			TotalChunks:    c.TotalChunks,
			Text:           c.Text,
			TokensEstimate: c.TokensEstimate,
			SourceType:     c.SourceType,
			Title:          c.Title,
			URL:            c.URL,
			Author:         c.Author,
			Timestamp:      c.Timestamp,
		}
	}
	return res, nil
}
