package service

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"ai-mindmap-be/internal/config"
	"ai-mindmap-be/internal/dto"
	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/pkg/logger"
	"ai-mindmap-be/internal/pkg/serverutils"
	"ai-mindmap-be/internal/repository/specification"
	"ai-mindmap-be/internal/repository/unitofwork"
	"ai-mindmap-be/pkg/connector"
	"ai-mindmap-be/pkg/llm"
	"ai-mindmap-be/pkg/llm/factory"
	"ai-mindmap-be/pkg/outline"
	"ai-mindmap-be/pkg/secrets"

	"github.com/google/uuid"
)

type IMindMapService interface {
	Generate(ctx context.Context, userId uuid.UUID, req *dto.GenerateMapRequest) (*dto.GenerationJobResponse, error)
	ExpandNode(ctx context.Context, userId uuid.UUID, mindmapId uuid.UUID, nodeKey string, req *dto.ExpandNodeRequest) (*dto.GenerationJobResponse, error)
	RegenerateNode(ctx context.Context, userId uuid.UUID, mindmapId uuid.UUID, nodeKey string, req *dto.RegenerateNodeRequest) (*dto.GenerationJobResponse, error)
	Summarize(ctx context.Context, userId uuid.UUID, mindmapId uuid.UUID, req *dto.SummarizeMapRequest) (*dto.GenerationJobResponse, error)

	GetJob(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.GenerationJobResponse, error)
	GetMap(ctx context.Context, userId uuid.UUID, mindmapId uuid.UUID) (*dto.MindMapResponse, error)

	// Stream polls the generation job and sends ordered events on out,
	// closing it when the stream ends. A stream always ends with either
	// a complete event or a single error event.
	Stream(ctx context.Context, userId uuid.UUID, jobId uuid.UUID, out chan<- dto.StreamEvent)
}

type mindmapService struct {
	uowFactory     unitofwork.RepositoryFactory
	ingestion      IIngestionService
	secretsService *secrets.Service
	eventPublisher EventPublisher
	keys           config.APIKeys
	stream         config.StreamConfig
	log            logger.ILogger
}

func NewMindMapService(
	uowFactory unitofwork.RepositoryFactory,
	ingestion IIngestionService,
	secretsService *secrets.Service,
	eventPublisher EventPublisher,
	keys config.APIKeys,
	stream config.StreamConfig,
	log logger.ILogger,
) IMindMapService {
	return &mindmapService{
		uowFactory:     uowFactory,
		ingestion:      ingestion,
		secretsService: secretsService,
		eventPublisher: eventPublisher,
		keys:           keys,
		stream:         stream,
		log:            log,
	}
}

// resolveProvider builds the LLM client for a request. A key stored by
// the user wins over the server-level key.
func (s *mindmapService) resolveProvider(ctx context.Context, userId uuid.UUID, providerType, model string) (llm.Provider, error) {
	cfg := factory.Config{
		OpenAIKey:     s.keys.OpenAI,
		OpenAIBaseURL: s.keys.OpenAIBaseURL,
		GeminiKey:     s.keys.GoogleGemini,
		Model:         model,
	}

	if s.secretsService != nil {
		if userKey, err := s.secretsService.GetKey(ctx, userId, providerType); err == nil && userKey != "" {
			switch providerType {
			case "openai":
				cfg.OpenAIKey = userKey
			case "gemini":
				cfg.GeminiKey = userKey
			}
		}
	}

	provider, err := factory.NewProvider(providerType, cfg)
	if err != nil {
		return nil, serverutils.NewAppError(serverutils.ErrTypeUnsupportedProvider, err.Error(), err)
	}
	return provider, nil
}

func (s *mindmapService) Generate(ctx context.Context, userId uuid.UUID, req *dto.GenerateMapRequest) (*dto.GenerationJobResponse, error) {
	if _, err := s.resolveProvider(ctx, userId, req.Provider, req.Model); err != nil {
		return nil, err
	}
	if req.Prompt == "" && req.SourceURL == "" && len(req.JobIds) == 0 {
		return nil, serverutils.NewAppError(serverutils.ErrTypeValidation,
			"a prompt, a source url or ingestion job ids are required", nil)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	sourceIds := make([]uuid.UUID, 0, len(req.JobIds)+1)
	for _, jobId := range req.JobIds {
		src, err := uow.IngestionJobRepository().FindOne(ctx,
			specification.ByID{ID: jobId},
			specification.ByUserID{UserID: userId},
		)
		if err != nil {
			return nil, err
		}
		if src == nil {
			return nil, serverutils.NewAppError(serverutils.ErrTypeNotFound,
				fmt.Sprintf("ingestion job %s not found", jobId), nil)
		}
		// Pending and processing sources are waited on by the worker.
		if src.Status == entity.IngestionStatusFailed {
			return nil, serverutils.NewAppError(serverutils.ErrTypeValidation,
				fmt.Sprintf("ingestion job %s failed (%s)", jobId, src.ErrorType), nil)
		}
		sourceIds = append(sourceIds, jobId)
	}

	if req.SourceURL != "" {
		created, err := s.ingestion.Create(ctx, userId, sourceRequest(req))
		if err != nil {
			return nil, err
		}
		sourceIds = append(sourceIds, created.JobId)
	}

	job := entity.GenerationJob{
		Id:         uuid.New(),
		UserId:     userId,
		Operation:  entity.OperationGenerate,
		Provider:   req.Provider,
		Model:      req.Model,
		Complexity: req.Complexity,
		Prompt:     req.Prompt,
		Status:     entity.GenerationStatusPending,
		CreatedAt:  time.Now(),
	}
	if err := uow.GenerationJobRepository().Create(ctx, &job); err != nil {
		return nil, err
	}

	go s.runGenerate(context.Background(), job.Id, sourceIds)

	return jobResponse(&job), nil
}

// sourceRequest maps an inline source URL onto an ingestion request. An
// unrecognizable URL is caught by the connector's payload validation.
func sourceRequest(req *dto.GenerateMapRequest) *dto.CreateIngestionRequest {
	switch req.SourceType {
	case connector.SourceYouTube:
		return &dto.CreateIngestionRequest{
			SourceType: connector.SourceYouTube,
			URL:        req.SourceURL,
			VideoID:    youtubeVideoID(req.SourceURL),
		}
	case connector.SourcePDF:
		return &dto.CreateIngestionRequest{
			SourceType: connector.SourcePDF,
			FileURL:    req.SourceURL,
			Filename:   path.Base(req.SourceURL),
		}
	default:
		return &dto.CreateIngestionRequest{SourceType: connector.SourceWeb, URL: req.SourceURL}
	}
}

// youtubeVideoID pulls the video id out of a watch or youtu.be URL.
func youtubeVideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Host, "youtu.be") {
		return strings.Trim(u.Path, "/")
	}
	return u.Query().Get("v")
}

func (s *mindmapService) ExpandNode(ctx context.Context, userId uuid.UUID, mindmapId uuid.UUID, nodeKey string, req *dto.ExpandNodeRequest) (*dto.GenerationJobResponse, error) {
	if _, err := s.resolveProvider(ctx, userId, req.Provider, req.Model); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.requireNode(ctx, uow, userId, mindmapId, nodeKey); err != nil {
		return nil, err
	}

	job := entity.GenerationJob{
		Id:        uuid.New(),
		UserId:    userId,
		MindmapId: &mindmapId,
		NodeKey:   nodeKey,
		Operation: entity.OperationExpand,
		Provider:  req.Provider,
		Model:     req.Model,
		Status:    entity.GenerationStatusPending,
		CreatedAt: time.Now(),
	}
	if err := uow.GenerationJobRepository().Create(ctx, &job); err != nil {
		return nil, err
	}

	go s.runExpand(context.Background(), job.Id)

	return jobResponse(&job), nil
}

func (s *mindmapService) RegenerateNode(ctx context.Context, userId uuid.UUID, mindmapId uuid.UUID, nodeKey string, req *dto.RegenerateNodeRequest) (*dto.GenerationJobResponse, error) {
	if _, err := s.resolveProvider(ctx, userId, req.Provider, req.Model); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.requireNode(ctx, uow, userId, mindmapId, nodeKey); err != nil {
		return nil, err
	}

	job := entity.GenerationJob{
		Id:        uuid.New(),
		UserId:    userId,
		MindmapId: &mindmapId,
		NodeKey:   nodeKey,
		Operation: entity.OperationRegenerate,
		Provider:  req.Provider,
		Model:     req.Model,
		Status:    entity.GenerationStatusPending,
		CreatedAt: time.Now(),
	}
	if err := uow.GenerationJobRepository().Create(ctx, &job); err != nil {
		return nil, err
	}

	go s.runRegenerate(context.Background(), job.Id)

	return jobResponse(&job), nil
}

func (s *mindmapService) Summarize(ctx context.Context, userId uuid.UUID, mindmapId uuid.UUID, req *dto.SummarizeMapRequest) (*dto.GenerationJobResponse, error) {
	if _, err := s.resolveProvider(ctx, userId, req.Provider, req.Model); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.requireMap(ctx, uow, userId, mindmapId); err != nil {
		return nil, err
	}

	job := entity.GenerationJob{
		Id:        uuid.New(),
		UserId:    userId,
		MindmapId: &mindmapId,
		Operation: entity.OperationSummarize,
		Provider:  req.Provider,
		Model:     req.Model,
		Status:    entity.GenerationStatusPending,
		CreatedAt: time.Now(),
	}
	if err := uow.GenerationJobRepository().Create(ctx, &job); err != nil {
		return nil, err
	}

	go s.runSummarize(context.Background(), job.Id)

	return jobResponse(&job), nil
}

func (s *mindmapService) requireMap(ctx context.Context, uow unitofwork.UnitOfWork, userId, mindmapId uuid.UUID) (*entity.MindMap, error) {
	mindmap, err := uow.MindMapRepository().FindOne(ctx,
		specification.ByID{ID: mindmapId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if mindmap == nil {
		return nil, serverutils.NewAppError(serverutils.ErrTypeNotFound, "mind map not found", nil)
	}
	return mindmap, nil
}

func (s *mindmapService) requireNode(ctx context.Context, uow unitofwork.UnitOfWork, userId, mindmapId uuid.UUID, nodeKey string) (*entity.MapNode, error) {
	if _, err := s.requireMap(ctx, uow, userId, mindmapId); err != nil {
		return nil, err
	}
	node, err := uow.MapNodeRepository().FindOne(ctx,
		specification.ByMindmapID{MindmapID: mindmapId},
		specification.ByNodeKey{NodeKey: nodeKey},
	)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, serverutils.NewAppError(serverutils.ErrTypeNotFound, "node not found", nil)
	}
	return node, nil
}

func jobResponse(job *entity.GenerationJob) *dto.GenerationJobResponse {
	return &dto.GenerationJobResponse{
		JobId:        job.Id,
		MindmapId:    job.MindmapId,
		Operation:    job.Operation,
		Provider:     job.Provider,
		Status:       job.Status,
		Summary:      job.Summary,
		ErrorType:    job.ErrorType,
		ErrorMessage: job.ErrorMessage,
		TokensUsed:   job.TokensUsed,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

func (s *mindmapService) GetJob(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.GenerationJobResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.GenerationJobRepository().FindOne(ctx,
		specification.ByID{ID: jobId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, serverutils.NewAppError(serverutils.ErrTypeNotFound, "generation job not found", nil)
	}
	return jobResponse(job), nil
}

func (s *mindmapService) GetMap(ctx context.Context, userId uuid.UUID, mindmapId uuid.UUID) (*dto.MindMapResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	mindmap, err := s.requireMap(ctx, uow, userId, mindmapId)
	if err != nil {
		return nil, err
	}
	return s.buildMapResponse(ctx, uow, mindmap)
}

// buildMapResponse reassembles the stored flat nodes into the tree shape
// clients render.
func (s *mindmapService) buildMapResponse(ctx context.Context, uow unitofwork.UnitOfWork, mindmap *entity.MindMap) (*dto.MindMapResponse, error) {
	nodes, err := uow.MapNodeRepository().FindAll(ctx,
		specification.ByMindmapID{MindmapID: mindmap.Id},
		specification.OrderByNodeOrder{},
	)
	if err != nil {
		return nil, err
	}

	nodeIds := make([]uuid.UUID, len(nodes))
	byNodeId := make(map[uuid.UUID]string, len(nodes))
	flat := make([]outline.FlatNode, len(nodes))
	for i, n := range nodes {
		nodeIds[i] = n.Id
		byNodeId[n.Id] = n.NodeKey
		parentID := ""
		if n.ParentKey != nil {
			parentID = *n.ParentKey
		}
		var visual outline.Visual
		if n.Visual != nil {
			visual = *n.Visual
		}
		flat[i] = outline.FlatNode{
			ID:       n.NodeKey,
			Title:    n.Title,
			Content:  n.Content,
			ParentID: parentID,
			Level:    n.Level,
			Order:    n.NodeOrder,
			Visual:   visual,
		}
	}

	citations, err := uow.NodeCitationRepository().FindAll(ctx,
		specification.ByMapNodeIDs{MapNodeIDs: nodeIds},
	)
	if err != nil {
		return nil, err
	}
	citationsByKey := make(map[string][]outline.Citation)
	for _, c := range citations {
		key := byNodeId[c.MapNodeId]
		citationsByKey[key] = append(citationsByKey[key], outline.Citation{
			Title:        c.Title,
			URL:          c.URL,
			Author:       c.Author,
			Excerpt:      c.Excerpt,
			TimestampISO: c.TimestampISO,
		})
	}
	for i := range flat {
		flat[i].Citations = citationsByKey[flat[i].ID]
	}

	roots := outline.BuildTreeFromFlat(flat)

	updatedAt := mindmap.CreatedAt
	if mindmap.UpdatedAt != nil {
		updatedAt = *mindmap.UpdatedAt
	}

	return &dto.MindMapResponse{
		Id:      mindmap.Id,
		Title:   mindmap.Title,
		Version: mindmap.Version,
		Nodes:   roots,
		Metadata: outline.Metadata{
			TotalNodes: mindmap.TotalNodes,
			MaxDepth:   mindmap.MaxDepth,
			CreatedAt:  mindmap.CreatedAt.Format(time.RFC3339),
			UpdatedAt:  updatedAt.Format(time.RFC3339),
		},
		CreatedAt: mindmap.CreatedAt,
	}, nil
}
