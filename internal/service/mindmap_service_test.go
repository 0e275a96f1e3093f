package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-mindmap-be/internal/config"
	"ai-mindmap-be/internal/dto"
	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/pkg/serverutils"
	"ai-mindmap-be/internal/repository/specification"
	"ai-mindmap-be/pkg/connector"
	"ai-mindmap-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// llmServer fakes the OpenAI chat completions endpoint, always answering
// with the given content.
func llmServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": content}},
			},
			"usage": map[string]interface{}{"total_tokens": 42},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestMindMapService(t *testing.T, llmURL string) (IMindMapService, *memoryFactory, *capturingPublisher) {
	t.Helper()
	return newTestMindMapServiceWithStream(t, llmURL,
		config.StreamConfig{PollInterval: 10 * time.Millisecond, Timeout: 3 * time.Second})
}

func newTestMindMapServiceWithStream(t *testing.T, llmURL string, stream config.StreamConfig) (IMindMapService, *memoryFactory, *capturingPublisher) {
	t.Helper()
	factory := newMemoryFactory()
	publisher := &capturingPublisher{}

	// Ingestion over the same store, with a queue whose worker never
	// runs. Only text sources can complete.
	ingestion := NewIngestionService(
		factory,
		connector.NewRegistry(connector.Config{}),
		discardScheduler{},
		nil, // no embedding provider
		publisher,
		nil, // no redis
		nopLogger{},
	)

	svc := NewMindMapService(
		factory,
		ingestion,
		nil, // no per-user keys
		publisher,
		config.APIKeys{OpenAI: "sk-test", OpenAIBaseURL: llmURL},
		stream,
		nopLogger{},
	)
	return svc, factory, publisher
}

func seedCompletedIngestion(t *testing.T, factory *memoryFactory, userId uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	uow := factory.NewUnitOfWork(ctx)

	job := entity.IngestionJob{
		Id:         uuid.New(),
		UserId:     userId,
		SourceType: connector.SourceText,
		Status:     entity.IngestionStatusCompleted,
		Title:      "Cell Biology Notes",
		ChunkCount: 2,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, uow.IngestionJobRepository().Create(ctx, &job))

	chunks := []*entity.ContentChunk{
		{Id: uuid.New(), JobId: job.Id, ChunkIndex: 0, TotalChunks: 2,
			Text: "Mitochondria produce ATP through cellular respiration.", CreatedAt: time.Now()},
		{Id: uuid.New(), JobId: job.Id, ChunkIndex: 1, TotalChunks: 2,
			Text: "The nucleus stores the cell's genetic material.", CreatedAt: time.Now()},
	}
	require.NoError(t, uow.ContentChunkRepository().CreateBatch(ctx, chunks))
	return job.Id
}

func seedMindMap(t *testing.T, factory *memoryFactory, userId uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	uow := factory.NewUnitOfWork(ctx)

	mindmap := entity.MindMap{
		Id:         uuid.New(),
		UserId:     userId,
		Title:      "Cell Biology",
		Version:    1,
		TotalNodes: 2,
		MaxDepth:   1,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, uow.MindMapRepository().Create(ctx, &mindmap))

	rootKey := "root"
	nodes := []*entity.MapNode{
		{Id: uuid.New(), MindmapId: mindmap.Id, NodeKey: rootKey,
			Level: 0, NodeOrder: 0, Title: "Cell Biology", Content: "Overview", CreatedAt: time.Now()},
		{Id: uuid.New(), MindmapId: mindmap.Id, NodeKey: "organelles", ParentKey: &rootKey,
			Level: 1, NodeOrder: 0, Title: "Organelles", Content: "Cell components", CreatedAt: time.Now()},
	}
	require.NoError(t, uow.MapNodeRepository().CreateBatch(ctx, nodes))
	return mindmap.Id
}

func waitForJob(t *testing.T, svc IMindMapService, userId, jobId uuid.UUID) *dto.GenerationJobResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.GetJob(context.Background(), userId, jobId)
		require.NoError(t, err)
		if job.Status == entity.GenerationStatusCompleted || job.Status == entity.GenerationStatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("generation job did not reach a terminal state")
	return nil
}

const validMapOutput = "```json\n" +
	`{"title":"Cell Biology","nodes":[{"id":"root","title":"Cell Biology","content":"Overview","children":[` +
	`{"id":"mito","title":"Mitochondria","content":"Produce ATP","children":[]},` +
	`{"id":"nucleus","title":"Nucleus","content":"Stores DNA","children":[]}]}]}` +
	"\n```"

func TestGenerateBuildsMapFromModelOutput(t *testing.T) {
	server := llmServer(t, validMapOutput)
	defer server.Close()

	svc, factory, publisher := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	sourceId := seedCompletedIngestion(t, factory, userId)

	res, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{sourceId},
		Provider: "openai",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.GenerationStatusPending, res.Status)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusCompleted, job.Status)
	require.NotNil(t, job.MindmapId)
	assert.Equal(t, 42, job.TokensUsed)

	mindmap, err := svc.GetMap(context.Background(), userId, *job.MindmapId)
	require.NoError(t, err)
	assert.Equal(t, "Cell Biology", mindmap.Title)
	assert.Equal(t, 3, mindmap.Metadata.TotalNodes)
	assert.Equal(t, 1, mindmap.Metadata.MaxDepth)
	require.Len(t, mindmap.Nodes, 1)
	root := mindmap.Nodes[0]
	assert.Equal(t, "root", root.ID)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "mito", root.Children[0].ID)
	assert.Equal(t, 1, root.Children[0].Level)
	// Source citation lands on the root.
	assert.NotEmpty(t, root.Citations)

	assert.Contains(t, publisher.types(), events.TypeMapGenerated)
}

const citedMapOutput = `{"title":"Cell Biology","nodes":[{"id":"root","title":"Cell Biology","content":"Overview","children":[` +
	`{"id":"mito","title":"Mitochondria","content":"Produce ATP",` +
	`"citations":[{"title":"Bio Textbook","url":"https://example.com/bio","excerpt":"ATP is produced in the mitochondria."}],` +
	`"children":[]}]}]}`

func TestGeneratePersistsModelCitations(t *testing.T) {
	server := llmServer(t, citedMapOutput)
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	sourceId := seedCompletedIngestion(t, factory, userId)

	res, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{sourceId},
		Provider: "openai",
	})
	require.NoError(t, err)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusCompleted, job.Status)
	require.NotNil(t, job.MindmapId)

	mindmap, err := svc.GetMap(context.Background(), userId, *job.MindmapId)
	require.NoError(t, err)
	require.Len(t, mindmap.Nodes, 1)
	require.Len(t, mindmap.Nodes[0].Children, 1)

	mito := mindmap.Nodes[0].Children[0]
	require.Len(t, mito.Citations, 1)
	assert.Equal(t, "Bio Textbook", mito.Citations[0].Title)
	assert.Equal(t, "https://example.com/bio", mito.Citations[0].URL)
	assert.Equal(t, "ATP is produced in the mitochondria.", mito.Citations[0].Excerpt)
}

func TestGenerateRejectsUnknownProvider(t *testing.T) {
	svc, factory, _ := newTestMindMapService(t, "http://unused")
	userId := uuid.New()
	sourceId := seedCompletedIngestion(t, factory, userId)

	_, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{sourceId},
		Provider: "claude",
	})
	require.Error(t, err)

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.ErrTypeUnsupportedProvider, appErr.Type)
	assert.Contains(t, appErr.Message, "unsupported llm provider")
}

func TestGenerateRejectsFailedSource(t *testing.T) {
	svc, factory, _ := newTestMindMapService(t, "http://unused")
	userId := uuid.New()

	ctx := context.Background()
	uow := factory.NewUnitOfWork(ctx)
	job := entity.IngestionJob{
		Id: uuid.New(), UserId: userId,
		SourceType: connector.SourceWeb,
		Status:     entity.IngestionStatusFailed,
		ErrorType:  serverutils.ErrTypeExtractionFailure,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, uow.IngestionJobRepository().Create(ctx, &job))

	_, err := svc.Generate(ctx, userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{job.Id},
		Provider: "openai",
	})
	require.Error(t, err)

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.ErrTypeValidation, appErr.Type)
}

func TestGenerateRequiresPromptOrSource(t *testing.T) {
	svc, _, _ := newTestMindMapService(t, "http://unused")

	_, err := svc.Generate(context.Background(), uuid.New(), &dto.GenerateMapRequest{
		Provider: "openai",
	})
	require.Error(t, err)

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.ErrTypeValidation, appErr.Type)
}

func TestGenerateFromPromptAlone(t *testing.T) {
	server := llmServer(t, validMapOutput)
	defer server.Close()

	svc, _, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()

	res, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		Prompt:   "Explain cell biology to a first-year student",
		Provider: "openai",
	})
	require.NoError(t, err)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusCompleted, job.Status)
	require.NotNil(t, job.MindmapId)

	mindmap, err := svc.GetMap(context.Background(), userId, *job.MindmapId)
	require.NoError(t, err)
	assert.Equal(t, "Cell Biology", mindmap.Title)
	assert.Equal(t, 3, mindmap.Metadata.TotalNodes)
}

func TestGenerateWaitsForProcessingSource(t *testing.T) {
	server := llmServer(t, validMapOutput)
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()

	ctx := context.Background()
	uow := factory.NewUnitOfWork(ctx)
	src := entity.IngestionJob{
		Id: uuid.New(), UserId: userId,
		SourceType: connector.SourceWeb,
		Status:     entity.IngestionStatusProcessing,
		Title:      "Slow Article",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, uow.IngestionJobRepository().Create(ctx, &src))

	res, err := svc.Generate(ctx, userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{src.Id},
		Provider: "openai",
	})
	require.NoError(t, err)

	// The source finishes while the worker is waiting on it.
	go func() {
		time.Sleep(50 * time.Millisecond)
		u := factory.NewUnitOfWork(context.Background())
		chunk := entity.ContentChunk{
			Id: uuid.New(), JobId: src.Id, ChunkIndex: 0, TotalChunks: 1,
			Text: "Cells are the basic unit of life.", CreatedAt: time.Now(),
		}
		_ = u.ContentChunkRepository().CreateBatch(context.Background(), []*entity.ContentChunk{&chunk})
		src.Status = entity.IngestionStatusCompleted
		src.ChunkCount = 1
		_ = u.IngestionJobRepository().Update(context.Background(), &src)
	}()

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusCompleted, job.Status)
	require.NotNil(t, job.MindmapId)
}

func TestGenerateFailsWhenSourceNeverFinishes(t *testing.T) {
	svc, factory, _ := newTestMindMapServiceWithStream(t, "http://unused",
		config.StreamConfig{PollInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond})
	userId := uuid.New()

	ctx := context.Background()
	uow := factory.NewUnitOfWork(ctx)
	src := entity.IngestionJob{
		Id: uuid.New(), UserId: userId,
		SourceType: connector.SourceWeb,
		Status:     entity.IngestionStatusPending,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, uow.IngestionJobRepository().Create(ctx, &src))

	res, err := svc.Generate(ctx, userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{src.Id},
		Provider: "openai",
	})
	require.NoError(t, err)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusFailed, job.Status)
	assert.Equal(t, serverutils.ErrTypeTimeout, job.ErrorType)

	// The attached stream ends with exactly one error event.
	eventsSeen := collectStream(t, svc, userId, res.JobId)
	require.NotEmpty(t, eventsSeen)
	last := eventsSeen[len(eventsSeen)-1]
	assert.Equal(t, dto.StreamEventError, last.Type)
	assert.Equal(t, serverutils.ErrTypeTimeout, last.ErrType)
	errorCount := 0
	for _, e := range eventsSeen {
		if e.Type == dto.StreamEventError {
			errorCount++
		}
	}
	assert.Equal(t, 1, errorCount)
}

func TestGenerateIngestsSourceURL(t *testing.T) {
	svc, factory, _ := newTestMindMapServiceWithStream(t, "http://unused",
		config.StreamConfig{PollInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond})
	userId := uuid.New()

	res, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		SourceURL: "https://example.com/article",
		Provider:  "openai",
	})
	require.NoError(t, err)

	// An ingestion job was created for the URL.
	uow := factory.NewUnitOfWork(context.Background())
	sources, err := uow.IngestionJobRepository().FindAll(context.Background(),
		specification.ByUserID{UserID: userId})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, connector.SourceWeb, sources[0].SourceType)
	assert.Equal(t, "https://example.com/article", sources[0].SourceURL)

	// The queue worker never runs here, so generation times out waiting.
	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusFailed, job.Status)
	assert.Equal(t, serverutils.ErrTypeTimeout, job.ErrorType)
}

func TestGenerateFailsOnMalformedModelOutput(t *testing.T) {
	server := llmServer(t, "I cannot produce JSON today, sorry.")
	defer server.Close()

	svc, factory, publisher := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	sourceId := seedCompletedIngestion(t, factory, userId)

	res, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{sourceId},
		Provider: "openai",
	})
	require.NoError(t, err)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusFailed, job.Status)
	assert.Equal(t, serverutils.ErrTypeModelOutputParse, job.ErrorType)
	assert.Nil(t, job.MindmapId)
	assert.Contains(t, publisher.types(), events.TypeGenerationFailed)
}

func collectStream(t *testing.T, svc IMindMapService, userId, jobId uuid.UUID) []dto.StreamEvent {
	t.Helper()
	out := make(chan dto.StreamEvent, 64)
	done := make(chan struct{})
	var collected []dto.StreamEvent
	go func() {
		defer close(done)
		for evt := range out {
			collected = append(collected, evt)
		}
	}()
	svc.Stream(context.Background(), userId, jobId, out)
	<-done
	return collected
}

func TestStreamEmitsOrderedEvents(t *testing.T) {
	server := llmServer(t, validMapOutput)
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	sourceId := seedCompletedIngestion(t, factory, userId)

	res, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{sourceId},
		Provider: "openai",
	})
	require.NoError(t, err)

	eventsSeen := collectStream(t, svc, userId, res.JobId)
	require.NotEmpty(t, eventsSeen)

	assert.Equal(t, dto.StreamEventStart, eventsSeen[0].Type)
	assert.Equal(t, dto.StreamEventComplete, eventsSeen[len(eventsSeen)-1].Type)

	index := func(eventType string) int {
		for i, e := range eventsSeen {
			if e.Type == eventType {
				return i
			}
		}
		return -1
	}
	streaming := index(dto.StreamEventStreaming)
	firstNode := index(dto.StreamEventNode)
	mapEvent := index(dto.StreamEventMap)
	require.Greater(t, streaming, 0)
	require.Greater(t, firstNode, streaming)
	require.Greater(t, mapEvent, firstNode)

	var nodeCount int
	for _, e := range eventsSeen {
		if e.Type == dto.StreamEventNode {
			nodeCount++
			require.NotNil(t, e.Node)
		}
		assert.Equal(t, res.JobId, e.JobId)
		assert.NotEqual(t, dto.StreamEventError, e.Type)
	}
	assert.Equal(t, 3, nodeCount)
	require.NotNil(t, eventsSeen[mapEvent].Map)
	assert.Equal(t, 3, eventsSeen[mapEvent].Map.Metadata.TotalNodes)
}

func TestStreamEndsWithSingleErrorOnFailure(t *testing.T) {
	server := llmServer(t, "{broken")
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	sourceId := seedCompletedIngestion(t, factory, userId)

	res, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{sourceId},
		Provider: "openai",
	})
	require.NoError(t, err)

	eventsSeen := collectStream(t, svc, userId, res.JobId)
	require.NotEmpty(t, eventsSeen)

	last := eventsSeen[len(eventsSeen)-1]
	assert.Equal(t, dto.StreamEventError, last.Type)
	assert.Equal(t, serverutils.ErrTypeModelOutputParse, last.ErrType)
	assert.NotEmpty(t, last.Error)

	errorCount := 0
	for _, e := range eventsSeen {
		if e.Type == dto.StreamEventError {
			errorCount++
		}
		assert.NotEqual(t, dto.StreamEventComplete, e.Type)
	}
	assert.Equal(t, 1, errorCount)
}

func TestStreamTimesOutOnStuckJob(t *testing.T) {
	factory := newMemoryFactory()
	svc := NewMindMapService(
		factory, nil, nil, &capturingPublisher{},
		config.APIKeys{OpenAI: "sk-test"},
		config.StreamConfig{PollInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond},
		nopLogger{},
	)

	userId := uuid.New()
	ctx := context.Background()
	job := entity.GenerationJob{
		Id: uuid.New(), UserId: userId,
		Operation: entity.OperationGenerate,
		Provider:  "openai",
		Status:    entity.GenerationStatusPending,
		CreatedAt: time.Now(),
	}
	uow := factory.NewUnitOfWork(ctx)
	require.NoError(t, uow.GenerationJobRepository().Create(ctx, &job))

	eventsSeen := collectStream(t, svc, userId, job.Id)
	require.NotEmpty(t, eventsSeen)
	last := eventsSeen[len(eventsSeen)-1]
	assert.Equal(t, dto.StreamEventError, last.Type)
	assert.Equal(t, serverutils.ErrTypeTimeout, last.ErrType)
}

// A three-level map whose storage order (by level) differs from its
// document order, so the emission order is observable.
const nestedMapOutput = `{"title":"Trees","nodes":[{"id":"root","title":"Trees","content":"Overview","children":[` +
	`{"id":"roots","title":"Roots","content":"Below ground","children":[` +
	`{"id":"taproot","title":"Taproots","content":"Single dominant root","children":[]}]},` +
	`{"id":"leaves","title":"Leaves","content":"Photosynthesis","children":[]}]}]}`

func TestStreamNodeOrderIsDepthFirst(t *testing.T) {
	server := llmServer(t, nestedMapOutput)
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	sourceId := seedCompletedIngestion(t, factory, userId)

	res, err := svc.Generate(context.Background(), userId, &dto.GenerateMapRequest{
		JobIds:   []uuid.UUID{sourceId},
		Provider: "openai",
	})
	require.NoError(t, err)

	eventsSeen := collectStream(t, svc, userId, res.JobId)
	require.NotEmpty(t, eventsSeen)

	var keys []string
	var indexes []int
	for _, e := range eventsSeen {
		if e.Type == dto.StreamEventNode {
			require.NotNil(t, e.Node)
			keys = append(keys, e.Node.ID)
			indexes = append(indexes, e.Index)
		}
	}
	// Parents before children, a whole subtree before the next sibling.
	assert.Equal(t, []string{"root", "roots", "taproot", "leaves"}, keys)
	assert.Equal(t, []int{1, 2, 3, 4}, indexes)

	last := eventsSeen[len(eventsSeen)-1]
	require.Equal(t, dto.StreamEventComplete, last.Type)
	require.NotNil(t, last.Complete)
	require.NotNil(t, last.Complete.MindmapId)
	assert.Equal(t, "Trees", last.Complete.Title)
	assert.Equal(t, 4, last.Complete.NodeCount)
	assert.Equal(t, 42, last.Complete.TokensUsed)
}

func TestStreamStopsWhenContextCancelled(t *testing.T) {
	svc, factory, _ := newTestMindMapService(t, "http://unused")
	userId := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	uow := factory.NewUnitOfWork(ctx)
	job := entity.GenerationJob{
		Id: uuid.New(), UserId: userId,
		Operation: entity.OperationGenerate,
		Provider:  "openai",
		Status:    entity.GenerationStatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, uow.GenerationJobRepository().Create(ctx, &job))

	out := make(chan dto.StreamEvent, 64)
	done := make(chan struct{})
	var collected []dto.StreamEvent
	go func() {
		defer close(done)
		for evt := range out {
			collected = append(collected, evt)
		}
	}()
	go svc.Stream(ctx, userId, job.Id, out)

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
	// The poll loop ends without a terminal event.
	for _, e := range collected {
		assert.NotEqual(t, dto.StreamEventComplete, e.Type)
		assert.NotEqual(t, dto.StreamEventError, e.Type)
	}
}

const expandOutput = `{"children":[` +
	`{"id":"ribosome","title":"Ribosomes","content":"Protein synthesis","children":[]},` +
	`{"id":"golgi","title":"Golgi Apparatus","content":"Packaging","children":[]}]}`

func TestExpandNodeAddsChildren(t *testing.T) {
	server := llmServer(t, expandOutput)
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	mindmapId := seedMindMap(t, factory, userId)

	res, err := svc.ExpandNode(context.Background(), userId, mindmapId, "organelles", &dto.ExpandNodeRequest{
		Provider: "openai",
	})
	require.NoError(t, err)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusCompleted, job.Status)

	mindmap, err := svc.GetMap(context.Background(), userId, mindmapId)
	require.NoError(t, err)
	assert.Equal(t, 4, mindmap.Metadata.TotalNodes)
	assert.Equal(t, 2, mindmap.Metadata.MaxDepth)
	assert.Equal(t, 2, mindmap.Version)

	require.Len(t, mindmap.Nodes, 1)
	organelles := mindmap.Nodes[0].Children[0]
	require.Equal(t, "organelles", organelles.ID)
	require.Len(t, organelles.Children, 2)
	assert.Equal(t, "ribosome", organelles.Children[0].ID)
	assert.Equal(t, 2, organelles.Children[0].Level)
}

const expandWithRefreshOutput = `{"title":"Cell Organelles","content":"Specialized structures inside the cell","children":[` +
	`{"id":"lysosome","title":"Lysosomes","content":"Digestion","children":[]},` +
	`{"id":"vacuole","title":"Vacuoles","content":"Storage","children":[]}]}`

func TestExpandRefreshesNodeText(t *testing.T) {
	server := llmServer(t, expandWithRefreshOutput)
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	mindmapId := seedMindMap(t, factory, userId)

	res, err := svc.ExpandNode(context.Background(), userId, mindmapId, "organelles", &dto.ExpandNodeRequest{
		Provider: "openai",
	})
	require.NoError(t, err)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusCompleted, job.Status)

	mindmap, err := svc.GetMap(context.Background(), userId, mindmapId)
	require.NoError(t, err)

	require.Len(t, mindmap.Nodes, 1)
	organelles := mindmap.Nodes[0].Children[0]
	require.Equal(t, "organelles", organelles.ID)
	// The expanded node's own wording follows the model's refresh.
	assert.Equal(t, "Cell Organelles", organelles.Title)
	assert.Equal(t, "Specialized structures inside the cell", organelles.Content)
	require.Len(t, organelles.Children, 2)
	assert.Equal(t, "lysosome", organelles.Children[0].ID)
}

func TestExpandUnknownNodeRejected(t *testing.T) {
	svc, factory, _ := newTestMindMapService(t, "http://unused")
	userId := uuid.New()
	mindmapId := seedMindMap(t, factory, userId)

	_, err := svc.ExpandNode(context.Background(), userId, mindmapId, "missing", &dto.ExpandNodeRequest{
		Provider: "openai",
	})
	require.Error(t, err)

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.ErrTypeNotFound, appErr.Type)
}

const regenerateOutput = `{"node":{"id":"ignored","title":"Cell Machinery","content":"Rewritten","children":[` +
	`{"id":"er","title":"Endoplasmic Reticulum","content":"Transport network","children":[]}]}}`

func TestRegenerateNodeReplacesSubtree(t *testing.T) {
	server := llmServer(t, regenerateOutput)
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	mindmapId := seedMindMap(t, factory, userId)

	res, err := svc.RegenerateNode(context.Background(), userId, mindmapId, "organelles", &dto.RegenerateNodeRequest{
		Provider: "openai",
	})
	require.NoError(t, err)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusCompleted, job.Status)

	mindmap, err := svc.GetMap(context.Background(), userId, mindmapId)
	require.NoError(t, err)

	require.Len(t, mindmap.Nodes, 1)
	replaced := mindmap.Nodes[0].Children[0]
	// The node keeps its key, the content is the model's rewrite.
	assert.Equal(t, "organelles", replaced.ID)
	assert.Equal(t, "Cell Machinery", replaced.Title)
	require.Len(t, replaced.Children, 1)
	assert.Equal(t, "er", replaced.Children[0].ID)
}

func TestSummarizeStoresSummaryOnJob(t *testing.T) {
	server := llmServer(t, `{"summary":"The map covers the cell and its organelles."}`)
	defer server.Close()

	svc, factory, _ := newTestMindMapService(t, server.URL)
	userId := uuid.New()
	mindmapId := seedMindMap(t, factory, userId)

	res, err := svc.Summarize(context.Background(), userId, mindmapId, &dto.SummarizeMapRequest{
		Provider: "openai",
	})
	require.NoError(t, err)

	job := waitForJob(t, svc, userId, res.JobId)
	require.Equal(t, entity.GenerationStatusCompleted, job.Status)
	assert.Equal(t, "The map covers the cell and its organelles.", job.Summary)

	// Summarize never touches the map itself.
	mindmap, err := svc.GetMap(context.Background(), userId, mindmapId)
	require.NoError(t, err)
	assert.Equal(t, 1, mindmap.Version)
	assert.Equal(t, 2, mindmap.Metadata.TotalNodes)
}
