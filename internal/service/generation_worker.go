package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-mindmap-be/internal/constant"
	"ai-mindmap-be/internal/dto"
	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/pkg/serverutils"
	"ai-mindmap-be/internal/repository/specification"
	"ai-mindmap-be/internal/repository/unitofwork"
	"ai-mindmap-be/pkg/chunker"
	"ai-mindmap-be/pkg/events"
	"ai-mindmap-be/pkg/llm"
	"ai-mindmap-be/pkg/outline"

	"github.com/google/uuid"
)

// maxMaterialChars caps the source text handed to the model in one
// prompt. Chunks beyond the cap are dropped, earliest first kept.
const maxMaterialChars = 24000

// generatedMap is the JSON shape the model returns for a full map.
type generatedMap struct {
	Title string          `json:"title"`
	Nodes []*outline.Node `json:"nodes"`
}

// generatedChildren is the expand reply. Title and content, when
// present, refresh the expanded node itself.
type generatedChildren struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Children []*outline.Node `json:"children"`
}

type generatedNode struct {
	Node *outline.Node `json:"node"`
}

type generatedSummary struct {
	Summary string `json:"summary"`
}

// extractJSON pulls the JSON object out of a model reply, tolerating
// markdown fences and surrounding prose.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return s[start : end+1], nil
}

// assignStructure stamps levels and sibling orders onto a parsed tree.
// The model is not trusted to emit them consistently.
func assignStructure(nodes []*outline.Node, level int) {
	for i, n := range nodes {
		if n == nil {
			continue
		}
		n.Level = level
		n.Order = i
		assignStructure(n.Children, level+1)
	}
}

// complexityFor picks a prompt tier from the material size when the
// caller did not choose one.
func complexityFor(material string) string {
	tokens := chunker.EstimateTokens(material)
	switch {
	case tokens < 2000:
		return entity.ComplexitySimple
	case tokens < 8000:
		return entity.ComplexityModerate
	default:
		return entity.ComplexityComplex
	}
}

func generateTemplate(complexity string) string {
	switch complexity {
	case entity.ComplexitySimple:
		return constant.GeneratePromptSimple
	case entity.ComplexityComplex:
		return constant.GeneratePromptComplex
	default:
		return constant.GeneratePromptModerate
	}
}

// gatherMaterial concatenates the chunks of the given ingestion jobs in
// document order, capped at maxMaterialChars, and collects one citation
// per source.
func (s *mindmapService) gatherMaterial(ctx context.Context, uow unitofwork.UnitOfWork, jobIds []uuid.UUID) (string, []*entity.IngestionJob, error) {
	var sb strings.Builder
	sources := make([]*entity.IngestionJob, 0, len(jobIds))

	for _, jobId := range jobIds {
		src, err := uow.IngestionJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
		if err != nil {
			return "", nil, err
		}
		if src == nil {
			continue
		}
		sources = append(sources, src)

		chunks, err := uow.ContentChunkRepository().FindAll(ctx,
			specification.ByJobID{JobID: jobId},
			specification.OrderByChunkIndex{},
		)
		if err != nil {
			return "", nil, err
		}
		for _, c := range chunks {
			if sb.Len() >= maxMaterialChars {
				break
			}
			remaining := maxMaterialChars - sb.Len()
			text := c.Text
			if len(text) > remaining {
				text = text[:remaining]
			}
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(sb.String()), sources, nil
}

func (s *mindmapService) callModel(ctx context.Context, job *entity.GenerationJob, prompt string) (string, error) {
	provider, err := s.resolveProvider(ctx, job.UserId, job.Provider, job.Model)
	if err != nil {
		return "", err
	}

	options := []llm.Option{llm.WithSystemPrompt(constant.MindMapSystemPrompt)}
	if job.Model != "" {
		options = append(options, llm.WithModel(job.Model))
	}

	result, err := provider.GenerateResponse(ctx, prompt, options...)
	if err != nil {
		return "", err
	}
	job.TokensUsed += result.TokensUsed
	return result.Content, nil
}

func (s *mindmapService) loadGenerationJob(ctx context.Context, uow unitofwork.UnitOfWork, jobId uuid.UUID) (*entity.GenerationJob, error) {
	job, err := uow.GenerationJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("generation job %s not found", jobId)
	}
	return job, nil
}

func (s *mindmapService) setStatus(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.GenerationJob, status string) error {
	job.Status = status
	return uow.GenerationJobRepository().Update(ctx, job)
}

func (s *mindmapService) failGeneration(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.GenerationJob, cause error) {
	job.Status = entity.GenerationStatusFailed
	job.ErrorType = classifyGenerationError(cause)
	job.ErrorMessage = cause.Error()
	if err := uow.GenerationJobRepository().Update(ctx, job); err != nil {
		s.log.Error("mindmap", "failed to record generation failure", map[string]interface{}{
			"job_id": job.Id, "error": err.Error(),
		})
	}

	if s.eventPublisher != nil {
		evt := events.NewGenerationFailed(job.UserId.String(), job.Id.String(), job.Operation, job.ErrorMessage)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("mindmap", "event publish failed", map[string]interface{}{
				"event": evt.EventType(), "error": err.Error(),
			})
		}
	}

	s.log.Error("mindmap", "generation failed", map[string]interface{}{
		"job_id": job.Id, "operation": job.Operation,
		"error_type": job.ErrorType, "error": cause.Error(),
	})
}

func classifyGenerationError(err error) string {
	var appErr *serverutils.AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return serverutils.ErrTypeTimeout
	}
	return serverutils.ErrTypeTransientFetch
}

func parseError(cause error) error {
	return serverutils.NewAppError(serverutils.ErrTypeModelOutputParse,
		"model returned unparseable output", cause)
}

func (s *mindmapService) completeGeneration(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.GenerationJob, nodeCount int) {
	job.Status = entity.GenerationStatusCompleted
	if err := uow.GenerationJobRepository().Update(ctx, job); err != nil {
		s.log.Error("mindmap", "failed to record generation completion", map[string]interface{}{
			"job_id": job.Id, "error": err.Error(),
		})
		return
	}

	if s.eventPublisher != nil && job.MindmapId != nil {
		evt := events.NewMapGenerated(job.UserId.String(), job.Id.String(), job.MindmapId.String(), nodeCount)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("mindmap", "event publish failed", map[string]interface{}{
				"event": evt.EventType(), "error": err.Error(),
			})
		}
	}
}

func (s *mindmapService) runGenerate(ctx context.Context, jobId uuid.UUID, sourceJobIds []uuid.UUID) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := s.loadGenerationJob(ctx, uow, jobId)
	if err != nil {
		s.log.Error("mindmap", "generation worker could not load job", map[string]interface{}{
			"job_id": jobId, "error": err.Error(),
		})
		return
	}

	if err := s.setStatus(ctx, uow, job, entity.GenerationStatusProcessing); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	if err := s.awaitSources(ctx, uow, sourceJobIds); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	material, sources, err := s.gatherMaterial(ctx, uow, sourceJobIds)
	if err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}
	if material == "" && job.Prompt == "" {
		s.failGeneration(ctx, uow, job, serverutils.NewAppError(serverutils.ErrTypeValidation,
			"no extracted content available for the given jobs", nil))
		return
	}

	subject := material
	if job.Prompt != "" {
		subject = "Topic request: " + job.Prompt
		if material != "" {
			subject += "\n\nSource material:\n\n" + material
		}
	}

	if job.Complexity == "" {
		job.Complexity = complexityFor(subject)
	}
	prompt := fmt.Sprintf(generateTemplate(job.Complexity), subject)

	raw, err := s.callModel(ctx, job, prompt)
	if err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	payload, err := extractJSON(raw)
	if err != nil {
		s.failGeneration(ctx, uow, job, parseError(err))
		return
	}
	var parsed generatedMap
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		s.failGeneration(ctx, uow, job, parseError(err))
		return
	}

	assignStructure(parsed.Nodes, 0)
	doc := &outline.MindMap{
		Title:      parsed.Title,
		Complexity: job.Complexity,
		RootNodes:  parsed.Nodes,
		Metadata: outline.Metadata{
			TotalNodes: outline.CountNodes(parsed.Nodes),
			MaxDepth:   outline.MaxDepth(parsed.Nodes),
		},
	}
	validation := outline.ValidateMindMap(doc)
	for _, w := range validation.Warnings {
		s.log.Warn("mindmap", "outline warning", map[string]interface{}{"job_id": job.Id, "warning": w})
	}
	if !validation.Valid() {
		s.failGeneration(ctx, uow, job, parseError(fmt.Errorf("outline invalid: %s", strings.Join(validation.Errors, "; "))))
		return
	}

	outline.AutoLayout(parsed.Nodes)

	// Streaming: from here readers may observe partial node sets.
	if err := s.setStatus(ctx, uow, job, entity.GenerationStatusStreaming); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	mindmap := entity.MindMap{
		Id:         uuid.New(),
		UserId:     job.UserId,
		Title:      parsed.Title,
		Version:    1,
		TotalNodes: doc.Metadata.TotalNodes,
		MaxDepth:   doc.Metadata.MaxDepth,
		CreatedAt:  time.Now(),
	}
	if len(sources) == 1 {
		srcId := sources[0].Id
		mindmap.JobId = &srcId
	}
	if err := uow.MindMapRepository().Create(ctx, &mindmap); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	if err := s.persistNodes(ctx, uow, mindmap.Id, parsed.Nodes, sources); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	job.MindmapId = &mindmap.Id
	s.completeGeneration(ctx, uow, job, doc.Metadata.TotalNodes)
}

// awaitSources blocks until every source ingestion job is terminal. A
// failed source or an expired wait aborts the generation.
func (s *mindmapService) awaitSources(ctx context.Context, uow unitofwork.UnitOfWork, jobIds []uuid.UUID) error {
	if len(jobIds) == 0 {
		return nil
	}

	deadline := time.Now().Add(s.stream.Timeout)
	ticker := time.NewTicker(s.stream.PollInterval)
	defer ticker.Stop()

	pending := make(map[uuid.UUID]bool, len(jobIds))
	for _, id := range jobIds {
		pending[id] = true
	}

	for {
		for id := range pending {
			src, err := uow.IngestionJobRepository().FindOne(ctx, specification.ByID{ID: id})
			if err != nil {
				return err
			}
			if src == nil {
				return serverutils.NewAppError(serverutils.ErrTypeNotFound,
					fmt.Sprintf("ingestion job %s not found", id), nil)
			}
			switch src.Status {
			case entity.IngestionStatusCompleted:
				delete(pending, id)
			case entity.IngestionStatusFailed:
				return serverutils.NewAppError(serverutils.ErrTypeExtractionFailure,
					fmt.Sprintf("source ingestion failed: %s", src.ErrorMessage), nil)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return serverutils.NewAppError(serverutils.ErrTypeTimeout,
				"source ingestion did not finish in time", nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// persistNodes flattens the tree and writes the nodes, the citations the
// model attached to individual nodes, and the source citations on the
// roots.
func (s *mindmapService) persistNodes(ctx context.Context, uow unitofwork.UnitOfWork, mindmapId uuid.UUID, roots []*outline.Node, sources []*entity.IngestionJob) error {
	flat := outline.FlattenNodes(roots)

	nodes := make([]*entity.MapNode, len(flat))
	rootIds := make([]uuid.UUID, 0, len(roots))
	var citations []*entity.NodeCitation
	for i, f := range flat {
		visual := f.Visual
		var parentKey *string
		if f.ParentID != "" {
			pk := f.ParentID
			parentKey = &pk
		}
		nodes[i] = &entity.MapNode{
			Id:        uuid.New(),
			MindmapId: mindmapId,
			NodeKey:   f.ID,
			ParentKey: parentKey,
			Level:     f.Level,
			NodeOrder: f.Order,
			Title:     f.Title,
			Content:   f.Content,
			Visual:    &visual,
			CreatedAt: time.Now(),
		}
		if f.ParentID == "" {
			rootIds = append(rootIds, nodes[i].Id)
		}
		citations = append(citations, citationRows(nodes[i].Id, f.Citations)...)
	}
	if err := uow.MapNodeRepository().CreateBatch(ctx, nodes); err != nil {
		return err
	}

	for _, rootId := range rootIds {
		for _, src := range sources {
			citations = append(citations, &entity.NodeCitation{
				Id:        uuid.New(),
				MapNodeId: rootId,
				Title:     src.Title,
				URL:       src.SourceURL,
				CreatedAt: time.Now(),
			})
			citations = append(citations, citationRows(rootId, src.Citations)...)
		}
	}
	return uow.NodeCitationRepository().CreateBatch(ctx, citations)
}

// citationRows converts outline citations into rows for one map node.
func citationRows(mapNodeId uuid.UUID, citations []outline.Citation) []*entity.NodeCitation {
	rows := make([]*entity.NodeCitation, len(citations))
	for i, c := range citations {
		rows[i] = &entity.NodeCitation{
			Id:           uuid.New(),
			MapNodeId:    mapNodeId,
			Title:        c.Title,
			URL:          c.URL,
			Author:       c.Author,
			Excerpt:      c.Excerpt,
			TimestampISO: c.TimestampISO,
			CreatedAt:    time.Now(),
		}
	}
	return rows
}

func (s *mindmapService) runExpand(ctx context.Context, jobId uuid.UUID) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := s.loadGenerationJob(ctx, uow, jobId)
	if err != nil {
		s.log.Error("mindmap", "expand worker could not load job", map[string]interface{}{
			"job_id": jobId, "error": err.Error(),
		})
		return
	}

	if err := s.setStatus(ctx, uow, job, entity.GenerationStatusProcessing); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	mindmap, node, siblings, err := s.loadNodeContext(ctx, uow, job)
	if err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	material := s.materialForMap(ctx, uow, mindmap)
	prompt := fmt.Sprintf(constant.ExpandNodePrompt, node.Title, node.Content, material)

	raw, err := s.callModel(ctx, job, prompt)
	if err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	payload, err := extractJSON(raw)
	if err != nil {
		s.failGeneration(ctx, uow, job, parseError(err))
		return
	}
	var parsed generatedChildren
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		s.failGeneration(ctx, uow, job, parseError(err))
		return
	}
	if len(parsed.Children) == 0 {
		s.failGeneration(ctx, uow, job, parseError(fmt.Errorf("model returned no children")))
		return
	}

	existingKeys := make(map[string]bool, len(siblings))
	for _, n := range siblings {
		existingKeys[n.NodeKey] = true
	}
	childOffset := 0
	for _, n := range siblings {
		if n.ParentKey != nil && *n.ParentKey == node.NodeKey {
			childOffset++
		}
	}

	assignStructure(parsed.Children, node.Level+1)
	for i, child := range parsed.Children {
		child.Order = childOffset + i
		ensureUniqueKey(child, node.NodeKey, existingKeys)
	}

	for _, root := range parsed.Children {
		if res := outline.ValidateNode(root); !res.Valid() {
			s.failGeneration(ctx, uow, job, parseError(fmt.Errorf("outline invalid: %s", strings.Join(res.Errors, "; "))))
			return
		}
	}

	if err := s.setStatus(ctx, uow, job, entity.GenerationStatusStreaming); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	if err := s.insertSubtrees(ctx, uow, mindmap.Id, node.NodeKey, parsed.Children); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	// The model may also refresh the expanded node's own wording.
	if parsed.Title != "" || parsed.Content != "" {
		if parsed.Title != "" {
			node.Title = parsed.Title
		}
		if parsed.Content != "" {
			node.Content = parsed.Content
		}
		if err := uow.MapNodeRepository().Update(ctx, node); err != nil {
			s.failGeneration(ctx, uow, job, err)
			return
		}
	}

	if err := s.refreshMapCounts(ctx, uow, mindmap); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}
	s.completeGeneration(ctx, uow, job, outline.CountNodes(parsed.Children))
}

func (s *mindmapService) runRegenerate(ctx context.Context, jobId uuid.UUID) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := s.loadGenerationJob(ctx, uow, jobId)
	if err != nil {
		s.log.Error("mindmap", "regenerate worker could not load job", map[string]interface{}{
			"job_id": jobId, "error": err.Error(),
		})
		return
	}

	if err := s.setStatus(ctx, uow, job, entity.GenerationStatusProcessing); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	mindmap, node, allNodes, err := s.loadNodeContext(ctx, uow, job)
	if err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	material := s.materialForMap(ctx, uow, mindmap)
	prompt := fmt.Sprintf(constant.RegenerateNodePrompt, node.Title, node.Content, material)

	raw, err := s.callModel(ctx, job, prompt)
	if err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	payload, err := extractJSON(raw)
	if err != nil {
		s.failGeneration(ctx, uow, job, parseError(err))
		return
	}
	var parsed generatedNode
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil || parsed.Node == nil {
		if err == nil {
			err = fmt.Errorf("model returned no node")
		}
		s.failGeneration(ctx, uow, job, parseError(err))
		return
	}

	// The replacement keeps the original key and position so references
	// stay stable.
	replacement := parsed.Node
	replacement.ID = node.NodeKey
	assignStructure([]*outline.Node{replacement}, node.Level)
	replacement.Order = node.NodeOrder

	existingKeys := make(map[string]bool, len(allNodes))
	subtreeKeys := descendantKeys(allNodes, node.NodeKey)
	for _, n := range allNodes {
		if !subtreeKeys[n.NodeKey] {
			existingKeys[n.NodeKey] = true
		}
	}
	for _, child := range replacement.Children {
		ensureUniqueKey(child, node.NodeKey, existingKeys)
	}

	if res := outline.ValidateNode(replacement); !res.Valid() {
		s.failGeneration(ctx, uow, job, parseError(fmt.Errorf("outline invalid: %s", strings.Join(res.Errors, "; "))))
		return
	}

	if err := s.setStatus(ctx, uow, job, entity.GenerationStatusStreaming); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	keys := make([]string, 0, len(subtreeKeys))
	for k := range subtreeKeys {
		keys = append(keys, k)
	}
	if err := uow.MapNodeRepository().DeleteByNodeKeys(ctx, mindmap.Id, keys); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	var parentKey string
	if node.ParentKey != nil {
		parentKey = *node.ParentKey
	}
	if err := s.insertSubtrees(ctx, uow, mindmap.Id, parentKey, []*outline.Node{replacement}); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	if err := s.refreshMapCounts(ctx, uow, mindmap); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}
	s.completeGeneration(ctx, uow, job, outline.CountNodes([]*outline.Node{replacement}))
}

func (s *mindmapService) runSummarize(ctx context.Context, jobId uuid.UUID) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := s.loadGenerationJob(ctx, uow, jobId)
	if err != nil {
		s.log.Error("mindmap", "summarize worker could not load job", map[string]interface{}{
			"job_id": jobId, "error": err.Error(),
		})
		return
	}

	if err := s.setStatus(ctx, uow, job, entity.GenerationStatusProcessing); err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	mindmap, err := uow.MindMapRepository().FindOne(ctx, specification.ByID{ID: *job.MindmapId})
	if err != nil || mindmap == nil {
		if err == nil {
			err = serverutils.NewAppError(serverutils.ErrTypeNotFound, "mind map not found", nil)
		}
		s.failGeneration(ctx, uow, job, err)
		return
	}

	res, err := s.buildMapResponse(ctx, uow, mindmap)
	if err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	var sb strings.Builder
	outline.Walk(res.Nodes, func(n *outline.Node) bool {
		sb.WriteString(strings.Repeat("  ", n.Level))
		sb.WriteString("- ")
		sb.WriteString(n.Title)
		if n.Content != "" {
			sb.WriteString(": ")
			sb.WriteString(n.Content)
		}
		sb.WriteString("\n")
		return true
	})

	prompt := fmt.Sprintf(constant.SummarizeMapPrompt, sb.String())
	raw, err := s.callModel(ctx, job, prompt)
	if err != nil {
		s.failGeneration(ctx, uow, job, err)
		return
	}

	payload, err := extractJSON(raw)
	if err != nil {
		s.failGeneration(ctx, uow, job, parseError(err))
		return
	}
	var parsed generatedSummary
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil || parsed.Summary == "" {
		if err == nil {
			err = fmt.Errorf("model returned empty summary")
		}
		s.failGeneration(ctx, uow, job, parseError(err))
		return
	}

	job.Summary = parsed.Summary
	s.completeGeneration(ctx, uow, job, 0)
}

// loadNodeContext loads the map, the target node and all the map's nodes
// for an expand/regenerate job.
func (s *mindmapService) loadNodeContext(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.GenerationJob) (*entity.MindMap, *entity.MapNode, []*entity.MapNode, error) {
	if job.MindmapId == nil {
		return nil, nil, nil, serverutils.NewAppError(serverutils.ErrTypeValidation, "job has no mind map", nil)
	}
	mindmap, err := uow.MindMapRepository().FindOne(ctx, specification.ByID{ID: *job.MindmapId})
	if err != nil {
		return nil, nil, nil, err
	}
	if mindmap == nil {
		return nil, nil, nil, serverutils.NewAppError(serverutils.ErrTypeNotFound, "mind map not found", nil)
	}

	allNodes, err := uow.MapNodeRepository().FindAll(ctx,
		specification.ByMindmapID{MindmapID: mindmap.Id},
	)
	if err != nil {
		return nil, nil, nil, err
	}

	var node *entity.MapNode
	for _, n := range allNodes {
		if n.NodeKey == job.NodeKey {
			node = n
			break
		}
	}
	if node == nil {
		return nil, nil, nil, serverutils.NewAppError(serverutils.ErrTypeNotFound, "node not found", nil)
	}
	return mindmap, node, allNodes, nil
}

// materialForMap returns source chunks of the map's originating
// ingestion job, or empty when the map has no recorded source.
func (s *mindmapService) materialForMap(ctx context.Context, uow unitofwork.UnitOfWork, mindmap *entity.MindMap) string {
	if mindmap.JobId == nil {
		return ""
	}
	material, _, err := s.gatherMaterial(ctx, uow, []uuid.UUID{*mindmap.JobId})
	if err != nil {
		s.log.Warn("mindmap", "could not load source material", map[string]interface{}{
			"mindmap_id": mindmap.Id, "error": err.Error(),
		})
		return ""
	}
	return material
}

// ensureUniqueKey rewrites ids that are missing or collide with keys
// already present in the map, recursively.
func ensureUniqueKey(node *outline.Node, parentKey string, taken map[string]bool) {
	if node == nil {
		return
	}
	if node.ID == "" || node.ID == "root" || taken[node.ID] {
		node.ID = fmt.Sprintf("%s-%s", parentKey, uuid.NewString()[:8])
	}
	taken[node.ID] = true
	for _, child := range node.Children {
		ensureUniqueKey(child, node.ID, taken)
	}
}

// descendantKeys returns the node key plus every key reachable below it
// through ParentKey links.
func descendantKeys(nodes []*entity.MapNode, rootKey string) map[string]bool {
	children := make(map[string][]string)
	for _, n := range nodes {
		if n.ParentKey != nil {
			children[*n.ParentKey] = append(children[*n.ParentKey], n.NodeKey)
		}
	}

	keys := map[string]bool{rootKey: true}
	stack := []string{rootKey}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range children[k] {
			if !keys[child] {
				keys[child] = true
				stack = append(stack, child)
			}
		}
	}
	return keys
}

func (s *mindmapService) insertSubtrees(ctx context.Context, uow unitofwork.UnitOfWork, mindmapId uuid.UUID, parentKey string, roots []*outline.Node) error {
	flat := outline.FlattenNodes(roots)
	nodes := make([]*entity.MapNode, len(flat))
	var citations []*entity.NodeCitation
	for i, f := range flat {
		visual := f.Visual
		pk := f.ParentID
		if pk == "" {
			pk = parentKey
		}
		var parentRef *string
		if pk != "" {
			p := pk
			parentRef = &p
		}
		nodes[i] = &entity.MapNode{
			Id:        uuid.New(),
			MindmapId: mindmapId,
			NodeKey:   f.ID,
			ParentKey: parentRef,
			Level:     f.Level,
			NodeOrder: f.Order,
			Title:     f.Title,
			Content:   f.Content,
			Visual:    &visual,
			CreatedAt: time.Now(),
		}
		citations = append(citations, citationRows(nodes[i].Id, f.Citations)...)
	}
	if err := uow.MapNodeRepository().CreateBatch(ctx, nodes); err != nil {
		return err
	}
	return uow.NodeCitationRepository().CreateBatch(ctx, citations)
}

// refreshMapCounts recomputes the advisory metadata after a mutation and
// bumps the version.
func (s *mindmapService) refreshMapCounts(ctx context.Context, uow unitofwork.UnitOfWork, mindmap *entity.MindMap) error {
	nodes, err := uow.MapNodeRepository().FindAll(ctx,
		specification.ByMindmapID{MindmapID: mindmap.Id},
	)
	if err != nil {
		return err
	}

	maxDepth := 0
	for _, n := range nodes {
		if n.Level > maxDepth {
			maxDepth = n.Level
		}
	}

	mindmap.TotalNodes = len(nodes)
	mindmap.MaxDepth = maxDepth
	mindmap.Version++
	now := time.Now()
	mindmap.UpdatedAt = &now
	return uow.MindMapRepository().Update(ctx, mindmap)
}

// Stream polls the generation job and emits the ordered event sequence:
// start, processing (repeated), streaming, node (per node), map,
// complete. A failure or timeout produces a single error event after
// which the stream ends. out is closed on return.
func (s *mindmapService) Stream(ctx context.Context, userId uuid.UUID, jobId uuid.UUID, out chan<- dto.StreamEvent) {
	defer close(out)

	send := func(evt dto.StreamEvent) bool {
		evt.JobId = jobId
		select {
		case out <- evt:
			return true
		case <-ctx.Done():
			return false
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.GenerationJobRepository().FindOne(ctx,
		specification.ByID{ID: jobId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil || job == nil {
		send(dto.StreamEvent{
			Type:    dto.StreamEventError,
			Error:   "generation job not found",
			ErrType: serverutils.ErrTypeNotFound,
		})
		return
	}

	if !send(dto.StreamEvent{Type: dto.StreamEventStart, Status: job.Status}) {
		return
	}

	deadline := time.Now().Add(s.stream.Timeout)
	ticker := time.NewTicker(s.stream.PollInterval)
	defer ticker.Stop()

	emittedStreaming := false
	emittedKeys := make(map[string]bool)
	nextIndex := 1

	for {
		job, err = uow.GenerationJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
		if err != nil || job == nil {
			send(dto.StreamEvent{
				Type:    dto.StreamEventError,
				Error:   "generation job disappeared",
				ErrType: serverutils.ErrTypeNotFound,
			})
			return
		}

		switch job.Status {
		case entity.GenerationStatusPending, entity.GenerationStatusProcessing:
			if !send(dto.StreamEvent{Type: dto.StreamEventProcessing, Status: job.Status}) {
				return
			}

		case entity.GenerationStatusStreaming:
			if !emittedStreaming {
				if !send(dto.StreamEvent{Type: dto.StreamEventStreaming, Status: job.Status}) {
					return
				}
				emittedStreaming = true
			}
			if job.MindmapId != nil {
				if !s.emitNewNodes(ctx, uow, *job.MindmapId, emittedKeys, &nextIndex, send) {
					return
				}
			}

		case entity.GenerationStatusCompleted:
			if !emittedStreaming {
				if !send(dto.StreamEvent{Type: dto.StreamEventStreaming, Status: entity.GenerationStatusStreaming}) {
					return
				}
				emittedStreaming = true
			}
			result := &dto.StreamCompletePayload{TokensUsed: job.TokensUsed}
			if job.MindmapId != nil {
				if !s.emitNewNodes(ctx, uow, *job.MindmapId, emittedKeys, &nextIndex, send) {
					return
				}
				mindmap, merr := uow.MindMapRepository().FindOne(ctx, specification.ByID{ID: *job.MindmapId})
				if merr == nil && mindmap != nil {
					result.MindmapId = job.MindmapId
					result.Title = mindmap.Title
					result.NodeCount = mindmap.TotalNodes
					if res, rerr := s.buildMapResponse(ctx, uow, mindmap); rerr == nil {
						if !send(dto.StreamEvent{Type: dto.StreamEventMap, Map: res}) {
							return
						}
					}
				}
			}
			send(dto.StreamEvent{Type: dto.StreamEventComplete, Status: job.Status, Complete: result})
			return

		case entity.GenerationStatusFailed:
			send(dto.StreamEvent{
				Type:    dto.StreamEventError,
				Error:   job.ErrorMessage,
				ErrType: job.ErrorType,
			})
			return
		}

		if time.Now().After(deadline) {
			send(dto.StreamEvent{
				Type:    dto.StreamEventError,
				Error:   "generation did not finish in time",
				ErrType: serverutils.ErrTypeTimeout,
			})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emitNewNodes sends node events for nodes that appeared since the last
// poll, depth-first in sibling order, stamping a running 1-based index.
func (s *mindmapService) emitNewNodes(ctx context.Context, uow unitofwork.UnitOfWork, mindmapId uuid.UUID, emitted map[string]bool, nextIndex *int, send func(dto.StreamEvent) bool) bool {
	nodes, err := uow.MapNodeRepository().FindAll(ctx,
		specification.ByMindmapID{MindmapID: mindmapId},
		specification.OrderByNodeOrder{},
	)
	if err != nil {
		return true // transient read failure, try again next poll
	}

	// Rebuild document order: the rows come back sorted by level and
	// sibling order, a parent-indexed walk restores depth-first order.
	children := make(map[string][]*entity.MapNode, len(nodes))
	for _, n := range nodes {
		parentID := ""
		if n.ParentKey != nil {
			parentID = *n.ParentKey
		}
		children[parentID] = append(children[parentID], n)
	}

	var walk func(parentID string) bool
	walk = func(parentID string) bool {
		for _, n := range children[parentID] {
			if !emitted[n.NodeKey] {
				emitted[n.NodeKey] = true

				var visual outline.Visual
				if n.Visual != nil {
					visual = *n.Visual
				}
				pid := ""
				if n.ParentKey != nil {
					pid = *n.ParentKey
				}
				evt := dto.StreamEvent{
					Type:  dto.StreamEventNode,
					Index: *nextIndex,
					Node: &outline.Node{
						ID:       n.NodeKey,
						Title:    n.Title,
						Content:  n.Content,
						ParentID: pid,
						Level:    n.Level,
						Order:    n.NodeOrder,
						Visual:   visual,
					},
				}
				if !send(evt) {
					return false
				}
				*nextIndex++
			}
			if !walk(n.NodeKey) {
				return false
			}
		}
		return true
	}
	return walk("")
}
