package service

import (
	"context"
	"sort"
	"sync"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/repository/contract"
	"ai-mindmap-be/internal/repository/specification"
	"ai-mindmap-be/internal/repository/unitofwork"
	"ai-mindmap-be/pkg/events"
	"ai-mindmap-be/pkg/scheduler"

	"github.com/google/uuid"
)

// In-memory repositories backing the service tests. Specifications are
// interpreted by type switch, covering the ones the services use.

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// discardScheduler accepts every task and never runs it, standing in for
// a queue whose worker is down.
type discardScheduler struct{}

func (discardScheduler) Enqueue(ctx context.Context, task scheduler.Task) error { return nil }

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type memoryStore struct {
	mu            sync.Mutex
	ingestionJobs map[uuid.UUID]*entity.IngestionJob
	chunks        map[uuid.UUID]*entity.ContentChunk
	mindmaps      map[uuid.UUID]*entity.MindMap
	mapNodes      map[uuid.UUID]*entity.MapNode
	citations     map[uuid.UUID]*entity.NodeCitation
	genJobs       map[uuid.UUID]*entity.GenerationJob
	providerKeys  map[string]*entity.ProviderKey
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		ingestionJobs: make(map[uuid.UUID]*entity.IngestionJob),
		chunks:        make(map[uuid.UUID]*entity.ContentChunk),
		mindmaps:      make(map[uuid.UUID]*entity.MindMap),
		mapNodes:      make(map[uuid.UUID]*entity.MapNode),
		citations:     make(map[uuid.UUID]*entity.NodeCitation),
		genJobs:       make(map[uuid.UUID]*entity.GenerationJob),
		providerKeys:  make(map[string]*entity.ProviderKey),
	}
}

type memoryFactory struct {
	store *memoryStore
}

func newMemoryFactory() *memoryFactory {
	return &memoryFactory{store: newMemoryStore()}
}

func (f *memoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memoryUow{store: f.store}
}

type memoryUow struct {
	store *memoryStore
}

func (u *memoryUow) Begin(ctx context.Context) error { return nil }
func (u *memoryUow) Commit() error                   { return nil }
func (u *memoryUow) Rollback() error                 { return nil }

func (u *memoryUow) IngestionJobRepository() contract.IngestionJobRepository {
	return &memIngestionJobRepo{store: u.store}
}
func (u *memoryUow) ContentChunkRepository() contract.ContentChunkRepository {
	return &memContentChunkRepo{store: u.store}
}
func (u *memoryUow) MindMapRepository() contract.MindMapRepository {
	return &memMindMapRepo{store: u.store}
}
func (u *memoryUow) MapNodeRepository() contract.MapNodeRepository {
	return &memMapNodeRepo{store: u.store}
}
func (u *memoryUow) NodeCitationRepository() contract.NodeCitationRepository {
	return &memNodeCitationRepo{store: u.store}
}
func (u *memoryUow) GenerationJobRepository() contract.GenerationJobRepository {
	return &memGenerationJobRepo{store: u.store}
}
func (u *memoryUow) ProviderKeyRepository() contract.ProviderKeyRepository {
	return &memProviderKeyRepo{store: u.store}
}

func matchIngestionJob(j *entity.IngestionJob, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByID:
			if j.Id != sp.ID {
				return false
			}
		case specification.ByUserID:
			if j.UserId != sp.UserID {
				return false
			}
		case specification.ByStatus:
			if j.Status != sp.Status {
				return false
			}
		case specification.ByContentHash:
			if j.ContentHash != sp.Hash {
				return false
			}
		}
	}
	return true
}

type memIngestionJobRepo struct{ store *memoryStore }

func (r *memIngestionJobRepo) Create(ctx context.Context, job *entity.IngestionJob) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *job
	r.store.ingestionJobs[job.Id] = &cp
	return nil
}

func (r *memIngestionJobRepo) Update(ctx context.Context, job *entity.IngestionJob) error {
	return r.Create(ctx, job)
}

func (r *memIngestionJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.ingestionJobs, id)
	return nil
}

func (r *memIngestionJobRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IngestionJob, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, j := range r.store.ingestionJobs {
		if matchIngestionJob(j, specs) {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memIngestionJobRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IngestionJob, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.IngestionJob
	for _, j := range r.store.ingestionJobs {
		if matchIngestionJob(j, specs) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memIngestionJobRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type memContentChunkRepo struct{ store *memoryStore }

func (r *memContentChunkRepo) CreateBatch(ctx context.Context, chunks []*entity.ContentChunk) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range chunks {
		cp := *c
		r.store.chunks[c.Id] = &cp
	}
	return nil
}

func (r *memContentChunkRepo) DeleteByJobId(ctx context.Context, jobId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, c := range r.store.chunks {
		if c.JobId == jobId {
			delete(r.store.chunks, id)
		}
	}
	return nil
}

func (r *memContentChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContentChunk, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ContentChunk
	for _, c := range r.store.chunks {
		match := true
		for _, s := range specs {
			if sp, ok := s.(specification.ByJobID); ok && c.JobId != sp.JobID {
				match = false
			}
		}
		if match {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (r *memContentChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type memMindMapRepo struct{ store *memoryStore }

func matchMindMap(m *entity.MindMap, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByID:
			if m.Id != sp.ID {
				return false
			}
		case specification.ByUserID:
			if m.UserId != sp.UserID {
				return false
			}
		}
	}
	return true
}

func (r *memMindMapRepo) Create(ctx context.Context, mindmap *entity.MindMap) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *mindmap
	r.store.mindmaps[mindmap.Id] = &cp
	return nil
}

func (r *memMindMapRepo) Update(ctx context.Context, mindmap *entity.MindMap) error {
	return r.Create(ctx, mindmap)
}

func (r *memMindMapRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.mindmaps, id)
	return nil
}

func (r *memMindMapRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MindMap, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.mindmaps {
		if matchMindMap(m, specs) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memMindMapRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MindMap, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.MindMap
	for _, m := range r.store.mindmaps {
		if matchMindMap(m, specs) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memMindMapRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type memMapNodeRepo struct{ store *memoryStore }

func matchMapNode(n *entity.MapNode, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByMindmapID:
			if n.MindmapId != sp.MindmapID {
				return false
			}
		case specification.ByNodeKey:
			if n.NodeKey != sp.NodeKey {
				return false
			}
		case specification.ByParentKey:
			if n.ParentKey == nil || *n.ParentKey != sp.ParentKey {
				return false
			}
		}
	}
	return true
}

func (r *memMapNodeRepo) CreateBatch(ctx context.Context, nodes []*entity.MapNode) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, n := range nodes {
		cp := *n
		r.store.mapNodes[n.Id] = &cp
	}
	return nil
}

func (r *memMapNodeRepo) Update(ctx context.Context, node *entity.MapNode) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *node
	r.store.mapNodes[node.Id] = &cp
	return nil
}

func (r *memMapNodeRepo) DeleteByMindmapId(ctx context.Context, mindmapId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, n := range r.store.mapNodes {
		if n.MindmapId == mindmapId {
			delete(r.store.mapNodes, id)
		}
	}
	return nil
}

func (r *memMapNodeRepo) DeleteByNodeKeys(ctx context.Context, mindmapId uuid.UUID, nodeKeys []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	keys := make(map[string]bool, len(nodeKeys))
	for _, k := range nodeKeys {
		keys[k] = true
	}
	for id, n := range r.store.mapNodes {
		if n.MindmapId == mindmapId && keys[n.NodeKey] {
			delete(r.store.mapNodes, id)
		}
	}
	return nil
}

func (r *memMapNodeRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MapNode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, n := range r.store.mapNodes {
		if matchMapNode(n, specs) {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memMapNodeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MapNode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.MapNode
	for _, n := range r.store.mapNodes {
		if matchMapNode(n, specs) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].NodeOrder < out[j].NodeOrder
	})
	return out, nil
}

func (r *memMapNodeRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type memNodeCitationRepo struct{ store *memoryStore }

func (r *memNodeCitationRepo) CreateBatch(ctx context.Context, citations []*entity.NodeCitation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range citations {
		cp := *c
		r.store.citations[c.Id] = &cp
	}
	return nil
}

func (r *memNodeCitationRepo) DeleteByMapNodeIds(ctx context.Context, mapNodeIds []uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ids := make(map[uuid.UUID]bool, len(mapNodeIds))
	for _, id := range mapNodeIds {
		ids[id] = true
	}
	for id, c := range r.store.citations {
		if ids[c.MapNodeId] {
			delete(r.store.citations, id)
		}
	}
	return nil
}

func (r *memNodeCitationRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NodeCitation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.NodeCitation
	for _, c := range r.store.citations {
		match := true
		for _, s := range specs {
			if sp, ok := s.(specification.ByMapNodeIDs); ok {
				found := false
				for _, id := range sp.MapNodeIDs {
					if c.MapNodeId == id {
						found = true
						break
					}
				}
				if !found {
					match = false
				}
			}
		}
		if match {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memGenerationJobRepo struct{ store *memoryStore }

func matchGenerationJob(j *entity.GenerationJob, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByID:
			if j.Id != sp.ID {
				return false
			}
		case specification.ByUserID:
			if j.UserId != sp.UserID {
				return false
			}
		case specification.ByStatus:
			if j.Status != sp.Status {
				return false
			}
		}
	}
	return true
}

func (r *memGenerationJobRepo) Create(ctx context.Context, job *entity.GenerationJob) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *job
	r.store.genJobs[job.Id] = &cp
	return nil
}

func (r *memGenerationJobRepo) Update(ctx context.Context, job *entity.GenerationJob) error {
	return r.Create(ctx, job)
}

func (r *memGenerationJobRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenerationJob, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, j := range r.store.genJobs {
		if matchGenerationJob(j, specs) {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memGenerationJobRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.GenerationJob
	for _, j := range r.store.genJobs {
		if matchGenerationJob(j, specs) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memProviderKeyRepo struct{ store *memoryStore }

func (r *memProviderKeyRepo) Upsert(ctx context.Context, key *entity.ProviderKey) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *key
	r.store.providerKeys[key.UserId.String()+"/"+key.Provider] = &cp
	return nil
}

func (r *memProviderKeyRepo) FindByUserAndProvider(ctx context.Context, userId uuid.UUID, provider string) (*entity.ProviderKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	k, ok := r.store.providerKeys[userId.String()+"/"+provider]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}
