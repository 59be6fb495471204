package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/projects"
)

const indexProjects = "projects_v1"

// Indexer mirrors approved and pending projects into Elasticsearch for
// full-text search. All writes are best-effort: a search outage must never
// fail the write path that triggered the mirror.
type Indexer struct {
	client *es.Client
	logger *zap.Logger
}

// Connect builds the client and ensures the projects index exists.
func Connect(ctx context.Context, addresses []string, logger *zap.Logger) (*Indexer, error) {
	client, err := es.NewClient(es.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("connect elasticsearch: %w", err)
	}

	idx := &Indexer{client: client, logger: logger}
	if err := idx.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Indexer) ensureIndex(ctx context.Context) error {
	exists, err := i.client.Indices.Exists([]string{indexProjects})
	if err == nil && exists.StatusCode == 200 {
		return nil
	}

	mapping := `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"title":{"type":"text"},"description":{"type":"text"},
		"category":{"type":"keyword"},"status":{"type":"keyword"},
		"updated_at":{"type":"date"}
	}}}`
	res, err := i.client.Indices.Create(indexProjects,
		i.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		i.client.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", indexProjects, err)
	}
	defer res.Body.Close()
	return nil
}

type projectDoc struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	UpdatedAt   string `json:"updated_at"`
}

// IndexProject upserts the project's searchable fields.
func (i *Indexer) IndexProject(ctx context.Context, project *projects.Project) {
	doc := projectDoc{
		Title:       project.Title,
		Description: project.Description,
		Category:    project.Category,
		Status:      project.Status,
		UpdatedAt:   project.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return
	}

	res, err := i.client.Index(indexProjects, bytes.NewReader(payload),
		i.client.Index.WithDocumentID(project.ID.Hex()),
		i.client.Index.WithContext(ctx))
	if err != nil {
		i.logger.Warn("search indexing skipped", zap.String("project", project.ID.Hex()), zap.Error(err))
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Warn("search indexing rejected",
			zap.String("project", project.ID.Hex()),
			zap.String("status", res.Status()))
	}
}

// DeleteProject removes the project from the index.
func (i *Indexer) DeleteProject(ctx context.Context, id string) {
	res, err := i.client.Delete(indexProjects, id, i.client.Delete.WithContext(ctx))
	if err != nil {
		i.logger.Warn("search delete skipped", zap.String("project", id), zap.Error(err))
		return
	}
	res.Body.Close()
}

// SearchProjects runs a full-text query over title and description and
// returns matching project ids, best first.
func (i *Indexer) SearchProjects(ctx context.Context, query string, limit int) ([]string, error) {
	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "description"},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := i.client.Search(
		i.client.Search.WithIndex(indexProjects),
		i.client.Search.WithBody(bytes.NewReader(payload)),
		i.client.Search.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("search projects: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search projects: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// NoopIndexer satisfies the project service's Indexer when search is
// disabled by configuration.
type NoopIndexer struct{}

func (NoopIndexer) IndexProject(ctx context.Context, project *projects.Project) {}
func (NoopIndexer) DeleteProject(ctx context.Context, id string)               {}
func (NoopIndexer) SearchProjects(ctx context.Context, query string, limit int) ([]string, error) {
	return nil, fmt.Errorf("search is not enabled")
}
