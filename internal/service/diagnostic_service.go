package service

import (
	"context"

	"leadqualify-be/internal/dto"
	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/internal/repository/memory"
	"leadqualify-be/internal/repository/specification"
	"leadqualify-be/internal/repository/unitofwork"
	"leadqualify-be/pkg/embedding"
	"leadqualify-be/pkg/enrich/diagnostic"

	"github.com/google/uuid"
)

type IDiagnosticService interface {
	GenerateDiagnosticContent(ctx context.Context, req *dto.GenerateDiagnosticsRequest) (*dto.GenerateDiagnosticsResponse, error)
}

type diagnosticService struct {
	uowFactory   unitofwork.RepositoryFactory
	generator    *diagnostic.Generator
	summaryCache *memory.SummaryCache
	logger       logger.ILogger
}

func NewDiagnosticService(
	uowFactory unitofwork.RepositoryFactory,
	generator *diagnostic.Generator,
	summaryCache *memory.SummaryCache,
	log logger.ILogger,
) IDiagnosticService {
	return &diagnosticService{
		uowFactory:   uowFactory,
		generator:    generator,
		summaryCache: summaryCache,
		logger:       log,
	}
}

// GenerateDiagnosticContent fills the diagnostic answer, action list and
// narratives for every unique (label, workflow class) pair across the
// tenant's stored summaries, then writes each enriched summary back. A pair
// appearing on several pages is generated once and the identical content is
// fanned out to every occurrence. An empty PageURL covers the whole tenant.
func (s *diagnosticService) GenerateDiagnosticContent(ctx context.Context, req *dto.GenerateDiagnosticsRequest) (*dto.GenerateDiagnosticsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{specification.ByTenantID{TenantID: req.TenantId}}
	if req.PageURL != "" {
		specs = append(specs, specification.ByPageURL{PageURL: req.PageURL})
	}
	summaries, err := uow.SummaryRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	items := collectItems(summaries)
	if len(items) == 0 {
		return &dto.GenerateDiagnosticsResponse{PagesUpdated: 0}, nil
	}

	s.logger.Info("Diagnostic", "Generating content", map[string]interface{}{
		"page_url": req.PageURL,
		"pages":    len(summaries),
		"pairs":    len(items),
	})

	results := s.generator.GenerateBatch(ctx, req.TenantId, items)

	completed := 0
	for _, r := range results {
		if r.Answer != "" {
			completed++
		}
	}

	for _, summary := range summaries {
		applyResults(summary.Sections, results)

		if err := uow.SummaryRepository().Update(ctx, summary); err != nil {
			return nil, err
		}
		s.summaryCache.Invalidate(summary.TenantId, summary.PageURL)
		s.summaryCache.Save(summary)
	}

	return &dto.GenerateDiagnosticsResponse{
		PagesUpdated:   len(summaries),
		PairsProcessed: len(items),
		PairsCompleted: completed,
	}, nil
}

// collectItems walks every option of every summary and deduplicates on
// (label, workflow class), so a pair repeated across pages is one item.
func collectItems(summaries []*entity.StructuredSummary) []diagnostic.Item {
	seen := make(map[diagnostic.Item]bool)
	var items []diagnostic.Item
	for _, summary := range summaries {
		forEachQuestion(summary.Sections, func(q *entity.Question) {
			for _, opt := range q.Options {
				item := diagnostic.Item{Label: opt.Label, WorkflowClass: opt.WorkflowClass}
				if opt.Label == "" || seen[item] {
					continue
				}
				seen[item] = true
				items = append(items, item)
			}
		})
	}
	return items
}

// applyResults fans generated content back out to every option carrying the
// pair, including duplicates across sections.
func applyResults(sections []entity.Section, results map[diagnostic.Item]diagnostic.Result) {
	forEachQuestion(sections, func(q *entity.Question) {
		for i := range q.Options {
			opt := &q.Options[i]
			r, ok := results[diagnostic.Item{Label: opt.Label, WorkflowClass: opt.WorkflowClass}]
			if !ok || r.Answer == "" {
				continue
			}
			opt.DiagnosticAnswer = r.Answer
			opt.DiagnosticActionList = r.Actions
			opt.DiagnosticActionItems = r.Details
		}
	})
}

// Chunks below this cosine similarity add noise rather than grounding and
// are dropped from the generation context.
const minContextSimilarity = 0.3

// contentRetriever grounds diagnostic generation on the tenant's own page
// content via the pgvector index.
type contentRetriever struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.Provider
}

func NewContentRetriever(uowFactory unitofwork.RepositoryFactory, embeddingProvider embedding.Provider) diagnostic.Retriever {
	return &contentRetriever{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
	}
}

func (r *contentRetriever) TopSimilar(ctx context.Context, tenantId uuid.UUID, text string, limit int) ([]string, error) {
	vec, err := r.embeddingProvider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.ContentEmbeddingRepository().SearchSimilarWithScore(ctx, vec, limit, tenantId, minContextSimilarity)
	if err != nil {
		return nil, err
	}

	docs := make([]string, len(scored))
	for i, c := range scored {
		docs[i] = c.Chunk.Document
	}
	return docs, nil
}
