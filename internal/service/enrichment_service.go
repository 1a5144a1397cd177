package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"leadqualify-be/internal/dto"
	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/internal/repository/memory"
	"leadqualify-be/internal/repository/specification"
	"leadqualify-be/internal/repository/unitofwork"
	"leadqualify-be/pkg/embedding"
	"leadqualify-be/pkg/enrich/normalize"
	"leadqualify-be/pkg/enrich/segment"
	"leadqualify-be/pkg/enrich/tagging"
	"leadqualify-be/pkg/enrich/taxonomy"
	"leadqualify-be/pkg/llm"
	"leadqualify-be/pkg/utils"

	"github.com/google/uuid"
)

const (
	chunkSize    = 1500
	chunkOverlap = 200
)

type IEnrichmentService interface {
	EnrichSummary(ctx context.Context, req *dto.EnrichSummaryRequest) (*dto.EnrichSummaryResponse, error)
	GetSummary(ctx context.Context, tenantId uuid.UUID, pageURL string) (*dto.GetSummaryResponse, error)
}

type enrichmentService struct {
	uowFactory        unitofwork.RepositoryFactory
	llmProvider       llm.Provider
	embeddingProvider embedding.Provider
	classifier        *tagging.Classifier
	normalizer        *normalize.Normalizer
	summaryCache      *memory.SummaryCache
	logger            logger.ILogger
}

func NewEnrichmentService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.Provider,
	embeddingProvider embedding.Provider,
	classifier *tagging.Classifier,
	normalizer *normalize.Normalizer,
	summaryCache *memory.SummaryCache,
	log logger.ILogger,
) IEnrichmentService {
	return &enrichmentService{
		uowFactory:        uowFactory,
		llmProvider:       llmProvider,
		embeddingProvider: embeddingProvider,
		classifier:        classifier,
		normalizer:        normalizer,
		summaryCache:      summaryCache,
		logger:            log,
	}
}

// EnrichSummary runs the full pipeline for one crawled page: segment, align
// against the stored summary, backfill questions, classify option tags and
// persist. The embedding index for the page is rebuilt at the end.
func (s *enrichmentService) EnrichSummary(ctx context.Context, req *dto.EnrichSummaryRequest) (*dto.EnrichSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.SummaryRepository().FindOne(ctx,
		specification.ByTenantID{TenantID: req.TenantId},
		specification.ByPageURL{PageURL: req.PageURL},
	)
	if err != nil {
		return nil, err
	}

	blocks := segment.SplitAndMerge(req.Content, segment.DefaultMinBlockChars)
	s.logger.Info("Enrichment", "Page segmented", map[string]interface{}{
		"page_url": req.PageURL,
		"blocks":   len(blocks),
	})

	var existingSections []entity.Section
	if existing != nil {
		existingSections = existing.Sections
	}
	sections := normalize.Realign(existingSections, blocks)
	sections = s.normalizer.Backfill(ctx, sections)
	s.classifyOptions(ctx, sections)

	summary := &entity.StructuredSummary{
		Id:       uuid.New(),
		TenantId: req.TenantId,
		PageURL:  req.PageURL,
		Sections: sections,
	}
	if existing != nil {
		summary.Id = existing.Id
		summary.PageType = existing.PageType
		summary.BusinessName = existing.BusinessName
		summary.CreatedAt = existing.CreatedAt
	}
	summary.CrawledAt = req.CrawledAt
	if summary.CrawledAt.IsZero() {
		summary.CrawledAt = time.Now()
	}

	if summary.PageType == "" || summary.BusinessName == "" {
		s.classifyPage(ctx, summary, req.Content)
	}

	if err := uow.SummaryRepository().Upsert(ctx, summary); err != nil {
		return nil, err
	}

	// The cached copy is stale the moment the row changes.
	s.summaryCache.Invalidate(summary.TenantId, summary.PageURL)
	s.summaryCache.Save(summary)

	if err := s.rebuildEmbeddings(ctx, uow, req, sections); err != nil {
		// Retrieval degrades but the summary itself is already persisted.
		s.logger.Error("Enrichment", "Embedding rebuild failed", map[string]interface{}{
			"page_url": req.PageURL,
			"error":    err.Error(),
		})
	}

	var updatedAt time.Time
	if summary.UpdatedAt != nil {
		updatedAt = *summary.UpdatedAt
	}
	return &dto.EnrichSummaryResponse{
		SummaryId:    summary.Id,
		PageURL:      summary.PageURL,
		PageType:     summary.PageType,
		BusinessName: summary.BusinessName,
		SectionCount: len(summary.Sections),
		UpdatedAt:    updatedAt,
	}, nil
}

func (s *enrichmentService) GetSummary(ctx context.Context, tenantId uuid.UUID, pageURL string) (*dto.GetSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	summary, err := uow.SummaryRepository().FindOne(ctx,
		specification.ByTenantID{TenantID: tenantId},
		specification.ByPageURL{PageURL: pageURL},
	)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, nil
	}

	res := &dto.GetSummaryResponse{
		SummaryId:    summary.Id,
		PageURL:      summary.PageURL,
		PageType:     summary.PageType,
		BusinessName: summary.BusinessName,
		CrawledAt:    summary.CrawledAt,
	}
	for _, sec := range summary.Sections {
		res.Sections = append(res.Sections, dto.SectionDTO{
			SectionName:    sec.SectionName,
			SectionSummary: sec.SectionSummary,
			SectionType:    sec.SectionType,
			LeadQuestions:  len(sec.LeadQuestions),
			SalesQuestions: len(sec.SalesQuestions),
		})
	}
	return res, nil
}

// classifyOptions tags every untagged option across all questions in one
// batch call, repairs the holdouts per question, then enforces the option
// bounds on every question.
func (s *enrichmentService) classifyOptions(ctx context.Context, sections []entity.Section) {
	var labels []string
	forEachQuestion(sections, func(q *entity.Question) {
		for _, opt := range q.Options {
			if !taxonomy.ValidPair(opt.Tags) {
				labels = append(labels, opt.Label)
			}
		}
	})
	if len(labels) == 0 {
		return
	}

	assigned := s.classifier.Classify(ctx, labels)

	forEachQuestion(sections, func(q *entity.Question) {
		original := make([]entity.Option, len(q.Options))
		copy(original, q.Options)

		var valid, invalid []entity.Option
		for _, opt := range q.Options {
			if !taxonomy.ValidPair(opt.Tags) {
				if tags, ok := assigned[strings.ToLower(strings.TrimSpace(opt.Label))]; ok {
					opt.Tags = tags
				}
			}
			if taxonomy.ValidPair(opt.Tags) {
				valid = append(valid, opt)
			} else {
				invalid = append(invalid, opt)
			}
		}

		if len(invalid) > 0 {
			valid = append(valid, s.classifier.Repair(ctx, invalid, valid)...)
		}

		q.Options = valid
		tagging.FinalizeQuestion(q, original)
	})
}

type pageClassification struct {
	PageType     string `json:"page_type"`
	BusinessName string `json:"business_name"`
}

// classifyPage fills PageType and BusinessName from one LLM call. Failure
// leaves both fields as they were; neither is load bearing.
func (s *enrichmentService) classifyPage(ctx context.Context, summary *entity.StructuredSummary, content string) {
	var b strings.Builder
	b.WriteString("<system>\n")
	b.WriteString("You classify one web page. page_type is one of: landing, pricing, product, blog, docs, about, other.\n")
	b.WriteString("business_name is the company or product name visible in the content, empty string if unclear.\n")
	b.WriteString("</system>\n\n")
	b.WriteString("<page>\n")
	if len(content) > 2000 {
		content = content[:2000]
	}
	b.WriteString(content)
	b.WriteString("\n</page>\n\n")
	b.WriteString("Respond with ONLY valid JSON: {\"page_type\": \"...\", \"business_name\": \"...\"}")

	response, err := s.llmProvider.Generate(ctx, b.String(), llm.WithTemperature(0.0))
	if err != nil {
		s.logger.Warn("Enrichment", "Page classification failed", map[string]interface{}{
			"page_url": summary.PageURL,
			"error":    err.Error(),
		})
		return
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return
	}
	var parsed pageClassification
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return
	}
	if summary.PageType == "" {
		summary.PageType = parsed.PageType
	}
	if summary.BusinessName == "" {
		summary.BusinessName = parsed.BusinessName
	}
}

// rebuildEmbeddings replaces the page's retrieval index inside one
// transaction so search never observes a half-built page.
func (s *enrichmentService) rebuildEmbeddings(ctx context.Context, uow unitofwork.UnitOfWork, req *dto.EnrichSummaryRequest, sections []entity.Section) error {
	var chunks []*entity.ContentChunk
	for _, sec := range sections {
		parts := utils.SplitText(sec.SectionContent, chunkSize, chunkOverlap)
		for i, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			vec, err := s.embeddingProvider.Embed(ctx, part)
			if err != nil {
				return err
			}
			chunks = append(chunks, &entity.ContentChunk{
				Id:             uuid.New(),
				TenantId:       req.TenantId,
				PageURL:        req.PageURL,
				SectionRef:     sec.SectionName,
				Document:       part,
				EmbeddingValue: vec,
				ChunkIndex:     i,
				CreatedAt:      time.Now(),
			})
		}
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ContentEmbeddingRepository().DeleteByPage(ctx, req.TenantId, req.PageURL); err != nil {
		return err
	}
	if len(chunks) > 0 {
		if err := uow.ContentEmbeddingRepository().CreateBulk(ctx, chunks); err != nil {
			return err
		}
	}
	return uow.Commit()
}

func forEachQuestion(sections []entity.Section, fn func(q *entity.Question)) {
	for i := range sections {
		for j := range sections[i].LeadQuestions {
			fn(&sections[i].LeadQuestions[j])
		}
		for j := range sections[i].SalesQuestions {
			fn(&sections[i].SalesQuestions[j])
		}
	}
}
