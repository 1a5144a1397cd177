package main

import (
	"context"
	"flag"
	"os"
	"time"

	"leadqualify-be/internal/config"
	"leadqualify-be/internal/dto"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/internal/repository/memory"
	"leadqualify-be/internal/repository/specification"
	"leadqualify-be/internal/repository/unitofwork"
	"leadqualify-be/internal/service"
	"leadqualify-be/pkg/database"
	"leadqualify-be/pkg/embedding"
	"leadqualify-be/pkg/enrich/diagnostic"
	"leadqualify-be/pkg/enrich/normalize"
	"leadqualify-be/pkg/enrich/tagging"
	"leadqualify-be/pkg/llm/factory"
	"leadqualify-be/pkg/retry"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Runs the enrichment pipeline against the live database for one page,
// bypassing HTTP and the consumer. Useful for seeding a demo tenant or
// re-running a page after a prompt change.
func main() {
	tenantFlag := flag.String("tenant", "", "tenant UUID")
	urlFlag := flag.String("url", "", "page URL the content was crawled from")
	fileFlag := flag.String("file", "", "path to a file with the crawled page content")
	skipDiag := flag.Bool("skip-diagnostics", false, "stop after the question bank is built")
	flag.Parse()

	if *tenantFlag == "" || *urlFlag == "" || *fileFlag == "" {
		color.Red("Usage: enrich -tenant <uuid> -url <page-url> -file <content.txt>")
		os.Exit(1)
	}

	tenantId, err := uuid.Parse(*tenantFlag)
	if err != nil {
		color.Red("Invalid tenant UUID: %v", err)
		os.Exit(1)
	}

	content, err := os.ReadFile(*fileFlag)
	if err != nil {
		color.Red("Failed to read content file: %v", err)
		os.Exit(1)
	}

	cfg := config.Load()

	color.Cyan("🚀 Enriching %s for tenant %s\n", *urlFlag, tenantId)

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, false)

	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.EmbeddingBaseURL, cfg.Ai.EmbeddingModel)
	llmProvider, err := factory.NewProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.LLMBaseURL, cfg.Ai.LLMAPIKey)
	if err != nil {
		color.Red("Failed to initialize LLM provider: %v", err)
		os.Exit(1)
	}

	classifier := tagging.NewClassifier(llmProvider, retry.Default(), sysLogger)
	normalizer := normalize.NewNormalizer(llmProvider, sysLogger)
	retriever := service.NewContentRetriever(uowFactory, embeddingProvider)
	generator := diagnostic.NewGenerator(llmProvider, retriever, sysLogger)
	summaryCache := memory.NewSummaryCache()

	enrichmentService := service.NewEnrichmentService(
		uowFactory, llmProvider, embeddingProvider, classifier, normalizer, summaryCache, sysLogger,
	)
	diagnosticService := service.NewDiagnosticService(uowFactory, generator, summaryCache, sysLogger)

	ctx := context.Background()

	color.Yellow("\n[1/2] Building question bank...")
	start := time.Now()
	enrichRes, err := enrichmentService.EnrichSummary(ctx, &dto.EnrichSummaryRequest{
		TenantId:  tenantId,
		PageURL:   *urlFlag,
		Content:   string(content),
		CrawledAt: time.Now(),
	})
	if err != nil {
		color.Red("Enrichment failed: %v", err)
		os.Exit(1)
	}
	color.Green("Done in %s: %d sections, page type %q", time.Since(start).Round(time.Millisecond), enrichRes.SectionCount, enrichRes.PageType)

	chunkCount, err := uowFactory.NewUnitOfWork(ctx).ContentEmbeddingRepository().Count(ctx,
		specification.ByTenantID{TenantID: tenantId},
		specification.ByPageURL{PageURL: *urlFlag},
	)
	if err != nil {
		color.Red("Failed to count indexed chunks: %v", err)
	} else {
		color.Green("Indexed %d content chunks for similarity grounding", chunkCount)
	}

	if *skipDiag {
		color.Cyan("\n✅ Skipping diagnostics as requested")
		return
	}

	color.Yellow("\n[2/2] Generating diagnostic content...")
	start = time.Now()
	diagRes, err := diagnosticService.GenerateDiagnosticContent(ctx, &dto.GenerateDiagnosticsRequest{
		TenantId: tenantId,
		PageURL:  *urlFlag,
	})
	if err != nil {
		color.Red("Diagnostic generation failed: %v", err)
		os.Exit(1)
	}
	color.Green("Done in %s: %d/%d pairs completed", time.Since(start).Round(time.Millisecond), diagRes.PairsCompleted, diagRes.PairsProcessed)

	color.Cyan("\n✅ Page enriched")
}
