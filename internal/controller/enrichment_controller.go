package controller

import (
	"encoding/json"
	"time"

	"leadqualify-be/internal/dto"
	"leadqualify-be/internal/pkg/serverutils"
	"leadqualify-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IEnrichmentController interface {
	RegisterRoutes(r fiber.Router)
	EnrichSummary(ctx *fiber.Ctx) error
	IngestPage(ctx *fiber.Ctx) error
	GenerateDiagnostics(ctx *fiber.Ctx) error
	GetSummary(ctx *fiber.Ctx) error
}

type enrichmentController struct {
	enrichmentService service.IEnrichmentService
	diagnosticService service.IDiagnosticService
	publisherService  service.IPublisherService
}

func NewEnrichmentController(
	enrichmentService service.IEnrichmentService,
	diagnosticService service.IDiagnosticService,
	publisherService service.IPublisherService,
) IEnrichmentController {
	return &enrichmentController{
		enrichmentService: enrichmentService,
		diagnosticService: diagnosticService,
		publisherService:  publisherService,
	}
}

func (c *enrichmentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/enrichment/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("summary", c.EnrichSummary)
	h.Post("pages", c.IngestPage)
	h.Post("diagnostics", c.GenerateDiagnostics)
	h.Get("summary", c.GetSummary)
}

func (c *enrichmentController) EnrichSummary(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)

	var req dto.EnrichSummaryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.TenantId = tenantId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.enrichmentService.EnrichSummary(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success enrich summary", res))
}

// IngestPage queues a crawled page for asynchronous enrichment instead of
// processing it inline. The consumer picks it up from the event bus.
func (c *enrichmentController) IngestPage(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)

	var req dto.EnrichSummaryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.TenantId = tenantId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if req.CrawledAt.IsZero() {
		req.CrawledAt = time.Now()
	}

	payload, err := json.Marshal(dto.PageCrawledEvent{
		TenantId:  req.TenantId,
		PageURL:   req.PageURL,
		Content:   req.Content,
		CrawledAt: req.CrawledAt,
	})
	if err != nil {
		return err
	}

	if err := c.publisherService.Publish(ctx.Context(), payload); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Page queued for enrichment", &dto.PageCrawledEvent{
		TenantId:  req.TenantId,
		PageURL:   req.PageURL,
		CrawledAt: req.CrawledAt,
	}))
}

func (c *enrichmentController) GenerateDiagnostics(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)

	var req dto.GenerateDiagnosticsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.TenantId = tenantId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.diagnosticService.GenerateDiagnosticContent(ctx.Context(), &req)
	if err != nil {
		return err
	}
	if res == nil {
		return serverutils.NewApiError(fiber.StatusNotFound, "No summaries found to enrich")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate diagnostics", res))
}

func (c *enrichmentController) GetSummary(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	pageURL := ctx.Query("page_url")
	if pageURL == "" {
		return serverutils.NewApiError(fiber.StatusBadRequest, "page_url query param is required")
	}

	res, err := c.enrichmentService.GetSummary(ctx.Context(), tenantId, pageURL)
	if err != nil {
		return err
	}
	if res == nil {
		return serverutils.NewApiError(fiber.StatusNotFound, "No summary found for page")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get summary", res))
}

func tenantFromLocals(ctx *fiber.Ctx) uuid.UUID {
	tenantIdStr, _ := ctx.Locals("tenant_id").(string)
	tenantId, _ := uuid.Parse(tenantIdStr)
	return tenantId
}
