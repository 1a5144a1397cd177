package service

import (
	"context"
	"encoding/json"
	"log"

	"leadqualify-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the crawler topic: every message is one freshly
// crawled page to run through enrichment and diagnostic generation.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	enrichmentService IEnrichmentService
	diagnosticService IDiagnosticService
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	enrichmentService IEnrichmentService,
	diagnosticService IDiagnosticService,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		enrichmentService: enrichmentService,
		diagnosticService: diagnosticService,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PageCrawledEvent
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal crawl message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing crawled page %s for tenant %s", payload.PageURL, payload.TenantId)

	enrichReq := &dto.EnrichSummaryRequest{
		TenantId:  payload.TenantId,
		PageURL:   payload.PageURL,
		Content:   payload.Content,
		CrawledAt: payload.CrawledAt,
	}
	res, err := cs.enrichmentService.EnrichSummary(ctx, enrichReq)
	if err != nil {
		log.Printf("[ERROR] Enrichment failed for %s: %v", payload.PageURL, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	// Diagnostic generation runs after the summary is persisted so a failure
	// here never loses the question bank.
	diagReq := &dto.GenerateDiagnosticsRequest{
		TenantId: payload.TenantId,
		PageURL:  payload.PageURL,
	}
	if _, err := cs.diagnosticService.GenerateDiagnosticContent(ctx, diagReq); err != nil {
		log.Printf("[ERROR] Diagnostic generation failed for %s: %v", payload.PageURL, err)
	}

	log.Printf("[SUCCESS] Page enriched: %d sections for %s", res.SectionCount, payload.PageURL)
	msg.Ack()
}
