package service

import (
	"context"
	"errors"
	"time"

	"leadqualify-be/internal/dto"
	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/pkg/logger"
	"leadqualify-be/internal/pkg/mailer"
	"leadqualify-be/internal/repository/contract"
	"leadqualify-be/internal/repository/memory"
	"leadqualify-be/internal/repository/specification"
	"leadqualify-be/internal/repository/unitofwork"
	"leadqualify-be/internal/websocket"
	"leadqualify-be/pkg/conversation"
	"leadqualify-be/pkg/events"
	pktNats "leadqualify-be/pkg/nats"

	"github.com/google/uuid"
)

// Sessions idle longer than this restart from the top on the next message.
const sessionIdleReset = 24 * time.Hour

type IConversationService interface {
	Advance(ctx context.Context, req *dto.AdvanceConversationRequest) (*dto.AdvanceConversationResponse, error)
	Reset(ctx context.Context, req *dto.ResetConversationRequest) error
}

type conversationService struct {
	uowFactory     unitofwork.RepositoryFactory
	machine        *conversation.Machine
	locker         *conversation.SessionLocker
	summaryCache   *memory.SummaryCache
	natsPublisher  *pktNats.Publisher
	alertHub       *websocket.Hub
	emailService   mailer.IEmailService
	salesTeamEmail string
	logger         logger.ILogger
}

func NewConversationService(
	uowFactory unitofwork.RepositoryFactory,
	machine *conversation.Machine,
	summaryCache *memory.SummaryCache,
	natsPublisher *pktNats.Publisher,
	alertHub *websocket.Hub,
	emailService mailer.IEmailService,
	salesTeamEmail string,
	log logger.ILogger,
) IConversationService {
	return &conversationService{
		uowFactory:     uowFactory,
		machine:        machine,
		locker:         conversation.NewSessionLocker(),
		summaryCache:   summaryCache,
		natsPublisher:  natsPublisher,
		alertHub:       alertHub,
		emailService:   emailService,
		salesTeamEmail: salesTeamEmail,
		logger:         log,
	}
}

// Advance processes one visitor message. Turns for the same session key are
// serialized locally and guarded by the session row's version, so two racing
// instances cannot both win a write.
func (s *conversationService) Advance(ctx context.Context, req *dto.AdvanceConversationRequest) (*dto.AdvanceConversationResponse, error) {
	unlock := s.locker.Lock(req.SessionKey)
	defer unlock()

	summary, err := s.loadSummary(ctx, req.TenantId, req.PageURL)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		// No enriched content for this page yet. The widget falls back to
		// its unstructured path.
		return &dto.AdvanceConversationResponse{Responded: false, Step: conversation.StepIdle}, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	turn, session, err := s.advanceOnce(ctx, uow, req, summary)
	if errors.Is(err, contract.ErrStaleSession) {
		// Another turn won the race; replay against the fresh row.
		s.logger.Warn("Conversation", "Stale session write, replaying turn", map[string]interface{}{
			"session_key": req.SessionKey,
		})
		turn, session, err = s.advanceOnce(ctx, uow, req, summary)
	}
	if err != nil {
		return nil, err
	}

	for _, alert := range turn.Alerts {
		s.dispatchAlert(ctx, session, alert)
	}

	if turn.Kind == conversation.TurnNoResponse {
		return &dto.AdvanceConversationResponse{Responded: false, Step: session.Step}, nil
	}
	return &dto.AdvanceConversationResponse{
		Responded:             true,
		Message:               turn.Message,
		Options:               turn.Options,
		Step:                  turn.NextStep,
		ShowBookingAffordance: turn.ShowBookingAffordance,
	}, nil
}

func (s *conversationService) advanceOnce(ctx context.Context, uow unitofwork.UnitOfWork, req *dto.AdvanceConversationRequest, summary *entity.StructuredSummary) (*conversation.Turn, *entity.SessionState, error) {
	session, created, err := s.loadOrCreateSession(ctx, uow, req)
	if err != nil {
		return nil, nil, err
	}

	if !created && session.UpdatedAt != nil && time.Since(*session.UpdatedAt) > sessionIdleReset {
		resetSession(session)
	}

	turn := s.machine.Advance(session, summary, req.Message)

	if err := uow.SessionRepository().UpdateVersioned(ctx, session); err != nil {
		return nil, nil, err
	}

	return turn, session, nil
}

func (s *conversationService) Reset(ctx context.Context, req *dto.ResetConversationRequest) error {
	unlock := s.locker.Lock(req.SessionKey)
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.BySessionKey{SessionKey: req.SessionKey})
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	resetSession(session)
	return uow.SessionRepository().UpdateVersioned(ctx, session)
}

func (s *conversationService) loadSummary(ctx context.Context, tenantId uuid.UUID, pageURL string) (*entity.StructuredSummary, error) {
	if cached, found := s.summaryCache.Get(tenantId, pageURL); found {
		return cached, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	summary, err := uow.SummaryRepository().FindOne(ctx,
		specification.ByTenantID{TenantID: tenantId},
		specification.ByPageURL{PageURL: pageURL},
	)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		s.summaryCache.Save(summary)
	}
	return summary, nil
}

func (s *conversationService) loadOrCreateSession(ctx context.Context, uow unitofwork.UnitOfWork, req *dto.AdvanceConversationRequest) (*entity.SessionState, bool, error) {
	session, err := uow.SessionRepository().FindOne(ctx, specification.BySessionKey{SessionKey: req.SessionKey})
	if err != nil {
		return nil, false, err
	}
	if session != nil {
		return session, false, nil
	}

	session = &entity.SessionState{
		Id:         uuid.New(),
		TenantId:   req.TenantId,
		SessionKey: req.SessionKey,
		PageURL:    req.PageURL,
		Step:       conversation.StepIdle,
		CreatedAt:  time.Now(),
	}
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// dispatchAlert notifies the sales side out of band. Delivery failures are
// logged, never surfaced to the visitor.
func (s *conversationService) dispatchAlert(ctx context.Context, session *entity.SessionState, alert conversation.Alert) {
	switch alert.Type {
	case conversation.AlertHighRiskSelected:
		event := events.SalesAlertEvent{
			TenantId:      session.TenantId,
			SessionKey:    session.SessionKey,
			PageURL:       session.PageURL,
			OptionLabel:   alert.OptionLabel,
			Tags:          alert.Tags,
			WorkflowClass: alert.WorkflowClass,
			RaisedAt:      time.Now(),
		}
		if err := s.natsPublisher.Publish(ctx, event); err != nil {
			s.logger.Error("Conversation", "Failed to publish sales alert", map[string]interface{}{"error": err.Error()})
		}
		s.alertHub.SendAlert(session.TenantId, websocket.AlertMessage{
			Type:          "sales_alert",
			SessionKey:    session.SessionKey,
			PageURL:       session.PageURL,
			OptionLabel:   alert.OptionLabel,
			WorkflowClass: alert.WorkflowClass,
			RaisedAt:      event.RaisedAt,
		})
		if s.salesTeamEmail != "" {
			go func() {
				if err := s.emailService.SendHighRiskAlert(s.salesTeamEmail, session.PageURL, alert.OptionLabel, alert.WorkflowClass); err != nil {
					s.logger.Error("Conversation", "High-risk alert email failed", map[string]interface{}{"error": err.Error()})
				}
			}()
		}

	case conversation.AlertHandoffCompleted:
		event := events.HandoffCompletedEvent{
			TenantId:      session.TenantId,
			SessionKey:    session.SessionKey,
			PageURL:       session.PageURL,
			Name:          alert.CollectedFields.Name,
			Email:         alert.CollectedFields.Email,
			Details:       alert.CollectedFields.Details,
			Timeline:      alert.CollectedFields.Timeline,
			OptionLabel:   alert.OptionLabel,
			WorkflowClass: alert.WorkflowClass,
			CompletedAt:   time.Now(),
		}
		if err := s.natsPublisher.Publish(ctx, event); err != nil {
			s.logger.Error("Conversation", "Failed to publish handoff event", map[string]interface{}{"error": err.Error()})
		}
		s.alertHub.SendAlert(session.TenantId, websocket.AlertMessage{
			Type:          "handoff_completed",
			SessionKey:    session.SessionKey,
			PageURL:       session.PageURL,
			OptionLabel:   alert.OptionLabel,
			WorkflowClass: alert.WorkflowClass,
			Fields: map[string]interface{}{
				"name":     alert.CollectedFields.Name,
				"email":    alert.CollectedFields.Email,
				"timeline": alert.CollectedFields.Timeline,
			},
			RaisedAt: event.CompletedAt,
		})
		if s.salesTeamEmail != "" {
			go func() {
				lead := mailer.HandoffLead{
					Name:          alert.CollectedFields.Name,
					Email:         alert.CollectedFields.Email,
					Details:       alert.CollectedFields.Details,
					Timeline:      alert.CollectedFields.Timeline,
					PageURL:       session.PageURL,
					OptionLabel:   alert.OptionLabel,
					WorkflowClass: alert.WorkflowClass,
				}
				if err := s.emailService.SendHandoffNotification(s.salesTeamEmail, lead); err != nil {
					s.logger.Error("Conversation", "Handoff email failed", map[string]interface{}{"error": err.Error()})
				}
			}()
		}
	}
}

func resetSession(session *entity.SessionState) {
	session.Step = conversation.StepIdle
	session.CurrentSectionName = ""
	session.FollowUpCount = 0
	session.SelectedLeadOption = nil
	session.SelectedSalesOption = nil
	session.IsHighRiskFlag = false
	session.CollectedFields = entity.CollectedFields{}
}
