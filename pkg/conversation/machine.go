// Package conversation advances one persisted visitor session per incoming
// message against the page's enriched question bank. The machine is pure
// over its inputs: it mutates the passed session, appends history, and
// reports out-of-band alerts for the caller to dispatch.
package conversation

import (
	"strings"
	"time"

	"leadqualify-be/internal/entity"
	"leadqualify-be/pkg/enrich/workflow"
)

// Conversation steps.
const (
	StepIdle                 = "idle"
	StepLeadQuestion         = "lead_question"
	StepSalesQuestion        = "sales_question"
	StepFollowUpQuestion     = "follow_up_question"
	StepLoopClosure          = "loop_closure"
	StepSalesHandoffConfirm  = "sales_handoff_confirm"
	StepSalesHandoffName     = "sales_handoff_name"
	StepSalesHandoffEmail    = "sales_handoff_email"
	StepSalesHandoffDetails  = "sales_handoff_details"
	StepSalesHandoffTimeline = "sales_handoff_timeline"
	StepSalesHandoffEnd      = "sales_handoff_end"
)

const maxFollowUps = 2

// Alert types raised out of band.
const (
	AlertHighRiskSelected = "high_risk_selected"
	AlertHandoffCompleted = "handoff_completed"
)

// Alert is an out-of-band notification the caller must dispatch.
type Alert struct {
	Type            string
	OptionLabel     string
	Tags            []string
	WorkflowClass   string
	CollectedFields entity.CollectedFields
}

// TurnKind distinguishes a structured reply from the deliberate silent exit.
type TurnKind int

const (
	// TurnStructured carries a message for the visitor.
	TurnStructured TurnKind = iota
	// TurnNoResponse tells the caller to fall back to unstructured handling.
	// It is a contract, not an error.
	TurnNoResponse
)

// Turn is the outcome of one advance.
type Turn struct {
	Kind                  TurnKind
	Message               string
	Options               []string
	NextStep              string
	ShowBookingAffordance bool
	Alerts                []Alert
}

func noResponse() *Turn {
	return &Turn{Kind: TurnNoResponse}
}

type Machine struct {
	now func() time.Time
}

func NewMachine() *Machine {
	return &Machine{now: time.Now}
}

// Advance processes one incoming message for the session against the page
// summary. The session is mutated in place; the caller persists it.
func (m *Machine) Advance(session *entity.SessionState, summary *entity.StructuredSummary, message string) *Turn {
	if session.Step == "" {
		session.Step = StepIdle
	}

	switch session.Step {
	case StepIdle:
		return m.startConversation(session, summary)
	case StepLeadQuestion:
		return m.handleLeadReply(session, summary, message)
	case StepSalesQuestion:
		return m.handleSalesReply(session, summary, message)
	case StepFollowUpQuestion:
		return m.handleFollowUpReply(session, message)
	case StepLoopClosure:
		return m.handleLoopClosure(session, message)
	case StepSalesHandoffConfirm:
		return m.handleHandoffConfirm(session, message)
	case StepSalesHandoffName:
		return m.handleHandoffField(session, message, StepSalesHandoffEmail, promptEmail)
	case StepSalesHandoffEmail:
		return m.handleHandoffField(session, message, StepSalesHandoffDetails, promptDetails)
	case StepSalesHandoffDetails:
		return m.handleHandoffField(session, message, StepSalesHandoffTimeline, promptTimeline)
	case StepSalesHandoffTimeline:
		return m.completeHandoff(session, message)
	default:
		// Unknown step in a stored record resets rather than wedges.
		session.Step = StepIdle
		return m.startConversation(session, summary)
	}
}

func (m *Machine) startConversation(session *entity.SessionState, summary *entity.StructuredSummary) *Turn {
	section := firstViableSection(summary)
	if section == nil {
		return noResponse()
	}
	question := section.LeadQuestions[0]

	session.CurrentSectionName = section.SectionName
	session.Step = StepLeadQuestion
	session.FollowUpCount = 0
	m.appendHistory(session, entity.HistoryEntry{
		Step:         StepLeadQuestion,
		SectionName:  section.SectionName,
		QuestionText: question.QuestionText,
	})

	return &Turn{
		Message:  question.QuestionText,
		Options:  optionLabels(question.Options),
		NextStep: StepLeadQuestion,
	}
}

func (m *Machine) handleLeadReply(session *entity.SessionState, summary *entity.StructuredSummary, message string) *Turn {
	section := sectionByName(summary, session.CurrentSectionName)
	if section == nil {
		section = firstViableSection(summary)
	}
	if section == nil {
		return noResponse()
	}
	question := section.LeadQuestions[0]

	matched := MatchOption(message, question.Options)
	if matched == nil {
		return m.retryQuestion(session, question, message)
	}

	session.SelectedLeadOption = matched
	session.FollowUpCount = 0

	var alerts []Alert
	if alert := m.flagHighRisk(session, matched); alert != nil {
		alerts = append(alerts, *alert)
	}
	m.appendHistory(session, entity.HistoryEntry{
		Step:              StepLeadQuestion,
		SectionName:       section.SectionName,
		QuestionText:      question.QuestionText,
		OptionSelected:    matched.Label,
		TagsApplied:       matched.Tags,
		WorkflowTriggered: matched.WorkflowClass,
		InputText:         message,
	})

	if workflow.IsSalesRelevant(matched.WorkflowClass) {
		salesQuestion := section.SalesQuestions[0]
		session.Step = StepSalesQuestion
		m.appendHistory(session, entity.HistoryEntry{
			Step:         StepSalesQuestion,
			SectionName:  section.SectionName,
			QuestionText: salesQuestion.QuestionText,
		})
		return &Turn{
			Message:  salesQuestion.QuestionText,
			Options:  optionLabels(salesQuestion.Options),
			NextStep: StepSalesQuestion,
			Alerts:   alerts,
		}
	}

	session.Step = StepIdle
	return &Turn{
		Message:  educationalClosing(matched),
		NextStep: StepIdle,
		Alerts:   alerts,
	}
}

func (m *Machine) handleSalesReply(session *entity.SessionState, summary *entity.StructuredSummary, message string) *Turn {
	section := sectionByName(summary, session.CurrentSectionName)
	if section == nil {
		return noResponse()
	}
	question := section.SalesQuestions[0]

	matched := MatchOption(message, question.Options)
	if matched == nil {
		return m.retryQuestion(session, question, message)
	}

	session.SelectedSalesOption = matched
	session.FollowUpCount = 0

	var alerts []Alert
	if alert := m.flagHighRisk(session, matched); alert != nil {
		alerts = append(alerts, *alert)
	}

	session.Step = StepFollowUpQuestion
	m.appendHistory(session, entity.HistoryEntry{
		Step:              StepFollowUpQuestion,
		SectionName:       section.SectionName,
		QuestionText:      question.QuestionText,
		OptionSelected:    matched.Label,
		TagsApplied:       matched.Tags,
		WorkflowTriggered: matched.WorkflowClass,
		InputText:         message,
	})

	return &Turn{
		Message:  diagnosticScript(matched) + "\n\n" + followUpPrompt,
		Options:  followUpOptions(matched),
		NextStep: StepFollowUpQuestion,
		Alerts:   alerts,
	}
}

func (m *Machine) handleFollowUpReply(session *entity.SessionState, message string) *Turn {
	m.appendHistory(session, entity.HistoryEntry{
		Step:      StepFollowUpQuestion,
		InputText: message,
	})

	script := featureMappingScript(session.SelectedSalesOption) + "\n\n" + closureScript

	if session.IsHighRiskFlag {
		session.Step = StepSalesHandoffConfirm
		return &Turn{
			Message:  script + "\n\n" + salesOfferScript,
			Options:  []string{"Yes, connect me", "Not right now"},
			NextStep: StepSalesHandoffConfirm,
		}
	}

	session.Step = StepLoopClosure
	return &Turn{
		Message:  script,
		Options:  loopClosureOptions,
		NextStep: StepLoopClosure,
	}
}

func (m *Machine) handleLoopClosure(session *entity.SessionState, message string) *Turn {
	if !containsSalesIntent(message) {
		return noResponse()
	}

	session.Step = StepSalesHandoffName
	m.appendHistory(session, entity.HistoryEntry{
		Step:      StepSalesHandoffName,
		InputText: message,
	})
	return &Turn{
		Message:  promptName,
		NextStep: StepSalesHandoffName,
	}
}

func (m *Machine) handleHandoffConfirm(session *entity.SessionState, message string) *Turn {
	m.appendHistory(session, entity.HistoryEntry{
		Step:      StepSalesHandoffConfirm,
		InputText: message,
	})

	if isAffirmative(message) {
		session.Step = StepSalesHandoffName
		return &Turn{
			Message:  promptName,
			NextStep: StepSalesHandoffName,
		}
	}

	session.Step = StepIdle
	return &Turn{
		Message:  declineClosing,
		NextStep: StepIdle,
	}
}

func (m *Machine) handleHandoffField(session *entity.SessionState, message, nextStep, nextPrompt string) *Turn {
	value := strings.TrimSpace(message)
	switch session.Step {
	case StepSalesHandoffName:
		session.CollectedFields.Name = value
	case StepSalesHandoffEmail:
		session.CollectedFields.Email = value
	case StepSalesHandoffDetails:
		session.CollectedFields.Details = value
	}

	m.appendHistory(session, entity.HistoryEntry{
		Step:      session.Step,
		InputText: message,
	})
	session.Step = nextStep

	return &Turn{
		Message:  nextPrompt,
		NextStep: nextStep,
	}
}

func (m *Machine) completeHandoff(session *entity.SessionState, message string) *Turn {
	session.CollectedFields.Timeline = strings.TrimSpace(message)

	m.appendHistory(session, entity.HistoryEntry{
		Step:      StepSalesHandoffTimeline,
		InputText: message,
	})
	m.appendHistory(session, entity.HistoryEntry{Step: StepSalesHandoffEnd})

	alert := Alert{
		Type:            AlertHandoffCompleted,
		CollectedFields: session.CollectedFields,
	}
	if session.SelectedSalesOption != nil {
		alert.OptionLabel = session.SelectedSalesOption.Label
		alert.Tags = session.SelectedSalesOption.Tags
		alert.WorkflowClass = session.SelectedSalesOption.WorkflowClass
	}

	// sales_handoff_end immediately resets to idle and surfaces the booking
	// affordance to the caller.
	session.Step = StepIdle

	return &Turn{
		Message:               handoffClosing,
		NextStep:              StepIdle,
		ShowBookingAffordance: true,
		Alerts:                []Alert{alert},
	}
}

func (m *Machine) retryQuestion(session *entity.SessionState, question entity.Question, message string) *Turn {
	if session.FollowUpCount >= maxFollowUps {
		m.appendHistory(session, entity.HistoryEntry{
			Step:      session.Step,
			InputText: message,
		})
		return noResponse()
	}

	reworded := rewordQuestion(question.QuestionText, session.FollowUpCount)
	session.FollowUpCount++
	m.appendHistory(session, entity.HistoryEntry{
		Step:         session.Step,
		QuestionText: reworded,
		InputText:    message,
	})

	return &Turn{
		Message:  reworded,
		Options:  optionLabels(question.Options),
		NextStep: session.Step,
	}
}

// flagHighRisk sets the session flag and returns an alert when the selected
// option's tags signal urgency. The "critical" substring check intentionally
// also matches critical_risk.
func (m *Machine) flagHighRisk(session *entity.SessionState, option *entity.Option) *Alert {
	if !HasHighRiskTag(option.Tags) {
		return nil
	}
	session.IsHighRiskFlag = true
	return &Alert{
		Type:          AlertHighRiskSelected,
		OptionLabel:   option.Label,
		Tags:          option.Tags,
		WorkflowClass: option.WorkflowClass,
	}
}

func (m *Machine) appendHistory(session *entity.SessionState, entry entity.HistoryEntry) {
	entry.Timestamp = m.now()
	if entry.SectionName == "" {
		entry.SectionName = session.CurrentSectionName
	}
	session.History = append(session.History, entry)
}

func firstViableSection(summary *entity.StructuredSummary) *entity.Section {
	if summary == nil {
		return nil
	}
	for i := range summary.Sections {
		s := &summary.Sections[i]
		if len(s.LeadQuestions) > 0 && len(s.LeadQuestions[0].Options) > 0 &&
			len(s.SalesQuestions) > 0 && len(s.SalesQuestions[0].Options) > 0 {
			return s
		}
	}
	return nil
}

func sectionByName(summary *entity.StructuredSummary, name string) *entity.Section {
	if summary == nil || name == "" {
		return nil
	}
	for i := range summary.Sections {
		if strings.EqualFold(summary.Sections[i].SectionName, name) {
			return &summary.Sections[i]
		}
	}
	return nil
}

func optionLabels(options []entity.Option) []string {
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label
	}
	return labels
}

func followUpOptions(option *entity.Option) []string {
	if option != nil && len(option.DiagnosticActionList) > 0 {
		return option.DiagnosticActionList
	}
	return defaultFollowUpOptions
}
