package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendHandoffNotification(toEmail string, lead HandoffLead) error
	SendHighRiskAlert(toEmail string, pageURL, optionLabel, workflowClass string) error
}

// HandoffLead carries the contact record collected during the handoff flow.
type HandoffLead struct {
	Name          string
	Email         string
	Details       string
	Timeline      string
	PageURL       string
	OptionLabel   string
	WorkflowClass string
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

func (s *emailService) SendHandoffNotification(toEmail string, lead HandoffLead) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("New qualified lead: %s", lead.Name))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>A visitor asked to talk to the team</h2>
			<table cellpadding="6">
				<tr><td><b>Name</b></td><td>%s</td></tr>
				<tr><td><b>Email</b></td><td>%s</td></tr>
				<tr><td><b>Details</b></td><td>%s</td></tr>
				<tr><td><b>Timeline</b></td><td>%s</td></tr>
				<tr><td><b>Page</b></td><td>%s</td></tr>
				<tr><td><b>Selected option</b></td><td>%s</td></tr>
				<tr><td><b>Workflow</b></td><td>%s</td></tr>
			</table>
			<p>Reach out while the conversation is still fresh.</p>
		</div>
	`, lead.Name, lead.Email, lead.Details, lead.Timeline, lead.PageURL, lead.OptionLabel, lead.WorkflowClass)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send handoff notification to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Handoff notification sent to %s\n", toEmail)
	return nil
}

func (s *emailService) SendHighRiskAlert(toEmail string, pageURL, optionLabel, workflowClass string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "High-risk visitor signal")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>A visitor just signalled urgency</h2>
			<p>On <b>%s</b> a visitor selected:</p>
			<p style="font-size: 18px; color: #C0392B;"><b>%s</b></p>
			<p>Routed workflow: %s</p>
			<p>Check the dashboard for the live conversation.</p>
		</div>
	`, pageURL, optionLabel, workflowClass)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send high-risk alert to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] High-risk alert sent to %s\n", toEmail)
	return nil
}
