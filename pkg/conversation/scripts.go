package conversation

import (
	"fmt"

	"leadqualify-be/internal/entity"
)

// Fixed conversation scripts. Kept as plain strings so the machine stays
// deterministic and testable; per-option variation comes from the generated
// diagnostic content, not from these.

const (
	followUpPrompt = "Which of these would you want to look at first?"

	closureScript = "If any of this resonates, it usually takes one short conversation to see whether it applies to your setup."

	salesOfferScript = "Given what you told me, it makes sense to loop in someone from our team directly. Want me to set that up?"

	promptName     = "Great — who should we say is asking? (Your name)"
	promptEmail    = "Thanks! What email should we reach you at?"
	promptDetails  = "Got it. Anything specific you'd like the team to prepare for? A sentence or two is enough."
	promptTimeline = "Last one: what timeline are you working with?"

	handoffClosing = "Perfect, you're all set — the team has your details and will reach out shortly. You can also grab a slot directly below."

	declineClosing = "No problem at all. I'm here if you want to pick this up again later."
)

var loopClosureOptions = []string{
	"Talk to the team",
	"Keep exploring on my own",
}

var defaultFollowUpOptions = []string{
	"See how this works",
	"What results to expect",
	"Talk to someone",
}

// diagnosticScript opens the follow-up turn with the generated diagnostic
// answer for the selected sales option, falling back to a neutral line when
// generation produced nothing for that option.
func diagnosticScript(option *entity.Option) string {
	if option != nil && option.DiagnosticAnswer != "" {
		return option.DiagnosticAnswer
	}
	return "That tells me a lot about where things stand for you — teams in that position usually have more room to improve than they expect."
}

// featureMappingScript ties the visitor's situation back to capability.
func featureMappingScript(option *entity.Option) string {
	if option == nil {
		return "Based on what you've shared, this maps directly onto the kind of workflow we help teams put in place."
	}
	if len(option.DiagnosticActionItems) > 0 {
		return option.DiagnosticActionItems[0].Narrative
	}
	return fmt.Sprintf("You mentioned %q — that maps directly onto the kind of workflow we help teams put in place.", option.Label)
}

// educationalClosing ends a not-sales-relevant branch with a short nudge.
func educationalClosing(option *entity.Option) string {
	if option != nil && option.DiagnosticAnswer != "" {
		return option.DiagnosticAnswer + "\n\nFeel free to keep exploring — ask me anything about what you see here."
	}
	return "Thanks for sharing that. Feel free to keep exploring — ask me anything about what you see here."
}

// rewordQuestion produces a deterministic rewording for the bounded re-ask.
func rewordQuestion(question string, attempt int) string {
	switch attempt {
	case 0:
		return fmt.Sprintf("Just so I point you in the right direction — %s", lowerFirst(question))
	default:
		return fmt.Sprintf("One more try, pick whichever is closest: %s", lowerFirst(question))
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] = r[0] + ('a' - 'A')
	}
	return string(r)
}
