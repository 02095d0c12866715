package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"pensionguru/backend/internal/ai"
	"pensionguru/backend/internal/store"
)

// ProfileSummary renders the stored facts as a single line for the system
// message. A nil profile means the user has none yet.
func ProfileSummary(profile *store.UserProfile) string {
	if profile == nil {
		return "User Profile: No profile information stored yet."
	}

	parts := make([]string, 0, 6)
	if profile.Region != nil {
		parts = append(parts, "Region: "+*profile.Region)
	}
	if profile.Age != nil {
		parts = append(parts, "Age: "+strconv.Itoa(*profile.Age))
	}
	if profile.Income != nil {
		parts = append(parts, "Income: "+FormatIncome(profile, *profile.Income))
	}
	if profile.RetirementAge != nil {
		parts = append(parts, "Desired Retirement Age: "+strconv.Itoa(*profile.RetirementAge))
	}
	if profile.RiskProfile != nil {
		parts = append(parts, "Risk Tolerance: "+*profile.RiskProfile)
	}
	if profile.ContributionYears != nil {
		parts = append(parts, "PRSI Contribution Years: "+strconv.Itoa(*profile.ContributionYears))
	}

	if len(parts) == 0 {
		return "User Profile: No specific details stored in profile yet."
	}
	return "User Profile Summary: " + strings.Join(parts, "; ")
}

// FormatIncome prints an amount with thousands separators and the currency of
// the user's region: pounds for the UK, euro otherwise.
func FormatIncome(profile *store.UserProfile, amount int) string {
	currency := "€"
	if profile != nil && profile.Region != nil && *profile.Region == store.RegionUK {
		currency = "£"
	}
	return currency + humanize.Comma(int64(amount))
}

// SystemMessage fills the tone slot of the directive and appends the profile
// summary after a blank line.
func SystemMessage(directive, tone string, profile *store.UserProfile) string {
	return strings.ReplaceAll(directive, ToneInstructionPlaceholder, ToneDirective(tone)) +
		"\n\n" + ProfileSummary(profile)
}

// Assemble builds the message list sent to the completion client: the system
// message, the history window, then the current user message.
func Assemble(
	logger *zap.Logger,
	directive string,
	tone string,
	profile *store.UserProfile,
	history []store.ChatMessage,
	current string,
) []ai.Message {
	if logger == nil {
		logger = zap.NewNop()
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: SystemMessage(directive, tone, profile)})
	for _, msg := range history {
		if !store.ValidRole(msg.Role) {
			logger.Warn("skipping history message with invalid role",
				zap.String("user_id", msg.UserID),
				zap.Int64("message_id", msg.ID),
				zap.String("role", msg.Role),
			)
			continue
		}
		messages = append(messages, ai.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: current})
	return messages
}

// Greeting answers the session-open sentinel without calling the model.
func Greeting(name string, profile *store.UserProfile) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "there"
	}
	if profile != nil {
		return fmt.Sprintf(
			"Welcome back, %s! It's good to see you again. Just to refresh, here's what I remember: %s. How can I assist you today?",
			name,
			ProfileSummary(profile),
		)
	}
	return fmt.Sprintf(
		"Hello %s, I'm Pension Guru, here to help with your retirement planning. "+
			"To get started and give you the most relevant information, could you let me know if you're primarily based in the UK or Ireland?",
		name,
	)
}
