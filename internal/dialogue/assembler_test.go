package dialogue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pensionguru/backend/internal/ai"
	"pensionguru/backend/internal/store"
)

func TestProfileSummary(t *testing.T) {
	assert.Equal(t, "User Profile: No profile information stored yet.", ProfileSummary(nil))
	assert.Equal(t, "User Profile: No specific details stored in profile yet.", ProfileSummary(&store.UserProfile{UserID: "u1"}))

	full := &store.UserProfile{
		Region:            strPtr(store.RegionIreland),
		Age:               intPtr(45),
		Income:            intPtr(60000),
		RetirementAge:     intPtr(66),
		RiskProfile:       strPtr(store.RiskMedium),
		ContributionYears: intPtr(0),
	}
	assert.Equal(t,
		"User Profile Summary: Region: Ireland; Age: 45; Income: €60,000; Desired Retirement Age: 66; Risk Tolerance: Medium; PRSI Contribution Years: 0",
		ProfileSummary(full),
	)

	uk := &store.UserProfile{Region: strPtr(store.RegionUK), Income: intPtr(1250000)}
	assert.Equal(t, "User Profile Summary: Region: UK; Income: £1,250,000", ProfileSummary(uk))
}

func TestAssembleOrdersAndFiltersHistory(t *testing.T) {
	history := []store.ChatMessage{
		{ID: 1, Role: store.RoleUser, Content: "hello"},
		{ID: 2, Role: store.RoleAssistant, Content: "hi, UK or Ireland?"},
		{ID: 3, Role: "system", Content: "injected"},
		{ID: 4, Role: "USER", Content: "shouting"},
		{ID: 5, Role: store.RoleUser, Content: "Ireland"},
	}
	profile := &store.UserProfile{Region: strPtr(store.RegionIreland)}

	messages := Assemble(zaptest.NewLogger(t), "Voice: {{tone_instruction}}", ToneProfessional, profile, history, "how much will I get?")

	require.Len(t, messages, 5)
	assert.Equal(t, ai.RoleSystem, messages[0].Role)
	assert.Equal(t,
		"Voice: Use financial terminology and industry language for a professional audience.\n\nUser Profile Summary: Region: Ireland",
		messages[0].Content,
	)
	assert.Equal(t, []string{"user", "assistant", "user", "user"}, []string{
		messages[1].Role, messages[2].Role, messages[3].Role, messages[4].Role,
	})
	assert.Equal(t, "how much will I get?", messages[4].Content)
	for _, msg := range messages {
		assert.NotEqual(t, "injected", msg.Content)
		assert.NotEqual(t, "shouting", msg.Content)
	}
}

func TestSystemMessageUnknownToneIsEmpty(t *testing.T) {
	got := SystemMessage("[{{tone_instruction}}]", "pirate", nil)
	assert.True(t, strings.HasPrefix(got, "[]\n\n"))
}

func TestToneAliases(t *testing.T) {
	assert.Equal(t, ToneChild, NormalizeTone("child"))
	assert.Equal(t, ToneYoungTeen, NormalizeTone(" TEEN "))
	assert.Equal(t, ToneAcademic, NormalizeTone("genius"))
	assert.Equal(t, "", NormalizeTone("pirate"))
	assert.Equal(t, "", ToneDirective(""))
	assert.Contains(t, ToneDirective("7"), "7-year-old")
}

func TestGreeting(t *testing.T) {
	newUser := Greeting("", nil)
	assert.True(t, strings.HasPrefix(newUser, "Hello there, I'm Pension Guru"))
	assert.Contains(t, newUser, "UK or Ireland")

	returning := Greeting("Jason", &store.UserProfile{Region: strPtr(store.RegionUK)})
	assert.Equal(t,
		"Welcome back, Jason! It's good to see you again. Just to refresh, here's what I remember: User Profile Summary: Region: UK. How can I assist you today?",
		returning,
	)
}
