package dialogue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pensionguru/backend/internal/store"
)

var (
	ukPattern             = regexp.MustCompile(`\buk\b|united kingdom`)
	agePattern            = regexp.MustCompile(`\b(\d{1,2})\s*(?:years?)?\s*old\b`)
	incomePattern         = regexp.MustCompile(`(?:€|£)\s?(\d+)\s?([kK]?)\b`)
	retirementPattern     = regexp.MustCompile(`\b(?:retire|retirement)\b.*?\b(\d{2})\b`)
	contributionPattern   = regexp.MustCompile(`\b(\d{1,2})\s+(?:years?|yrs?)\s+(?:of\s+)?(?:prsi|ni|national\s+insurance|contributions?)\b`)
	bareNumberPattern     = regexp.MustCompile(`^\d{1,2}$`)
	lowRiskPattern        = regexp.MustCompile(`\blow`)
	highRiskPattern       = regexp.MustCompile(`\bhigh`)
	mediumRiskPattern     = regexp.MustCompile(`\bmedium|\bmoderate`)
	contributionAskTopics = regexp.MustCompile(`prsi|contribution|national insurance|\bni\b`)
)

// Extractor pulls profile facts out of free text. It holds no per-user state
// and never touches a store; callers apply the returned updates.
type Extractor struct {
	logger *zap.Logger

	// legacyBareNumber accepts a lone 1-2 digit message as contribution years
	// even when the assistant did not ask for them.
	legacyBareNumber bool
}

func NewExtractor(logger *zap.Logger, legacyBareNumber bool) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger, legacyBareNumber: legacyBareNumber}
}

type extractInput struct {
	profile        *store.UserProfile
	raw            string
	lowered        string
	priorAssistant string
}

type extractRule struct {
	name string
	run  func(in extractInput) (store.FieldUpdate, bool, error)
}

// Extract evaluates every rule independently. A rule that fails or panics is
// logged and skipped; the others still run. Updates that would not change the
// profile are left out.
func (e *Extractor) Extract(userID string, profile *store.UserProfile, message, priorAssistant string) []store.FieldUpdate {
	in := extractInput{
		profile:        profile,
		raw:            message,
		lowered:        strings.ToLower(message),
		priorAssistant: strings.ToLower(priorAssistant),
	}

	rules := []extractRule{
		{name: "region", run: extractRegion},
		{name: "age", run: extractAge},
		{name: "income", run: extractIncome},
		{name: "retirement_age", run: extractRetirementAge},
		{name: "risk_profile", run: extractRiskProfile},
		{name: "contribution_years", run: e.extractContributionYears},
	}

	updates := make([]store.FieldUpdate, 0, len(rules))
	for _, rule := range rules {
		update, ok := e.runRule(userID, rule, in)
		if !ok {
			continue
		}
		if err := store.ValidateField(update.Field, update.Value); err != nil {
			e.logger.Debug("dropping out-of-range extraction",
				zap.String("user_id", userID),
				zap.String("field", string(update.Field)),
				zap.Any("value", update.Value),
			)
			continue
		}
		if unchanged(profile, update) {
			continue
		}
		updates = append(updates, update)
	}
	return updates
}

func (e *Extractor) runRule(userID string, rule extractRule, in extractInput) (update store.FieldUpdate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction rule panicked",
				zap.String("user_id", userID),
				zap.String("rule", rule.name),
				zap.Any("panic", r),
			)
			update, ok = store.FieldUpdate{}, false
		}
	}()

	update, ok, err := rule.run(in)
	if err != nil {
		e.logger.Debug("extraction rule failed",
			zap.String("user_id", userID),
			zap.String("rule", rule.name),
			zap.Error(err),
		)
		return store.FieldUpdate{}, false
	}
	return update, ok
}

func extractRegion(in extractInput) (store.FieldUpdate, bool, error) {
	if in.profile != nil && in.profile.Region != nil {
		return store.FieldUpdate{}, false, nil
	}
	switch {
	case strings.Contains(in.lowered, "ireland"):
		return store.FieldUpdate{Field: store.FieldRegion, Value: store.RegionIreland}, true, nil
	case ukPattern.MatchString(in.lowered):
		return store.FieldUpdate{Field: store.FieldRegion, Value: store.RegionUK}, true, nil
	}
	return store.FieldUpdate{}, false, nil
}

func extractAge(in extractInput) (store.FieldUpdate, bool, error) {
	match := agePattern.FindStringSubmatch(in.lowered)
	if match == nil {
		return store.FieldUpdate{}, false, nil
	}
	age, err := strconv.Atoi(match[1])
	if err != nil {
		return store.FieldUpdate{}, false, err
	}
	return store.FieldUpdate{Field: store.FieldAge, Value: age}, true, nil
}

func extractIncome(in extractInput) (store.FieldUpdate, bool, error) {
	match := incomePattern.FindStringSubmatch(strings.ReplaceAll(in.raw, ",", ""))
	if match == nil {
		return store.FieldUpdate{}, false, nil
	}
	income, err := strconv.Atoi(match[1])
	if err != nil {
		return store.FieldUpdate{}, false, err
	}
	if strings.EqualFold(match[2], "k") {
		if income > (1<<31-1)/1000 {
			return store.FieldUpdate{}, false, fmt.Errorf("income %dk overflows", income)
		}
		income *= 1000
	}
	return store.FieldUpdate{Field: store.FieldIncome, Value: income}, true, nil
}

func extractRetirementAge(in extractInput) (store.FieldUpdate, bool, error) {
	match := retirementPattern.FindStringSubmatch(in.lowered)
	if match == nil {
		return store.FieldUpdate{}, false, nil
	}
	age, err := strconv.Atoi(match[1])
	if err != nil {
		return store.FieldUpdate{}, false, err
	}
	return store.FieldUpdate{Field: store.FieldRetirementAge, Value: age}, true, nil
}

func extractRiskProfile(in extractInput) (store.FieldUpdate, bool, error) {
	if !strings.Contains(in.lowered, "risk") {
		return store.FieldUpdate{}, false, nil
	}
	switch {
	case lowRiskPattern.MatchString(in.lowered):
		return store.FieldUpdate{Field: store.FieldRiskProfile, Value: store.RiskLow}, true, nil
	case highRiskPattern.MatchString(in.lowered):
		return store.FieldUpdate{Field: store.FieldRiskProfile, Value: store.RiskHigh}, true, nil
	case mediumRiskPattern.MatchString(in.lowered):
		return store.FieldUpdate{Field: store.FieldRiskProfile, Value: store.RiskMedium}, true, nil
	}
	return store.FieldUpdate{}, false, nil
}

func (e *Extractor) extractContributionYears(in extractInput) (store.FieldUpdate, bool, error) {
	if match := contributionPattern.FindStringSubmatch(in.lowered); match != nil {
		years, err := strconv.Atoi(match[1])
		if err != nil {
			return store.FieldUpdate{}, false, err
		}
		return store.FieldUpdate{Field: store.FieldContributionYears, Value: years}, true, nil
	}

	trimmed := strings.TrimSpace(in.raw)
	if !bareNumberPattern.MatchString(trimmed) {
		return store.FieldUpdate{}, false, nil
	}
	if !e.legacyBareNumber && !AsksForContributionYears(in.priorAssistant) {
		return store.FieldUpdate{}, false, nil
	}
	years, err := strconv.Atoi(trimmed)
	if err != nil {
		return store.FieldUpdate{}, false, err
	}
	return store.FieldUpdate{Field: store.FieldContributionYears, Value: years}, true, nil
}

// AsksForContributionYears reports whether an assistant message asked how many
// years of PRSI or National Insurance contributions the user has.
func AsksForContributionYears(assistantMessage string) bool {
	lowered := strings.ToLower(assistantMessage)
	return strings.Contains(lowered, "years") && contributionAskTopics.MatchString(lowered)
}

func unchanged(profile *store.UserProfile, update store.FieldUpdate) bool {
	if profile == nil {
		return false
	}
	var current any
	switch update.Field {
	case store.FieldRegion:
		current = derefString(profile.Region)
	case store.FieldAge:
		current = derefInt(profile.Age)
	case store.FieldIncome:
		current = derefInt(profile.Income)
	case store.FieldRetirementAge:
		current = derefInt(profile.RetirementAge)
	case store.FieldRiskProfile:
		current = derefString(profile.RiskProfile)
	case store.FieldContributionYears:
		current = derefInt(profile.ContributionYears)
	default:
		return false
	}
	return current != nil && current == update.Value
}

func derefString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
