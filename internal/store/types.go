package store

import (
	"fmt"
	"time"

	"pensionguru/backend/internal/apperr"
)

const (
	RegionUK      = "UK"
	RegionIreland = "Ireland"

	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"

	PendingOfferTips = "offer_tips"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserProfile holds the facts collected about one user. A nil pointer means
// the fact has not been collected yet.
type UserProfile struct {
	UserID            string
	Region            *string
	Age               *int
	Income            *int
	RetirementAge     *int
	RiskProfile       *string
	ContributionYears *int
	PendingAction     *string
	UpdatedAt         time.Time
}

// HasPendingAction reports whether the profile currently waits on action.
func (p UserProfile) HasPendingAction(action string) bool {
	return p.PendingAction != nil && *p.PendingAction == action
}

// Apply sets one field on the in-memory copy. The value must already have
// passed ValidateField.
func (p *UserProfile) Apply(update FieldUpdate) {
	switch update.Field {
	case FieldRegion:
		p.Region = stringPtr(update.Value)
	case FieldAge:
		p.Age = intPtr(update.Value)
	case FieldIncome:
		p.Income = intPtr(update.Value)
	case FieldRetirementAge:
		p.RetirementAge = intPtr(update.Value)
	case FieldRiskProfile:
		p.RiskProfile = stringPtr(update.Value)
	case FieldContributionYears:
		p.ContributionYears = intPtr(update.Value)
	case FieldPendingAction:
		p.PendingAction = stringPtr(update.Value)
	}
}

type ChatMessage struct {
	ID        int64
	UserID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

type User struct {
	ID        string
	Name      string
	Email     *string
	CreatedAt time.Time
}

type ForgetResult struct {
	DeletedMessages int64
	DeletedProfile  bool
}

type Field string

const (
	FieldRegion            Field = "region"
	FieldAge               Field = "age"
	FieldIncome            Field = "income"
	FieldRetirementAge     Field = "retirement_age"
	FieldRiskProfile       Field = "risk_profile"
	FieldContributionYears Field = "contribution_years"
	FieldPendingAction     Field = "pending_action"
)

// FieldUpdate is one profile write. A nil Value clears the field.
type FieldUpdate struct {
	Field Field
	Value any
}

type intRange struct {
	min, max int
}

var (
	textFields = map[Field]map[string]struct{}{
		FieldRegion:        {RegionUK: {}, RegionIreland: {}},
		FieldRiskProfile:   {RiskLow: {}, RiskMedium: {}, RiskHigh: {}},
		FieldPendingAction: {PendingOfferTips: {}},
	}
	intFields = map[Field]intRange{
		FieldAge:               {18, 100},
		FieldIncome:            {0, int(^uint32(0) >> 1)},
		FieldRetirementAge:     {50, 80},
		FieldContributionYears: {0, 60},
	}
)

// ValidateField checks that value is storable in field. Column names used by
// the SQL implementations come from this whitelist only.
func ValidateField(field Field, value any) error {
	if allowed, ok := textFields[field]; ok {
		if value == nil {
			return nil
		}
		s, ok := value.(string)
		if !ok {
			return apperr.New(apperr.CodeStoreInvalidInput, fmt.Sprintf("%s expects a string", field), "field", string(field))
		}
		if _, ok := allowed[s]; !ok {
			return apperr.New(apperr.CodeStoreInvalidInput, fmt.Sprintf("%s does not accept %q", field, s), "field", string(field))
		}
		return nil
	}
	if bounds, ok := intFields[field]; ok {
		if value == nil {
			return nil
		}
		n, ok := value.(int)
		if !ok {
			return apperr.New(apperr.CodeStoreInvalidInput, fmt.Sprintf("%s expects an integer", field), "field", string(field))
		}
		if n < bounds.min || n > bounds.max {
			return apperr.New(
				apperr.CodeStoreInvalidInput,
				fmt.Sprintf("%s must be between %d and %d", field, bounds.min, bounds.max),
				"field", string(field),
				"value", n,
			)
		}
		return nil
	}
	return apperr.New(apperr.CodeStoreInvalidInput, fmt.Sprintf("unknown profile field %q", field), "field", string(field))
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

func stringPtr(value any) *string {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	return &s
}

func intPtr(value any) *int {
	n, ok := value.(int)
	if !ok {
		return nil
	}
	return &n
}
