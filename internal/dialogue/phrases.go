package dialogue

import (
	"strings"

	"pensionguru/backend/internal/store"
)

// SessionOpenSentinel is sent by the client when a conversation window opens.
const SessionOpenSentinel = "__INIT__"

const ApologyReply = "I'm sorry, I encountered a technical issue trying to process that. Could you try rephrasing?"

var offerPhrases = []string{
	"would you like tips",
	"improve your pension?",
	"boost your pension?",
}

var affirmativeReplies = map[string]struct{}{
	"sure":       {},
	"yes":        {},
	"ok":         {},
	"okay":       {},
	"fine":       {},
	"yep":        {},
	"please":     {},
	"yes please": {},
}

// OffersTips reports whether an assistant reply invites a yes/no about tips.
func OffersTips(reply string) bool {
	lowered := strings.ToLower(reply)
	for _, phrase := range offerPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// IsAffirmative matches the whole message against the accepted confirmations.
// Trailing "." and "!" are ignored so "Yes!" still counts.
func IsAffirmative(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, ".! ")
	normalized = strings.Join(strings.Fields(normalized), " ")
	_, ok := affirmativeReplies[normalized]
	return ok
}

const irelandTipsReply = "Great! Here are a few common ways people in Ireland can look into boosting their State Pension:\n\n" +
	"1.  **Keep Contributing:** Working and paying PRSI for the full 40 years generally leads to the maximum pension.\n" +
	"2.  **Check for Gaps & Voluntary Contributions:** If you have gaps in your record (e.g., time abroad or not working), see if you're eligible to make voluntary contributions to fill them. You can check this on MyWelfare.ie.\n" +
	"3.  **Look into Credits:** Certain periods, like time spent caring for children or incapacitated individuals (HomeCaring Periods), or receiving some social welfare payments, might entitle you to credits that count towards your pension.\n\n" +
	"Does that make sense? It's always best to check your personal record on MyWelfare.ie or consult with Citizens Information or a financial advisor for advice tailored to you."

const ukTipsReply = "Great! Here are a few common ways people in the UK can look into boosting their State Pension:\n\n" +
	"1.  **Keep Building Qualifying Years:** You generally need 35 qualifying years of National Insurance to get the full new State Pension.\n" +
	"2.  **Fill Gaps with Voluntary Contributions:** If your NI record has gaps, you may be able to pay voluntary Class 3 contributions. Check your forecast on GOV.UK first.\n" +
	"3.  **Claim NI Credits:** Periods caring for children, looking after someone, or claiming certain benefits can earn National Insurance credits that count towards your pension.\n\n" +
	"Does that make sense? It's always best to check your State Pension forecast on GOV.UK or speak with MoneyHelper or a financial advisor for advice tailored to you."

// TipsReply returns the fixed tips text for the user's region. Users without a
// stored region get the Ireland text.
func TipsReply(profile *store.UserProfile) string {
	if profile != nil && profile.Region != nil && *profile.Region == store.RegionUK {
		return ukTipsReply
	}
	return irelandTipsReply
}
