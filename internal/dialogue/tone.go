package dialogue

import "strings"

const (
	ToneChild        = "7"
	ToneYoungTeen    = "14"
	ToneAdult        = "adult"
	ToneProfessional = "pro"
	ToneAcademic     = "genius"
)

var toneDirectives = map[string]string{
	ToneChild:        "Use very simple language, short sentences, and relatable examples a 7-year-old could understand.",
	ToneYoungTeen:    "Explain ideas like you're talking to a 14-year-old. Be clear and concrete, avoid jargon.",
	ToneAdult:        "Use plain English suitable for an average adult. Assume no special knowledge.",
	ToneProfessional: "Use financial terminology and industry language for a professional audience.",
	ToneAcademic:     "Use technical depth and precision appropriate for a professor. Do not simplify.",
}

var toneAliases = map[string]string{
	"child":        ToneChild,
	"kid":          ToneChild,
	"teen":         ToneYoungTeen,
	"professional": ToneProfessional,
	"academic":     ToneAcademic,
}

// NormalizeTone maps aliases onto the canonical tone keys. Unknown tones come
// back empty.
func NormalizeTone(tone string) string {
	key := strings.ToLower(strings.TrimSpace(tone))
	if alias, ok := toneAliases[key]; ok {
		key = alias
	}
	if _, ok := toneDirectives[key]; ok {
		return key
	}
	return ""
}

// ToneDirective returns the voice instruction for a tone, or "" for the
// default voice.
func ToneDirective(tone string) string {
	return toneDirectives[NormalizeTone(tone)]
}
