package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pensionguru/backend/internal/store"
)

func TestIsAffirmative(t *testing.T) {
	for _, msg := range []string{"yes", "Yes!", " sure ", "OK.", "okay", "yes  please", "Yep", "please", "fine"} {
		assert.True(t, IsAffirmative(msg), msg)
	}
	for _, msg := range []string{"no", "yes but how much will I get?", "maybe", "", "sure thing"} {
		assert.False(t, IsAffirmative(msg), msg)
	}
}

func TestOffersTips(t *testing.T) {
	assert.True(t, OffersTips("Your estimate is €200. Would you like tips to boost your pension?"))
	assert.True(t, OffersTips("Want to IMPROVE YOUR PENSION?"))
	assert.False(t, OffersTips("Here is how to boost your pension."))
	assert.False(t, OffersTips(""))
}

func TestTipsReplyByRegion(t *testing.T) {
	assert.Contains(t, TipsReply(nil), "MyWelfare.ie")
	assert.Contains(t, TipsReply(&store.UserProfile{Region: strPtr(store.RegionIreland)}), "PRSI")
	uk := TipsReply(&store.UserProfile{Region: strPtr(store.RegionUK)})
	assert.Contains(t, uk, "GOV.UK")
	assert.NotContains(t, uk, "PRSI")
}
