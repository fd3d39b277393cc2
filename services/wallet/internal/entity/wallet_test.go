package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryMetadata_ValidateRedemption(t *testing.T) {
	meta := EntryMetadata{Redemption: &RedemptionMeta{CustomerID: "cust-1", RewardTitle: "Free Coffee"}}

	assert.NoError(t, meta.Validate(KindEarnedFromRedemption))
}

func TestEntryMetadata_ValidateRedemption_MissingCustomer(t *testing.T) {
	meta := EntryMetadata{Redemption: &RedemptionMeta{RewardTitle: "Free Coffee"}}

	assert.Error(t, meta.Validate(KindEarnedFromRedemption))
}

func TestEntryMetadata_ValidatePurchase(t *testing.T) {
	meta := EntryMetadata{Purchase: &PurchaseMeta{SKU: string(SKUExtraParticipantSlot), Count: 3}}

	assert.NoError(t, meta.Validate(KindSpentOnParticipants))
	assert.NoError(t, meta.Validate(KindSpentOnVisibility))
	assert.NoError(t, meta.Validate(KindSpentOnPremium))
}

func TestEntryMetadata_ValidateRefund(t *testing.T) {
	meta := EntryMetadata{Refund: &RefundMeta{RefundedEntryID: "entry-1", Reason: "slots unused"}}

	assert.NoError(t, meta.Validate(KindRefund))
}

func TestEntryMetadata_WrongShapeForKind(t *testing.T) {
	purchase := EntryMetadata{Purchase: &PurchaseMeta{SKU: "x"}}
	redemption := EntryMetadata{Redemption: &RedemptionMeta{CustomerID: "cust-1"}}

	assert.Error(t, purchase.Validate(KindEarnedFromRedemption))
	assert.Error(t, redemption.Validate(KindSpentOnParticipants))
	assert.Error(t, purchase.Validate(KindRefund))
}

func TestEntryMetadata_MixedShapesRejected(t *testing.T) {
	meta := EntryMetadata{
		Redemption: &RedemptionMeta{CustomerID: "cust-1"},
		Purchase:   &PurchaseMeta{SKU: "x"},
	}

	assert.Error(t, meta.Validate(KindEarnedFromRedemption))
}

func TestEntryMetadata_UnknownKind(t *testing.T) {
	meta := EntryMetadata{}

	assert.Error(t, meta.Validate(EntryKind("bogus")))
}
