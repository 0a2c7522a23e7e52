package enums

import "testing"

func TestOrderStatusParsing(t *testing.T) {
	for _, status := range validOrderStatuses {
		got, err := ParseOrderStatus(string(status))
		if err != nil || got != status {
			t.Fatalf("expected %s to parse, got %q err=%v", status, got, err)
		}
	}
	if _, err := ParseOrderStatus("refunded"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if !OrderStatusCancelled.IsTerminal() || !OrderStatusDelivered.IsTerminal() || OrderStatusPaid.IsTerminal() {
		t.Fatal("unexpected terminal set")
	}
}

func TestOrientationAllowedFor(t *testing.T) {
	if !OrientationVertical.AllowedFor(ProductKindNFCCard) {
		t.Fatal("vertical should fit nfc cards")
	}
	if OrientationSquare.AllowedFor(ProductKindNFCCard) {
		t.Fatal("square is a review-card layout")
	}
	if !OrientationSquare.AllowedFor(ProductKindReviewCard) {
		t.Fatal("square should fit review cards")
	}
	if OrientationHorizontal.AllowedFor(ProductKindReviewCard) {
		t.Fatal("horizontal is an nfc layout")
	}
}

func TestParseCardModelDefaultsToWhite(t *testing.T) {
	m, err := ParseCardModel("")
	if err != nil || m != CardModelWhite {
		t.Fatalf("expected white default, got %q err=%v", m, err)
	}
	if _, err := ParseCardModel("silver"); err == nil {
		t.Fatal("expected silver to be rejected")
	}
}

func TestValidationStatusDecided(t *testing.T) {
	if ValidationStatusPending.IsDecided() {
		t.Fatal("pending is not decided")
	}
	if !ValidationStatusApproved.IsDecided() || !ValidationStatusRejected.IsDecided() {
		t.Fatal("approved and rejected are decided")
	}
}

func TestOfferTypeAffectsPrice(t *testing.T) {
	if !OfferTypeDiscount.AffectsPrice() || OfferTypeFreeItem.AffectsPrice() || OfferTypeBundle.AffectsPrice() {
		t.Fatal("only discounts change the total")
	}
}
