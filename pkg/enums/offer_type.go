package enums

import "fmt"

// OfferType classifies a pack promotion.
type OfferType string

const (
	OfferTypeDiscount OfferType = "discount"
	OfferTypeFreeItem OfferType = "free_item"
	OfferTypeBundle   OfferType = "bundle"
)

func (o OfferType) IsValid() bool {
	switch o {
	case OfferTypeDiscount, OfferTypeFreeItem, OfferTypeBundle:
		return true
	}
	return false
}

// AffectsPrice reports whether the offer changes the order total.
func (o OfferType) AffectsPrice() bool {
	return o == OfferTypeDiscount
}

func ParseOfferType(value string) (OfferType, error) {
	o := OfferType(value)
	if !o.IsValid() {
		return "", fmt.Errorf("invalid offer type %q", value)
	}
	return o, nil
}
