package enums

import "fmt"

// OrderChannel records how the customer placed the order.
type OrderChannel string

const (
	ChannelForm     OrderChannel = "form"
	ChannelWhatsApp OrderChannel = "whatsapp"
)

func (c OrderChannel) IsValid() bool {
	return c == ChannelForm || c == ChannelWhatsApp
}

func ParseOrderChannel(value string) (OrderChannel, error) {
	c := OrderChannel(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid order channel %q", value)
	}
	return c, nil
}

// ProductKind separates NFC business cards from bulk review cards.
type ProductKind string

const (
	ProductKindNFCCard    ProductKind = "nfc_card"
	ProductKindReviewCard ProductKind = "review_card"
)

func (k ProductKind) IsValid() bool {
	return k == ProductKindNFCCard || k == ProductKindReviewCard
}

func ParseProductKind(value string) (ProductKind, error) {
	k := ProductKind(value)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid product kind %q", value)
	}
	return k, nil
}

// Orientation is the print layout chosen for the card.
type Orientation string

const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
	OrientationPortrait   Orientation = "portrait"
	OrientationLandscape  Orientation = "landscape"
	OrientationSquare     Orientation = "square"
)

var orientationsByKind = map[ProductKind][]Orientation{
	ProductKindNFCCard:    {OrientationVertical, OrientationHorizontal},
	ProductKindReviewCard: {OrientationPortrait, OrientationLandscape, OrientationSquare},
}

// OrientationsFor lists the layouts a product kind can be printed in.
func OrientationsFor(kind ProductKind) []Orientation {
	return orientationsByKind[kind]
}

// AllowedFor reports whether the orientation fits the product kind.
func (o Orientation) AllowedFor(kind ProductKind) bool {
	for _, candidate := range orientationsByKind[kind] {
		if candidate == o {
			return true
		}
	}
	return false
}

// CardModel is the card finish. Only NFC cards offer non-white finishes.
type CardModel string

const (
	CardModelWhite CardModel = "white"
	CardModelBlack CardModel = "black"
	CardModelGold  CardModel = "gold"
)

func (m CardModel) IsValid() bool {
	switch m {
	case CardModelWhite, CardModelBlack, CardModelGold:
		return true
	}
	return false
}

func ParseCardModel(value string) (CardModel, error) {
	if value == "" {
		return CardModelWhite, nil
	}
	m := CardModel(value)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid card model %q", value)
	}
	return m, nil
}
