package entity

// PriceNotFound is the price text recorded when a card has no price element.
const PriceNotFound = "Price not found"

// RawListing is a listing card as read from the page, before any parsing.
// Empty fields mean the element was not found on the card.
type RawListing struct {
	Link            string
	Title           string
	PriceText       string
	LocationAndTime string
}

// Listing is a parsed listing card. It is immutable once extracted from a scrape pass.
type Listing struct {
	ID              string
	Title           string
	PriceText       string
	PriceValue      int // 0 when the price text carries no digits
	Link            string
	LocationAndTime string
}

// Match is a listing that passed a tracked filter and has not been reported before.
type Match struct {
	Listing Listing
	Filter  Filter
}
