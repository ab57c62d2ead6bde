package listingparser

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/pkg/utils"
)

// Selectors locate the parts of a listing card.
type Selectors struct {
	Card     string
	Link     string
	Title    string
	Price    string
	Location string
}

// DefaultSelectors match the OLX listing grid.
var DefaultSelectors = Selectors{
	Card:     "[data-cy='l-card']",
	Link:     "a",
	Title:    "h4, h6",
	Price:    "p[data-testid='ad-price']",
	Location: "p[data-testid='location-date']",
}

// Parser extracts listing cards from a rendered listings page.
type Parser struct {
	selectors Selectors
	base      *url.URL
}

// New creates a Parser. Relative card links are resolved against baseURL.
func New(baseURL string, selectors Selectors) (*Parser, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listings url %q: %w", baseURL, err)
	}
	return &Parser{selectors: selectors, base: base}, nil
}

// Parse returns the cards of the page in document order. Missing card parts
// are left empty; deciding what to do with them is up to the caller.
func (p *Parser) Parse(r io.Reader) ([]entity.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listings page: %w", err)
	}

	cards := doc.Find(p.selectors.Card)
	listings := make([]entity.RawListing, 0, cards.Length())

	cards.Each(func(i int, card *goquery.Selection) {
		listing := entity.RawListing{
			Title:           strings.TrimSpace(card.Find(p.selectors.Title).First().Text()),
			PriceText:       strings.TrimSpace(card.Find(p.selectors.Price).First().Text()),
			LocationAndTime: strings.TrimSpace(card.Find(p.selectors.Location).First().Text()),
		}

		if href, ok := card.Find(p.selectors.Link).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			link, err := utils.ToAbsoluteURL(p.base, strings.TrimSpace(href))
			if err != nil {
				slog.Debug("Skipping malformed card link", "index", i, "href", href, "error", err)
			} else {
				listing.Link = link
			}
		}

		listings = append(listings, listing)
	})

	return listings, nil
}

// Titles returns up to n titles, for debug logging.
func Titles(listings []entity.RawListing, n int) []string {
	if n > len(listings) {
		n = len(listings)
	}
	titles := make([]string, 0, n)
	for _, l := range listings[:n] {
		titles = append(titles, l.Title)
	}
	return titles
}
