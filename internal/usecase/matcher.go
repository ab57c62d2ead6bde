package usecase

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/pkg/utils"
)

// DefaultMaxListings bounds the number of cards evaluated per cycle.
const DefaultMaxListings = 30

// MatchResult is the outcome of one matcher pass.
type MatchResult struct {
	Checked        int
	AlreadySeen    int
	Matched        int
	DuplicateLinks int
	Invalid        int

	// Matches are in the same relative order as the input listings.
	Matches []entity.Match
	// Seen is the updated dedup state; the input map is left untouched.
	Seen entity.SeenRecords
	// TotalFound is the updated all-time match counter.
	TotalFound int
}

// Matcher finds the listings that are new and pass a tracked filter.
type Matcher struct {
	maxListings int
	now         func() time.Time
}

// NewMatcher creates a Matcher that evaluates at most maxListings cards per pass.
func NewMatcher(maxListings int) *Matcher {
	if maxListings <= 0 {
		maxListings = DefaultMaxListings
	}
	return &Matcher{maxListings: maxListings, now: time.Now}
}

type compiledFilter struct {
	filter  entity.Filter
	pattern *regexp.Regexp
}

// compileFilters builds case-insensitive matchers. A pattern that is not a
// valid regular expression is matched literally.
func compileFilters(filters []entity.Filter) []compiledFilter {
	compiled := make([]compiledFilter, 0, len(filters))
	for _, f := range filters {
		if strings.TrimSpace(f.Model) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + f.Model)
		if err != nil {
			slog.Warn("Filter is not a valid pattern, matching it literally", "model", f.Model, "error", err)
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(f.Model))
		}
		compiled = append(compiled, compiledFilter{filter: f, pattern: re})
	}
	return compiled
}

// firstMatch returns the first filter whose pattern matches the title and
// whose ceiling, if any, admits the price. A zero price is never rejected.
func firstMatch(filters []compiledFilter, title string, price int) (entity.Filter, bool) {
	for _, cf := range filters {
		if !cf.pattern.MatchString(title) {
			continue
		}
		if cf.filter.MaxPrice != nil && price > 0 && price > *cf.filter.MaxPrice {
			slog.Debug("Price too high for filter", "model", cf.filter.Model, "price", price, "max_price", *cf.filter.MaxPrice)
			continue
		}
		return cf.filter, true
	}
	return entity.Filter{}, false
}

// Match runs one pass over raw listings. Only the first maxListings cards are
// evaluated; the rest are neither matched nor marked as seen.
func (m *Matcher) Match(raw []entity.RawListing, filters []entity.Filter, seen entity.SeenRecords, totalFound int) MatchResult {
	res := MatchResult{
		Seen:       seen.Clone(),
		TotalFound: totalFound,
	}

	if len(raw) > m.maxListings {
		raw = raw[:m.maxListings]
	}

	compiled := compileFilters(filters)
	links := res.Seen.Links()

	for _, card := range raw {
		res.Checked++

		listing, ok := extractListing(card)
		if !ok && listing.ID == "" {
			res.Invalid++
			continue
		}

		if _, found := res.Seen[listing.ID]; found {
			res.AlreadySeen++
			continue
		}

		if !ok {
			res.Invalid++
			continue
		}

		filter, matched := firstMatch(compiled, listing.Title, listing.PriceValue)
		if !matched {
			continue
		}

		if _, dup := links[listing.Link]; dup {
			res.DuplicateLinks++
			continue
		}

		res.Matches = append(res.Matches, entity.Match{Listing: listing, Filter: filter})
		res.Seen[listing.ID] = entity.SeenRecord{
			Title:     listing.Title,
			Model:     filter.Model,
			PriceText: listing.PriceText,
			Link:      listing.Link,
			FoundAt:   m.now(),
		}
		links[listing.Link] = struct{}{}
		res.Matched++
		res.TotalFound++
	}

	return res
}

// extractListing parses a raw card. A card without a link yields an empty ID;
// a card with a link but no title yields its ID and ok=false so it can still
// be recognised as already seen.
func extractListing(card entity.RawListing) (entity.Listing, bool) {
	link := strings.TrimSpace(card.Link)
	if link == "" {
		return entity.Listing{}, false
	}

	listing := entity.Listing{
		ID:              utils.ExtractListingID(link),
		Link:            link,
		Title:           strings.TrimSpace(card.Title),
		LocationAndTime: strings.TrimSpace(card.LocationAndTime),
	}
	if listing.Title == "" {
		return listing, false
	}

	listing.PriceText, listing.PriceValue = ParsePrice(card.PriceText)
	if listing.LocationAndTime == "" {
		listing.LocationAndTime = "Unknown location and time"
	}
	return listing, true
}
