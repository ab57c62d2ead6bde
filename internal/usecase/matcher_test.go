package usecase

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/olx-watcher/internal/entity"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestMatcher(limit int) *Matcher {
	m := NewMatcher(limit)
	m.now = func() time.Time { return fixedNow }
	return m
}

func price(v int) *int { return &v }

func card(id, title, priceText string) entity.RawListing {
	return entity.RawListing{
		Link:            "https://www.olx.pl/d/oferta/item-ID" + id + ".html",
		Title:           title,
		PriceText:       priceText,
		LocationAndTime: "Warszawa - Dzisiaj o 10:00",
	}
}

func TestMatchEndToEndExample(t *testing.T) {
	m := newTestMatcher(30)
	filters := []entity.Filter{{Model: "iPhone 13", MaxPrice: price(1500)}}
	raw := []entity.RawListing{{Link: "http://x/A", Title: "iPhone 13 Pro 128GB", PriceText: "1 400 zł"}}

	res := m.Match(raw, filters, entity.SeenRecords{}, 7)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 8, res.TotalFound)

	got := res.Matches[0]
	assert.Equal(t, "http://x/A", got.Listing.ID)
	assert.Equal(t, 1400, got.Listing.PriceValue)
	assert.Equal(t, "iPhone 13", got.Filter.Model)

	rec, ok := res.Seen["http://x/A"]
	require.True(t, ok)
	assert.Equal(t, entity.SeenRecord{
		Title:     "iPhone 13 Pro 128GB",
		Model:     "iPhone 13",
		PriceText: "1 400 zł",
		Link:      "http://x/A",
		FoundAt:   fixedNow,
	}, rec)
}

func TestMatchUsesIDFromOfferURL(t *testing.T) {
	m := newTestMatcher(30)
	res := m.Match([]entity.RawListing{card("A", "iPhone 13", "1 000 zł")},
		[]entity.Filter{{Model: "iphone 13"}}, nil, 0)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, "A", res.Matches[0].Listing.ID)
	assert.Contains(t, res.Seen, "A")
}

func TestMatchDedupIdempotence(t *testing.T) {
	m := newTestMatcher(30)
	filters := []entity.Filter{{Model: "iPhone"}}
	raw := []entity.RawListing{
		card("A", "iPhone 12", "900 zł"),
		card("B", "iPhone 13", "1 200 zł"),
		card("C", "Samsung S21", "800 zł"),
	}

	first := m.Match(raw, filters, entity.SeenRecords{}, 0)
	require.Equal(t, 2, first.Matched)

	second := m.Match(raw, filters, first.Seen, first.TotalFound)
	assert.Empty(t, second.Matches)
	assert.Equal(t, 0, second.Matched)
	assert.Equal(t, 2, second.AlreadySeen)
	assert.Equal(t, first.TotalFound, second.TotalFound)
	assert.Len(t, second.Seen, 2)
}

func TestMatchFilterOrderIsAuthoritative(t *testing.T) {
	m := newTestMatcher(30)
	filters := []entity.Filter{
		{Model: "iPhone 13", MaxPrice: price(1500)},
		{Model: "iPhone", MaxPrice: price(3000)},
	}

	res := m.Match([]entity.RawListing{card("A", "iPhone 13 mini", "1 000 zł")}, filters, nil, 0)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, "iPhone 13", res.Matches[0].Filter.Model)
	assert.Equal(t, "iPhone 13", res.Seen["A"].Model)
}

func TestMatchPriceCeiling(t *testing.T) {
	m := newTestMatcher(30)
	raw := []entity.RawListing{card("A", "iPhone 11 64GB", "600 zł")}

	t.Run("rejected by the only filter", func(t *testing.T) {
		res := m.Match(raw, []entity.Filter{{Model: "iPhone 11", MaxPrice: price(500)}}, nil, 0)
		assert.Empty(t, res.Matches)
		assert.Empty(t, res.Seen)
	})

	t.Run("falls through to a later filter", func(t *testing.T) {
		filters := []entity.Filter{
			{Model: "iPhone 11", MaxPrice: price(500)},
			{Model: "iphone"},
		}
		res := m.Match(raw, filters, nil, 0)
		require.Len(t, res.Matches, 1)
		assert.Equal(t, "iphone", res.Matches[0].Filter.Model)
	})

	t.Run("equal to the ceiling passes", func(t *testing.T) {
		res := m.Match(raw, []entity.Filter{{Model: "iPhone 11", MaxPrice: price(600)}}, nil, 0)
		assert.Len(t, res.Matches, 1)
	})
}

func TestMatchUnparseablePriceIsNotRejected(t *testing.T) {
	m := newTestMatcher(30)
	filters := []entity.Filter{{Model: "iPhone", MaxPrice: price(1)}}
	raw := []entity.RawListing{
		card("A", "iPhone X", "Zamienię"),
		card("B", "iPhone XS", ""),
	}

	res := m.Match(raw, filters, nil, 0)

	require.Len(t, res.Matches, 2)
	assert.Equal(t, 0, res.Matches[0].Listing.PriceValue)
	assert.Equal(t, "Zamienię", res.Matches[0].Listing.PriceText)
	assert.Equal(t, entity.PriceNotFound, res.Matches[1].Listing.PriceText)
}

func TestMatchDuplicateLinkSuppression(t *testing.T) {
	m := newTestMatcher(30)
	filters := []entity.Filter{{Model: "iPhone"}}

	t.Run("against stored records", func(t *testing.T) {
		seen := entity.SeenRecords{
			"old-id": {Title: "iPhone 12", Link: "https://www.olx.pl/d/oferta/same.html"},
		}
		raw := []entity.RawListing{{Link: "https://www.olx.pl/d/oferta/same.html", Title: "iPhone 12", PriceText: "1 zł"}}

		res := m.Match(raw, filters, seen, 0)
		assert.Empty(t, res.Matches)
		assert.Equal(t, 1, res.DuplicateLinks)
		assert.Len(t, res.Seen, 1)
	})

	t.Run("within one batch", func(t *testing.T) {
		link := "https://www.olx.pl/d/oferta/iphone-IDsame.html"
		raw := []entity.RawListing{
			{Link: link, Title: "iPhone 12", PriceText: "1 000 zł"},
			{Link: link, Title: "iPhone 12", PriceText: "1 000 zł"},
		}

		res := m.Match(raw, filters, nil, 0)
		assert.Len(t, res.Matches, 1)
		assert.Len(t, res.Seen, 1)
		assert.Equal(t, 1, res.TotalFound)
	})

	t.Run("different ids same link", func(t *testing.T) {
		seen := entity.SeenRecords{
			"X1": {Link: "https://www.olx.pl/d/oferta/iphone-IDnew.html"},
		}
		raw := []entity.RawListing{{Link: "https://www.olx.pl/d/oferta/iphone-IDnew.html", Title: "iPhone 14", PriceText: "3 000 zł"}}

		res := m.Match(raw, filters, seen, 0)
		assert.Empty(t, res.Matches)
		assert.NotContains(t, res.Seen, "new")
	})
}

func TestMatchCapEnforcement(t *testing.T) {
	m := newTestMatcher(30)
	raw := make([]entity.RawListing, 0, 50)
	for i := 1; i <= 50; i++ {
		raw = append(raw, card(fmt.Sprintf("N%d", i), "iPhone 15", "4 000 zł"))
	}

	res := m.Match(raw, []entity.Filter{{Model: "iPhone"}}, nil, 0)

	assert.Equal(t, 30, res.Checked)
	assert.Equal(t, 30, res.Matched)
	assert.Len(t, res.Seen, 30)
	assert.Contains(t, res.Seen, "N30")
	assert.NotContains(t, res.Seen, "N31")
	assert.NotContains(t, res.Seen, "N50")
}

func TestMatchPreservesInputOrder(t *testing.T) {
	m := newTestMatcher(30)
	raw := []entity.RawListing{
		card("C", "iPhone 13", "1 zł"),
		card("A", "Pixel 7", "1 zł"),
		card("B", "iPhone 12", "1 zł"),
	}

	res := m.Match(raw, []entity.Filter{{Model: "pixel"}, {Model: "iphone"}}, nil, 0)

	require.Len(t, res.Matches, 3)
	assert.Equal(t, "C", res.Matches[0].Listing.ID)
	assert.Equal(t, "A", res.Matches[1].Listing.ID)
	assert.Equal(t, "B", res.Matches[2].Listing.ID)
}

func TestMatchSkipsBrokenCards(t *testing.T) {
	m := newTestMatcher(30)
	raw := []entity.RawListing{
		{Title: "iPhone 13 without link", PriceText: "1 zł"},
		{Link: "https://www.olx.pl/d/oferta/a-IDnotitle.html", PriceText: "1 zł"},
		card("OK", "iPhone 13", "1 zł"),
	}

	res := m.Match(raw, []entity.Filter{{Model: "iPhone"}}, nil, 0)

	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 2, res.Invalid)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "OK", res.Matches[0].Listing.ID)
}

func TestMatchSeenCardWithoutTitleCountsAsSeen(t *testing.T) {
	m := newTestMatcher(30)
	seen := entity.SeenRecords{"A": {Link: "https://www.olx.pl/d/oferta/item-IDA.html"}}
	raw := []entity.RawListing{{Link: "https://www.olx.pl/d/oferta/item-IDA.html"}}

	res := m.Match(raw, []entity.Filter{{Model: "iPhone"}}, seen, 0)

	assert.Equal(t, 1, res.AlreadySeen)
	assert.Equal(t, 0, res.Invalid)
}

func TestMatchInvalidPatternMatchesLiterally(t *testing.T) {
	m := newTestMatcher(30)
	raw := []entity.RawListing{
		card("A", "iPhone 13 (Pro", "1 zł"),
		card("B", "iPhone 13 Pro", "1 zł"),
	}

	res := m.Match(raw, []entity.Filter{{Model: "13 (pro"}}, nil, 0)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, "A", res.Matches[0].Listing.ID)
}

func TestMatchRegexPattern(t *testing.T) {
	m := newTestMatcher(30)
	raw := []entity.RawListing{
		card("A", "iPhone 14 Pro Max", "1 zł"),
		card("B", "iPhone 14", "1 zł"),
	}

	res := m.Match(raw, []entity.Filter{{Model: `iphone 1[45] pro`}}, nil, 0)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, "A", res.Matches[0].Listing.ID)
}

func TestMatchDoesNotMutateInput(t *testing.T) {
	m := newTestMatcher(30)
	seen := entity.SeenRecords{"old": {Link: "x"}}

	res := m.Match([]entity.RawListing{card("A", "iPhone", "1 zł")}, []entity.Filter{{Model: "iPhone"}}, seen, 0)

	assert.Len(t, seen, 1)
	assert.Len(t, res.Seen, 2)
}

func TestMatchNoFilters(t *testing.T) {
	m := newTestMatcher(30)
	res := m.Match([]entity.RawListing{card("A", "iPhone", "1 zł")}, nil, nil, 3)

	assert.Equal(t, 1, res.Checked)
	assert.Empty(t, res.Matches)
	assert.Equal(t, 3, res.TotalFound)
}
