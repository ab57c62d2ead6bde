package entity

import "time"

// SeenRecord marks a listing as already notified.
type SeenRecord struct {
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	PriceText string    `json:"price"`
	Link      string    `json:"link"`
	FoundAt   time.Time `json:"found_at"`
}

// SeenRecords maps a listing ID to its record. Entries are never removed.
type SeenRecords map[string]SeenRecord

// Clone returns a shallow copy that can be extended without touching the receiver.
func (s SeenRecords) Clone() SeenRecords {
	out := make(SeenRecords, len(s))
	for id, rec := range s {
		out[id] = rec
	}
	return out
}

// Links returns the set of links across all records.
func (s SeenRecords) Links() map[string]struct{} {
	links := make(map[string]struct{}, len(s))
	for _, rec := range s {
		if rec.Link != "" {
			links[rec.Link] = struct{}{}
		}
	}
	return links
}

// Merge adds the entries of other that are missing from s.
func (s SeenRecords) Merge(other SeenRecords) {
	for id, rec := range other {
		if _, ok := s[id]; !ok {
			s[id] = rec
		}
	}
}
