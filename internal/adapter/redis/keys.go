package redis

const (
	filtersKey = "olxwatch:filters"
	seenKey    = "olxwatch:seen"
	statusKey  = "olxwatch:status"
)
