package repository

import "errors"

var (
	// ErrFetchTimeout is returned when the listings page did not render in time.
	ErrFetchTimeout = errors.New("listings page load timed out")
	// ErrFetchFailed is returned for any other failure to obtain the listings page.
	ErrFetchFailed = errors.New("failed to fetch listings page")
	// ErrSessionClosed is returned when Fetch is called on a fetcher that is not open.
	ErrSessionClosed = errors.New("fetcher session is not open")
	// ErrNotifyFailed is returned when a notification could not be delivered.
	ErrNotifyFailed = errors.New("notification delivery failed")
)
