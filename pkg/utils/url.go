package utils

import (
	"net/url"
	"regexp"
)

var listingIDPattern = regexp.MustCompile(`ID([a-zA-Z0-9]+)\.html`)

// ExtractListingID returns the stable listing identifier embedded in an OLX
// offer URL (".../oferta/iphone-13-CID99-IDabc123.html" -> "abc123").
// When the URL carries no identifier the URL itself is used.
func ExtractListingID(link string) string {
	if m := listingIDPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return link
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	if base == nil {
		return relURL.String(), nil
	}
	return base.ResolveReference(relURL).String(), nil
}
