// Package search talks to the company registry search API: it builds
// request URLs, fetches and decodes result pages, and collects pages into
// a bounded result set.
package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the public registry API endpoint.
const DefaultBaseURL = "https://api.opencorporates.com"

// PerPage is the fixed page size requested from the API.
const PerPage = 100

const redactedCredential = "***"

// SearchQuery is an immutable search request description.
type SearchQuery struct {
	BaseURL    string
	Term       string
	Credential string
	Version    string
}

// BuildQuery returns a query against DefaultBaseURL. Inputs are not
// validated; empty values are rendered as empty segments.
func BuildQuery(term, credential, version string) SearchQuery {
	return NewQuery(DefaultBaseURL, term, credential, version)
}

// NewQuery returns a query against an arbitrary endpoint.
func NewQuery(baseURL, term, credential, version string) SearchQuery {
	return SearchQuery{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Term:       term,
		Credential: credential,
		Version:    version,
	}
}

// String renders the full request URL, credential included.
func (q SearchQuery) String() string {
	return q.render(url.QueryEscape(q.Credential))
}

// Redacted renders the request URL with the credential masked.
func (q SearchQuery) Redacted() string {
	if q.Credential == "" {
		return q.render("")
	}
	return q.render(redactedCredential)
}

// PageURL renders the request URL for one page. The page parameter is
// appended to a fresh rendering every call.
func (q SearchQuery) PageURL(page int) string {
	return q.String() + "&page=" + strconv.Itoa(page)
}

func (q SearchQuery) render(credential string) string {
	return fmt.Sprintf("%s/%s/companies/search?q=%s&fields=name&api_token=%s&per_page=%d",
		q.BaseURL, url.PathEscape(q.Version), url.QueryEscape(q.Term), credential, PerPage)
}
