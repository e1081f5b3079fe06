// Package testutil provides testing utilities for corpfetch.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock search response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockRegistry is a configurable mock company search API for testing.
// Responses are configured per page number; a page configured with several
// responses serves them in order and then repeats the last one.
type MockRegistry struct {
	server *httptest.Server
	mu     sync.Mutex
	pages  map[int][]MockResponse
	served map[int]int

	// Fallback is served for pages with no configured response.
	Fallback MockResponse

	requests []*http.Request
}

// NewMockRegistry creates a new mock registry server.
func NewMockRegistry() *MockRegistry {
	mock := &MockRegistry{
		pages:    make(map[int][]MockResponse),
		served:   make(map[int]int),
		Fallback: MockResponse{StatusCode: http.StatusNotFound, Body: `{"error":"not configured"}`},
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/companies/search") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				page = n
			}
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, r.Clone(r.Context()))
		resp := mock.next(page)
		mock.mu.Unlock()

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// next must be called with mu held.
func (m *MockRegistry) next(page int) MockResponse {
	queue, ok := m.pages[page]
	if !ok || len(queue) == 0 {
		return m.Fallback
	}
	i := m.served[page]
	m.served[page] = i + 1
	if i >= len(queue) {
		i = len(queue) - 1
	}
	return queue[i]
}

// URL returns the mock server base URL.
func (m *MockRegistry) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRegistry) Close() {
	m.server.Close()
}

// SetPage configures the response sequence for a page number.
func (m *MockRegistry) SetPage(page int, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = responses
	m.served[page] = 0
}

// SetAll serves the same response for every page number.
func (m *MockRegistry) SetAll(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[int][]MockResponse)
	m.served = make(map[int]int)
	m.Fallback = resp
}

// SetSearchResults configures pages 1..totalPages, each holding perPage
// distinct companies, reporting totalCount matches.
func (m *MockRegistry) SetSearchResults(totalCount, totalPages, perPage int) {
	for page := 1; page <= totalPages; page++ {
		companies := make([]map[string]interface{}, 0, perPage)
		for i := 0; i < perPage; i++ {
			n := (page-1)*perPage + i + 1
			companies = append(companies, Company("gb", fmt.Sprintf("%08d", n), fmt.Sprintf("COMPANY %d LTD", n)))
		}
		m.SetPage(page, MockResponse{
			StatusCode: http.StatusOK,
			Body:       SearchBody(totalCount, totalPages, page, companies...),
		})
	}
}

// RequestCount returns the number of search requests served.
func (m *MockRegistry) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// RequestURIs returns the request URIs (path and query) in arrival order.
func (m *MockRegistry) RequestURIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.requests))
	for i, r := range m.requests {
		out[i] = r.URL.RequestURI()
	}
	return out
}

// PageRequests returns how many times a page number was requested.
func (m *MockRegistry) PageRequests(page int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.requests {
		p := r.URL.Query().Get("page")
		if p == "" {
			p = "1"
		}
		if p == strconv.Itoa(page) {
			count++
		}
	}
	return count
}

// SearchBody renders a search response document.
func SearchBody(totalCount, totalPages, page int, companies ...map[string]interface{}) string {
	wrapped := make([]map[string]interface{}, len(companies))
	for i, c := range companies {
		wrapped[i] = map[string]interface{}{"company": c}
	}
	doc := map[string]interface{}{
		"api_version": "0.4",
		"results": map[string]interface{}{
			"companies":   wrapped,
			"page":        page,
			"per_page":    100,
			"total_pages": totalPages,
			"total_count": totalCount,
		},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

// Company returns a company object shaped like the registry's payload,
// with nested address and source objects and the repeating fields that
// are not persisted.
func Company(jurisdiction, number, name string) map[string]interface{} {
	return map[string]interface{}{
		"name":                       name,
		"company_number":             number,
		"jurisdiction_code":          jurisdiction,
		"incorporation_date":         "2011-03-14",
		"dissolution_date":           nil,
		"company_type":               "Private Limited Company",
		"registry_url":               "https://find-and-update.company-information.service.gov.uk/company/" + number,
		"branch":                     nil,
		"branch_status":              nil,
		"inactive":                   false,
		"current_status":             "Active",
		"created_at":                 "2011-03-16T10:14:21+00:00",
		"updated_at":                 "2023-09-01T02:11:43+00:00",
		"retrieved_at":               "2023-08-31T00:00:00+00:00",
		"opencorporates_url":         "https://opencorporates.com/companies/" + jurisdiction + "/" + number,
		"registered_address_in_full": "1 HIGH STREET, LONDON, EC1A 1AA",
		"restricted_for_marketing":   nil,
		"native_company_number":      nil,
		"registered_address": map[string]interface{}{
			"street_address": "1 High Street",
			"locality":       "London",
			"region":         nil,
			"postal_code":    "EC1A 1AA",
			"country":        "England",
		},
		"source": map[string]interface{}{
			"publisher":    "UK Companies House",
			"url":          "http://xmlgw.companieshouse.gov.uk/",
			"retrieved_at": "2023-08-31T00:00:00+00:00",
			"terms":        "UK Crown Copyright",
			"terms_url":    "https://www.gov.uk/government/organisations/companies-house",
		},
		"industry_codes": []interface{}{
			map[string]interface{}{"industry_code": map[string]interface{}{"code": "62020"}},
		},
		"previous_names": []interface{}{},
	}
}
