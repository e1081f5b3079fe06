// Package types contains shared types used across multiple packages to avoid import cycles.
package types

import (
	"errors"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// Columns is the persisted field order. The flat file header and the store
// table both use exactly this order; inserts are positional.
var Columns = []string{
	"name",
	"company_number",
	"jurisdiction_code",
	"incorporation_date",
	"dissolution_date",
	"company_type",
	"registry_url",
	"branch",
	"branch_status",
	"inactive",
	"current_status",
	"created_at",
	"updated_at",
	"retrieved_at",
	"opencorporates_url",
	"registered_address_in_full",
	"restricted_for_marketing",
	"native_company_number",
	"source_publisher",
	"source_url",
	"source_retrieved_at",
	"registered_address_street_address",
	"registered_address_locality",
	"registered_address_region",
	"registered_address_postal_code",
	"registered_address_country",
	"registered_address",
	"source_terms",
	"source_terms_url",
}

// DroppedColumns are upstream fields that are part of the API payload but
// not of the storage schema (nested, repeating values).
var DroppedColumns = []string{"industry_codes", "previous_names"}

// ErrResultSetFrozen is returned when appending to a result set that has
// already been handed to the exporter.
var ErrResultSetFrozen = errors.New("result set is frozen")

// IsPersisted reports whether name is one of the persisted columns.
func IsPersisted(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// CompanyRecord is one company's flattened attribute set.
// Persisted columns are always present, in Columns order; any extra
// upstream fields follow in insertion order.
type CompanyRecord struct {
	fields *orderedmap.OrderedMap[string, string]
}

// NewCompanyRecord returns a record with every persisted column set to "".
func NewCompanyRecord() CompanyRecord {
	m := orderedmap.NewOrderedMap[string, string]()
	for _, c := range Columns {
		m.Set(c, "")
	}
	return CompanyRecord{fields: m}
}

// RecordFromRow builds a record from a positional row in Columns order.
func RecordFromRow(row []string) (CompanyRecord, error) {
	if len(row) != len(Columns) {
		return CompanyRecord{}, fmt.Errorf("row has %d fields, expected %d", len(row), len(Columns))
	}
	rec := NewCompanyRecord()
	for i, c := range Columns {
		rec.fields.Set(c, row[i])
	}
	return rec, nil
}

// Set stores a field value. Unknown fields are kept but never persisted.
func (r CompanyRecord) Set(name, value string) {
	if r.fields == nil {
		return
	}
	r.fields.Set(name, value)
}

// Get returns the value of a field.
func (r CompanyRecord) Get(name string) (string, bool) {
	if r.fields == nil {
		return "", false
	}
	return r.fields.Get(name)
}

// Fields returns every field name carried by the record, persisted first.
func (r CompanyRecord) Fields() []string {
	if r.fields == nil {
		return nil
	}
	names := make([]string, 0, r.fields.Len())
	for el := r.fields.Front(); el != nil; el = el.Next() {
		names = append(names, el.Key)
	}
	return names
}

// Row returns the persisted values in Columns order. Dropped and unknown
// fields are not included.
func (r CompanyRecord) Row() []string {
	row := make([]string, len(Columns))
	if r.fields == nil {
		return row
	}
	for i, c := range Columns {
		row[i], _ = r.fields.Get(c)
	}
	return row
}

// Key identifies a company across pages: jurisdiction and registry number.
// It is empty when either part is missing.
func (r CompanyRecord) Key() string {
	jurisdiction, _ := r.Get("jurisdiction_code")
	number, _ := r.Get("company_number")
	if jurisdiction == "" || number == "" {
		return ""
	}
	return jurisdiction + "/" + number
}

// ResultSet is the ordered collection of records accumulated across pages.
type ResultSet struct {
	Query      string // redacted request URL, safe to log
	TotalCount int    // total matches reported by the API
	TotalPages int    // total pages reported by the API

	records []CompanyRecord
	frozen  bool
}

// NewResultSet creates an empty result set for the given (redacted) query.
func NewResultSet(query string) *ResultSet {
	return &ResultSet{Query: query}
}

// Append adds a record. It fails once the set has been frozen.
func (rs *ResultSet) Append(rec CompanyRecord) error {
	if rs.frozen {
		return ErrResultSetFrozen
	}
	rs.records = append(rs.records, rec)
	return nil
}

// Len returns the number of records.
func (rs *ResultSet) Len() int {
	return len(rs.records)
}

// Freeze marks the set immutable.
func (rs *ResultSet) Freeze() {
	rs.frozen = true
}

// Frozen reports whether Freeze has been called.
func (rs *ResultSet) Frozen() bool {
	return rs.frozen
}

// Records returns a copy of the record slice.
func (rs *ResultSet) Records() []CompanyRecord {
	out := make([]CompanyRecord, len(rs.records))
	copy(out, rs.records)
	return out
}
