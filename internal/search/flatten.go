package search

import (
	"sort"

	"github.com/dbsmedya/corpfetch/internal/types"
)

// flattenCompany turns one nested company object into a record. Nested
// objects are joined into their parent's name with "_"; arrays and scalars
// are rendered as text. A nested object that is null keeps its own column.
func flattenCompany(obj map[string]interface{}) types.CompanyRecord {
	rec := types.NewCompanyRecord()
	flattenInto(rec, "", obj)
	return rec
}

func flattenInto(rec types.CompanyRecord, prefix string, obj map[string]interface{}) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "_" + k
		}
		if nested, ok := obj[k].(map[string]interface{}); ok {
			if len(nested) == 0 {
				rec.Set(name, "")
				continue
			}
			flattenInto(rec, name, nested)
			continue
		}
		rec.Set(name, types.ToText(obj[k]))
	}
}
