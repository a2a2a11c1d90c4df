package extract

import (
	"strings"

	"github.com/graphloom/graphloom/pkg/logger"
)

// CategoryOther absorbs every category the extractor invents that is not
// in the known set.
const CategoryOther = "other"

// knownCategories is the enumerated category set enforced at the
// extraction-result boundary. Merge and store never re-validate.
var knownCategories = map[string]struct{}{
	"person":       {},
	"organization": {},
	"location":     {},
	"concept":      {},
	"technology":   {},
	"event":        {},
	"work":         {},
	"product":      {},
	"date":         {},
	CategoryOther:  {},
}

// CoerceCategories normalizes entity categories in place: lower-cased and
// trimmed, with unknown values coerced to "other" and logged. Extractors
// are prompted with the known set but are not trusted to honor it.
func CoerceCategories(res *Result) {
	if res == nil {
		return
	}
	for i := range res.Entities {
		category := strings.ToLower(strings.TrimSpace(res.Entities[i].Category))
		if _, ok := knownCategories[category]; !ok {
			if category != "" {
				logger.Warn(
					"unknown entity category, coercing",
					"name", res.Entities[i].Name,
					"category", res.Entities[i].Category,
				)
			}
			category = CategoryOther
		}
		res.Entities[i].Category = category
	}
}
