package extract

import (
	"github.com/graphloom/graphloom/pkg/logger"
)

// Merge combines extraction fragments into a single result.
//
// Entities union by exact name; the first-seen type and category win, and
// a disagreement between fragments is logged as a warning. Relationships
// concatenate with dedup on the exact (source, relation, target) triple,
// keeping the context of the first occurrence. Nil fragments (failed
// units) are skipped. Fragments must be passed in chunk order so merge
// output is deterministic regardless of extraction completion order.
func Merge(fragments []*Result) *Result {
	merged := NewResult()
	entityIdx := make(map[string]int)
	seenRel := make(map[string]struct{})

	for _, frag := range fragments {
		if frag == nil {
			continue
		}

		for _, entity := range frag.Entities {
			idx, ok := entityIdx[entity.Name]
			if !ok {
				entityIdx[entity.Name] = len(merged.Entities)
				merged.Entities = append(merged.Entities, entity)
				continue
			}
			first := merged.Entities[idx]
			if first.Type != entity.Type || first.Category != entity.Category {
				logger.Warn(
					"conflicting entity classification during merge, keeping first",
					"name", entity.Name,
					"kept_type", first.Type,
					"kept_category", first.Category,
					"dropped_type", entity.Type,
					"dropped_category", entity.Category,
				)
			}
		}

		for _, rel := range frag.Relationships {
			key := rel.Source + "\x1f" + rel.Relation + "\x1f" + rel.Target
			if _, ok := seenRel[key]; ok {
				continue
			}
			seenRel[key] = struct{}{}
			merged.Relationships = append(merged.Relationships, rel)
		}
	}

	return merged
}
