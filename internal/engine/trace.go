package engine

import (
	"encoding/json"
	"fmt"

	"github.com/bruno.lopes/dutyplanner/internal/blocks"
)

// TraceJSON renders a candidate trace (spec.md §6's per-block debug
// artifact) as JSON. blocks.Key is a struct, so it cannot serve as a
// JSON object key directly; this flattens it to "task:start..end"
// first.
func TraceJSON(trace map[blocks.Key]*TraceEntry) ([]byte, error) {
	doc := make(map[string]*TraceEntry, len(trace))
	for key, entry := range trace {
		doc[traceKeyString(key)] = entry
	}
	return json.MarshalIndent(doc, "", "  ")
}

func traceKeyString(k blocks.Key) string {
	return fmt.Sprintf("%s:%s..%s", k.TaskName, k.StartDate.Format(isoDate), k.EndDate.Format(isoDate))
}
