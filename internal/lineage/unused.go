package lineage

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/report"
)

// UsedProperties collects the bracketed property of every Entity[Property]
// reference in the field columns of rows.
//
// Column and measure references look the same once flattened, so a used
// column hides an unused measure of the same name.
func UsedProperties(rows []report.VisualRow) map[string]struct{} {
	used := make(map[string]struct{})
	for _, row := range rows {
		for _, col := range row.FieldColumns() {
			for _, field := range strings.Split(col, report.FieldSeparator) {
				if !strings.Contains(field, "[") || !strings.Contains(field, "]") {
					continue
				}
				parts := strings.Split(field, "[")
				name := strings.TrimSpace(strings.ReplaceAll(parts[len(parts)-1], "]", ""))
				if name != "" {
					used[name] = struct{}{}
				}
			}
		}
	}
	return used
}

// UnusedMeasures returns, sorted ascending, the names in allMeasureNames that
// no visual, filter or style object references.
func UnusedMeasures(rows []report.VisualRow, allMeasureNames []string) []string {
	used := UsedProperties(rows)
	seen := make(map[string]struct{}, len(allMeasureNames))
	out := []string{}
	for _, name := range allMeasureNames {
		if _, ok := used[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
