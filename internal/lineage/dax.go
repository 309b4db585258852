package lineage

import "strings"

var (
	unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r")
	escaper   = strings.NewReplacer("\n", `\n`, "\t", `\t`, "\r", `\r`)
)

// DAXExpression is a measure label paired with its display text.
type DAXExpression struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// UnescapeDAX replaces the literal sequences \n, \t and \r with the control
// characters they name.
func UnescapeDAX(s string) string {
	return unescaper.Replace(s)
}

// EscapeDAX is the inverse of UnescapeDAX.
func EscapeDAX(s string) string {
	return escaper.Replace(s)
}

// RenderDAXExpressions lists the DAX text of every non-column node with a
// non-blank label and non-empty DAX, in node order.
func RenderDAXExpressions(nodes []Node) []DAXExpression {
	out := []DAXExpression{}
	for _, n := range nodes {
		if n.Kind == KindColumn {
			continue
		}
		label := strings.TrimSpace(n.Label)
		if label == "" || n.DAX == "" {
			continue
		}
		out = append(out, DAXExpression{Label: label, Text: UnescapeDAX(n.DAX)})
	}
	return out
}
