package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want Mode
	}{
		{mode: "", want: ModeMarkdown},
		{mode: ModeAuto, want: ModeMarkdown},
		{mode: ModeText, want: ModeText},
		{mode: ModeMarkdown, want: ModeMarkdown},
		{mode: ModeJSON, want: ModeJSON},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, tt.mode)
			assert.False(t, r.IsTTY())
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "### Deep", FormatHeader(3, "Deep"))
	assert.Equal(t, "# Clamped", FormatHeader(0, "Clamped"))
	assert.Equal(t, "- **Measures**: 4", FormatKeyValue("Measures", "4"))
}

func TestTable_Markdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &bytes.Buffer{}, ModeMarkdown)

	r.Table([]string{"Label", "DAX"}, [][]string{{"Margin", "a\nb"}})

	out := buf.String()
	assert.Contains(t, out, "| Label | DAX |")
	assert.Contains(t, out, "| Margin | a<br>b |")
}

func TestTable_Text(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &bytes.Buffer{}, ModeText)

	r.Table([]string{"Page"}, [][]string{{"Overview"}})

	out := buf.String()
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "Page")
	assert.Contains(t, out, "Overview")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &bytes.Buffer{}, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"measures": 2}))
	assert.Equal(t, "{\n  \"measures\": 2\n}\n", buf.String())
}

func TestMessages_NoColorWhenPiped(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Header(1, "Summary")
	r.Success("done")
	r.StatusLine("report.json", "saved", "report")
	r.Warning("careful")

	assert.NotContains(t, out.String(), "\x1b[", "no escape codes outside a terminal")
	assert.True(t, strings.HasPrefix(out.String(), "Summary\n"))
	assert.Contains(t, out.String(), "✓ done")
	assert.Contains(t, out.String(), "report.json")
	assert.Equal(t, "warning: careful\n", errOut.String())
}

func TestMessages_Markdown(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeMarkdown)

	r.Header(2, "Unused")
	r.StatusLine("model.bim", "saved", "model")
	r.Muted("none")

	assert.Equal(t, "## Unused\n\n- model.bim: saved (model)\n_none_\n", out.String())
}
