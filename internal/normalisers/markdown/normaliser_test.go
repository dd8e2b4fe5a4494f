package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

func TestNormalise_TitleFromHeading(t *testing.T) {
	n := New()
	content := []byte("# Asylum Basics\n\nApply within one year of arrival.\n")

	result, err := n.Normalise(context.Background(), "/docs/asylum.md", content)

	require.NoError(t, err)
	assert.Equal(t, "Asylum Basics", result.Title)
	assert.Equal(t, "markdown", result.Metadata["format"])
	assert.NotContains(t, result.Content, "#")
	assert.Contains(t, result.Content, "Apply within one year of arrival.")
}

func TestNormalise_TitleFallsBackToFilename(t *testing.T) {
	n := New()

	result, err := n.Normalise(context.Background(), "/docs/fee_waivers.md", []byte("No heading here."))

	require.NoError(t, err)
	assert.Equal(t, "fee waivers", result.Title)
}

func TestNormalise_NilContent(t *testing.T) {
	_, err := New().Normalise(context.Background(), "a.md", nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "this is **important** text", "this is important text"},
		{"italic", "this is *subtle* text", "this is subtle text"},
		{"link keeps text", "see [the form](https://example.gov/i-589)", "see the form"},
		{"image removed", "before ![diagram](chart.png) after", "before  after"},
		{"inline code removed", "run `go build` now", "run  now"},
		{"heading marker removed", "## Section\ncontent", "Section\ncontent"},
		{"blockquote marker removed", "> quoted line", "quoted line"},
		{"list markers removed", "- first\n- second", "first\nsecond"},
		{"numbered list removed", "1. first\n2. second", "first\nsecond"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdown(tt.in))
		})
	}
}

func TestStripMarkdown_CodeBlock(t *testing.T) {
	in := "before\n```go\nfunc main() {}\n```\nafter"

	out := stripMarkdown(in)

	assert.NotContains(t, out, "func main")
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
}
