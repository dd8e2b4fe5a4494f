package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

func TestNormalise(t *testing.T) {
	n := New()

	result, err := n.Normalise(context.Background(), "/docs/visa_types-overview.txt", []byte("  Visa categories\r\nexplained.  \n"))

	require.NoError(t, err)
	assert.Equal(t, "visa types overview", result.Title)
	assert.Equal(t, "Visa categories\nexplained.", result.Content)
	assert.Equal(t, "plaintext", result.Metadata["format"])
}

func TestNormalise_NilContent(t *testing.T) {
	n := New()

	_, err := n.Normalise(context.Background(), "a.txt", nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".txt", ".text"}, New().SupportedExtensions())
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"/a/b/green_card.txt", "green card"},
		{"work-permit-guide.txt", "work permit guide"},
		{"plain.txt", "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleFromFilename(tt.uri))
	}
}
