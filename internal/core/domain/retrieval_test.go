package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalOptions_Normalise(t *testing.T) {
	opts := RetrievalOptions{}.Normalise()

	assert.Equal(t, DefaultRetrievalLimit, opts.Limit)
	require.NotNil(t, opts.Threshold)
	assert.InDelta(t, DefaultRetrievalThreshold, *opts.Threshold, 1e-9)

	custom := RetrievalOptions{Limit: 3, Threshold: NewThreshold(0.5)}.Normalise()
	assert.Equal(t, 3, custom.Limit)
	assert.InDelta(t, 0.5, *custom.Threshold, 1e-9)
}

func TestRetrievalOptions_Normalise_KeepsExplicitZero(t *testing.T) {
	opts := RetrievalOptions{Threshold: NewThreshold(0)}.Normalise()

	require.NotNil(t, opts.Threshold)
	assert.Zero(t, *opts.Threshold)
	assert.NoError(t, opts.Validate())
}

func TestRetrievalOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    RetrievalOptions
		wantErr bool
	}{
		{"defaults", RetrievalOptions{}.Normalise(), false},
		{"explicit zero threshold", RetrievalOptions{Limit: 1, Threshold: NewThreshold(0)}, false},
		{"limit zero", RetrievalOptions{Limit: 0, Threshold: NewThreshold(0.5)}, true},
		{"negative limit", RetrievalOptions{Limit: -2, Threshold: NewThreshold(0.5)}, true},
		{"threshold above one", RetrievalOptions{Limit: 5, Threshold: NewThreshold(1.01)}, true},
		{"negative threshold", RetrievalOptions{Limit: 5, Threshold: NewThreshold(-0.1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
