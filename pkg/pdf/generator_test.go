package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLetter(t *testing.T) {
	gen := NewGenerator(DefaultOptions())

	data, err := gen.RenderLetter(context.Background(), Letter{
		Letterhead: "Welfare Committee",
		Reference:  "ZAKAT-00001",
		Date:       time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Recipient:  []string{"The Welfare Review Board"},
		Subject:    "Assistance request",
		Paragraphs: []string{"First paragraph.", "", "Second paragraph."},
		Signatory:  "Counseling Manager",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Greater(t, len(data), 500)
}
