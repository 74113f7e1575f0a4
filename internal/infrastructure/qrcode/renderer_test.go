package qrcode

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"session_id":"qr_1","timestamp":1714564800,"type":"payment_request","version":"1.0"}`

func TestRenderer_PNG(t *testing.T) {
	r, err := NewRenderer("M")
	require.NoError(t, err)

	img, err := r.Render(payload, 300, "png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)

	decoded, err := png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 300, decoded.Bounds().Dx())
	assert.Equal(t, 300, decoded.Bounds().Dy())

	uri := img.DataURI()
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, img.Data, raw)
}

func TestRenderer_Formats(t *testing.T) {
	r, err := NewRenderer("H")
	require.NoError(t, err)

	tests := []struct {
		format string
		mime   string
	}{
		{"jpg", "image/jpeg"},
		{"JPEG", "image/jpeg"},
		{"svg", "image/svg+xml"},
		{"", "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			img, err := r.Render(payload, 200, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, img.MimeType)
			assert.NotEmpty(t, img.Data)
		})
	}

	svg, err := r.Render(payload, 200, "svg")
	require.NoError(t, err)
	assert.Contains(t, string(svg.Data), `width="200"`)
	assert.Contains(t, string(svg.Data), `fill="#000000"`)
}

func TestRenderer_Rejects(t *testing.T) {
	_, err := NewRenderer("X")
	assert.Error(t, err)

	r, err := NewRenderer("L")
	require.NoError(t, err)

	_, err = r.Render(payload, 99, "png")
	assert.Error(t, err)
	_, err = r.Render(payload, 1001, "png")
	assert.Error(t, err)
	_, err = r.Render(payload, 300, "gif")
	assert.Error(t, err)
}
