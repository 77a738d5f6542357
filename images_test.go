package ghpress

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateImagePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 2))))

	info, err := validateImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.MIME)
	assert.Equal(t, 4, info.Width)
	assert.Equal(t, 2, info.Height)
}

func TestValidateImageJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 5)), nil))

	info, err := validateImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", info.MIME)
	assert.Equal(t, 3, info.Width)
	assert.Equal(t, 5, info.Height)
}

func TestValidateImageRejectsNonImages(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("definitely not an image"),
		"html":      []byte("<html><body>x</body></html>"),
		"gif":       []byte("GIF89a\x01\x00\x01\x00"),
		"truncated": {0x89, 'P', 'N', 'G'},
	} {
		_, err := validateImage(data)
		assert.ErrorIs(t, err, ErrInvalidInput, "case %s", name)
	}
}
