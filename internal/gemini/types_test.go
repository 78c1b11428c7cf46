package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURL(t *testing.T) {
	img := Image{Data: []byte("img"), MimeType: "image/png"}
	assert.Equal(t, "data:image/png;base64,aW1n", img.DataURL())

	in, err := ParseDataURL(img.DataURL())
	require.NoError(t, err)
	assert.Equal(t, "image/png", in.MimeType)
	assert.Equal(t, []byte("img"), in.Data)
}

func TestParseDataURL_Invalid(t *testing.T) {
	for _, v := range []string{"", "aW1n", "data:image/png,aW1n", "data:image/png;base64,!!!", "data:image/png;base64,"} {
		_, err := ParseDataURL(v)
		assert.Error(t, err, v)
	}
}

func TestFromBase64(t *testing.T) {
	in, err := FromBase64("aW1n", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), in.Data)

	in, err = FromBase64("data:image/png;base64,aW1n", "image/png")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), in.Data)

	_, err = FromBase64("%%%", "image/png")
	assert.Error(t, err)
}
