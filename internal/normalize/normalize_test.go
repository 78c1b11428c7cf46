package normalize

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pajangan-promoshot/internal/preview"
)

func encode(t *testing.T, img image.Image, f imaging.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, f))
	return buf.Bytes()
}

func TestCanvasFor(t *testing.T) {
	assert.Equal(t, Canvas{720, 1280}, CanvasFor(preview.Ratio9x16))
	assert.Equal(t, Canvas{1280, 720}, CanvasFor(preview.Ratio16x9))
	assert.Equal(t, Canvas{1024, 1024}, CanvasFor(preview.Ratio1x1))
	assert.Equal(t, Canvas{720, 1280}, CanvasFor("bogus"))
}

func TestNormalize(t *testing.T) {
	red := color.NRGBA{R: 0xff, A: 0xff}

	t.Run("square png on portrait canvas", func(t *testing.T) {
		src := encode(t, imaging.New(100, 100, red), imaging.PNG)

		got, err := Normalize(src, "image/png", preview.Ratio9x16)
		require.NoError(t, err)
		assert.Equal(t, "image/png", got.MediaType)
		assert.True(t, strings.HasPrefix(got.PreviewURL, "data:image/png;base64,"))
		assert.False(t, got.Empty())

		raw, err := base64.StdEncoding.DecodeString(got.Data)
		require.NoError(t, err)
		out, err := imaging.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, 720, out.Bounds().Dx())
		assert.Equal(t, 1280, out.Bounds().Dy())

		r, g, b, _ := out.At(360, 640).RGBA()
		assert.Greater(t, r, uint32(0xf000))
		assert.Zero(t, g)
		assert.Zero(t, b)

		r, g, b, _ = out.At(360, 10).RGBA()
		assert.Zero(t, r+g+b, "letterbox bar must be black")
	})

	t.Run("wide jpeg on landscape canvas", func(t *testing.T) {
		src := encode(t, imaging.New(400, 100, red), imaging.JPEG)

		got, err := Normalize(src, "image/jpeg; charset=binary", preview.Ratio16x9)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", got.MediaType)

		raw, err := base64.StdEncoding.DecodeString(got.Data)
		require.NoError(t, err)
		size, err := Bounds(raw)
		require.NoError(t, err)
		assert.Equal(t, image.Pt(1280, 720), size)
	})

	t.Run("png is sniffed from octet-stream", func(t *testing.T) {
		src := encode(t, imaging.New(10, 10, red), imaging.PNG)
		got, err := Normalize(src, "application/octet-stream", preview.Ratio1x1)
		require.NoError(t, err)
		assert.Equal(t, "image/png", got.MediaType)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := Normalize([]byte("not an image"), "image/png", preview.Ratio1x1)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Normalize(nil, "image/png", preview.Ratio1x1)
		assert.ErrorIs(t, err, ErrDecode)
	})
}

// withDimensions rewrites the IHDR chunk of a PNG so its header claims w×h.
func withDimensions(t *testing.T, png []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), png...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestLetterbox_RejectsHugeDimensions(t *testing.T) {
	src := encode(t, imaging.New(4, 4, color.White), imaging.PNG)

	huge := withDimensions(t, src, 100_000, 100_000)
	size, err := Bounds(huge)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(100_000, 100_000), size)

	_, _, err = Letterbox(huge, "image/png", CanvasFor(preview.Ratio1x1))
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorContains(t, err, "exceeds")

	_, _, err = Letterbox(src, "image/png", CanvasFor(preview.Ratio1x1))
	assert.NoError(t, err)
}

func TestLetterbox_InvalidCanvas(t *testing.T) {
	_, _, err := Letterbox([]byte{1}, "image/png", Canvas{})
	assert.Error(t, err)
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		canvas Canvas
		wantW  int
		wantH  int
	}{
		{"square into portrait", 100, 100, Canvas{720, 1280}, 720, 720},
		{"tall into landscape", 100, 200, Canvas{1280, 720}, 360, 720},
		{"exact ratio", 9, 16, Canvas{720, 1280}, 720, 1280},
		{"zero size", 0, 0, Canvas{10, 10}, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitSize(tt.w, tt.h, tt.canvas)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestDetectMediaType(t *testing.T) {
	png := encode(t, imaging.New(2, 2, color.Black), imaging.PNG)

	assert.Equal(t, "image/png", DetectMediaType("", png))
	assert.Equal(t, "image/webp", DetectMediaType("IMAGE/WEBP", nil))
	assert.Equal(t, "image/jpeg", DetectMediaType("text/plain", []byte("hello")))
	assert.Equal(t, "image/jpeg", DetectMediaType("", []byte("hello")))
}
