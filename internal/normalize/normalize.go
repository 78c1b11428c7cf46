// Package normalize letterboxes uploads onto a fixed canvas so the model
// always receives inputs with the framing the user asked for.
package normalize

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	"pajangan-promoshot/internal/preview"
)

var (
	ErrDecode = errors.New("cannot decode image")
	ErrEncode = errors.New("cannot encode image")
)

const JPEGQuality = 95

// MaxPixels caps the decoded size of an upload. Compressed inputs far smaller
// than the upload limit can still expand to gigabytes.
const MaxPixels = 50_000_000

type Canvas struct {
	Width  int
	Height int
}

// CanvasFor returns the letterbox canvas for ratio. Unknown ratios fall back
// to the portrait canvas.
func CanvasFor(ratio preview.AspectRatio) Canvas {
	switch ratio {
	case preview.Ratio16x9:
		return Canvas{Width: 1280, Height: 720}
	case preview.Ratio1x1:
		return Canvas{Width: 1024, Height: 1024}
	default:
		return Canvas{Width: 720, Height: 1280}
	}
}

// Normalize decodes data, scales it to touch the canvas for ratio while keeping
// its proportions, centers it on a black background and re-encodes it.
// PNG input stays PNG, everything else becomes JPEG.
func Normalize(data []byte, mediaType string, ratio preview.AspectRatio) (preview.ImagePayload, error) {
	out, outType, err := Letterbox(data, mediaType, CanvasFor(ratio))
	if err != nil {
		return preview.ImagePayload{}, err
	}

	encoded := base64.StdEncoding.EncodeToString(out)
	return preview.ImagePayload{
		Data:       encoded,
		MediaType:  outType,
		PreviewURL: "data:" + outType + ";base64," + encoded,
	}, nil
}

// Letterbox is Normalize on raw bytes with an explicit canvas.
func Letterbox(data []byte, mediaType string, canvas Canvas) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, "", fmt.Errorf("invalid canvas %dx%d", canvas.Width, canvas.Height)
	}

	size, err := Bounds(data)
	if err != nil {
		return nil, "", err
	}
	if size.X <= 0 || size.Y <= 0 || size.X*size.Y > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, size.X, size.Y, MaxPixels)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	w, h := fitSize(src.Bounds().Dx(), src.Bounds().Dy(), canvas)
	scaled := imaging.Resize(src, w, h, imaging.Lanczos)

	dst := imaging.New(canvas.Width, canvas.Height, color.NRGBA{A: 0xff})
	dst = imaging.PasteCenter(dst, scaled)

	var buf bytes.Buffer
	outType := "image/jpeg"
	if DetectMediaType(mediaType, data) == "image/png" {
		outType = "image/png"
		err = imaging.Encode(&buf, dst, imaging.PNG)
	} else {
		err = imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return buf.Bytes(), outType, nil
}

// DetectMediaType cleans an upload's declared content type. Parameters are
// stripped, generic types are sniffed from data, and image/jpeg is the fallback.
func DetectMediaType(header string, data []byte) string {
	ct := cleanType(header)
	if ct == "" || ct == "application/octet-stream" {
		ct = cleanType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(ct, "image/") {
		return "image/jpeg"
	}
	return ct
}

func cleanType(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// fitSize scales w×h so it touches the canvas on one axis. Smaller images
// are scaled up.
func fitSize(w, h int, canvas Canvas) (int, int) {
	if w <= 0 || h <= 0 {
		return canvas.Width, canvas.Height
	}
	imgRatio := float64(w) / float64(h)
	target := float64(canvas.Width) / float64(canvas.Height)

	if imgRatio > target {
		dh := int(math.Round(float64(canvas.Width) / imgRatio))
		return canvas.Width, max(dh, 1)
	}
	dw := int(math.Round(float64(canvas.Height) * imgRatio))
	return max(dw, 1), canvas.Height
}

// Bounds reports the size of an encoded image without decoding pixel data.
func Bounds(data []byte) (image.Point, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, nil
}
