package gemini

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type ImageInput struct {
	Data     []byte
	MimeType string
}

// Request is one generation call: the person, the product and the composed instruction.
type Request struct {
	ModelImage   ImageInput
	ProductImage ImageInput
	Instruction  string
}

type Image struct {
	Data     []byte
	MimeType string
}

func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MimeType, base64.StdEncoding.EncodeToString(i.Data))
}

var dataURLRegex = regexp.MustCompile(`^data:([^;,]+);base64,`)

// ParseDataURL decodes a "data:<mime>;base64,<payload>" string.
func ParseDataURL(value string) (ImageInput, error) {
	value = strings.TrimSpace(value)
	m := dataURLRegex.FindStringSubmatch(value)
	if len(m) != 2 {
		return ImageInput{}, errors.New("not a base64 data URL")
	}

	data, err := base64.StdEncoding.DecodeString(value[len(m[0]):])
	if err != nil {
		return ImageInput{}, fmt.Errorf("decode data URL: %w", err)
	}
	if len(data) == 0 {
		return ImageInput{}, errors.New("empty data URL")
	}
	return ImageInput{Data: data, MimeType: m[1]}, nil
}

// FromBase64 turns a normalized payload (raw base64, no prefix) into an input part.
func FromBase64(data, mimeType string) (ImageInput, error) {
	raw, err := base64.StdEncoding.DecodeString(stripDataURLPrefix(strings.TrimSpace(data)))
	if err != nil {
		return ImageInput{}, fmt.Errorf("decode image: %w", err)
	}
	return ImageInput{Data: raw, MimeType: mimeType}, nil
}

func stripDataURLPrefix(value string) string {
	if strings.HasPrefix(value, "data:") {
		if idx := strings.IndexByte(value, ','); idx >= 0 {
			return value[idx+1:]
		}
	}
	return value
}
