package preview

import (
	"fmt"
	"strings"
)

// ImagePayload is a normalized upload ready to be sent to the model.
type ImagePayload struct {
	Data       string // base64, no data URL prefix
	MediaType  string
	PreviewURL string
}

func (p ImagePayload) Empty() bool {
	return strings.TrimSpace(p.Data) == "" || strings.TrimSpace(p.MediaType) == ""
}

type AspectRatio string

const (
	Ratio9x16 AspectRatio = "9:16"
	Ratio16x9 AspectRatio = "16:9"
	Ratio1x1  AspectRatio = "1:1"
)

const DefaultAspectRatio = Ratio9x16

// Description is the phrase used in the hard framing constraint of the instruction.
func (r AspectRatio) Description() string {
	switch r {
	case Ratio16x9:
		return "horizontal 16:9 landscape"
	case Ratio1x1:
		return "square 1:1"
	default:
		return "vertical 9:16 portrait"
	}
}

func ParseAspectRatio(value string) (AspectRatio, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	switch AspectRatio(value) {
	case Ratio9x16, Ratio16x9, Ratio1x1:
		return AspectRatio(value), nil
	case "":
		return DefaultAspectRatio, nil
	}
	return "", fmt.Errorf("unsupported aspect ratio %q", value)
}
