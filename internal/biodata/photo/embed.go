package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
)

const dataURLPrefix = "data:"

// EncodeDataURL wraps raw image bytes as embeddable image data
func EncodeDataURL(mimeType string, data []byte) string {
	return dataURLPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits embeddable image data into its MIME type and bytes
func ParseDataURL(src string) (string, []byte, error) {
	if !strings.HasPrefix(src, dataURLPrefix) {
		return "", nil, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(src[len(dataURLPrefix):], ",")
	if !ok {
		return "", nil, errors.New("malformed data URL: missing payload")
	}
	mimeType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return "", nil, fmt.Errorf("unsupported data URL encoding: %q", encoding)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URL payload: %w", err)
	}
	return mimeType, data, nil
}

// IsDataURL reports whether src holds inline image data
func IsDataURL(src string) bool {
	return strings.HasPrefix(src, dataURLPrefix)
}

// DecodeBytes decodes jpeg, png or webp bytes, honouring EXIF orientation
func DecodeBytes(data []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}

// DecodeDataURL decodes embeddable image data into an image
func DecodeDataURL(src string) (image.Image, error) {
	_, data, err := ParseDataURL(src)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// encodeJPEG encodes img as embeddable JPEG data at quality in (0, 1]
func encodeJPEG(img image.Image, quality float64) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality(quality))); err != nil {
		return "", err
	}
	return EncodeDataURL(MIMEJPEG, buf.Bytes()), nil
}

func jpegQuality(q float64) int {
	if q <= 0 {
		return 90
	}
	v := int(math.Round(q * 100))
	if v < 1 {
		v = 1
	}
	if v > 100 {
		v = 100
	}
	return v
}
