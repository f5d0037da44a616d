package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
	_ "golang.org/x/image/webp"
)

var dataURIPrefix = regexp.MustCompile(`^data:[\w.+-]+/[\w.+-]+;base64,`)

var formatMime = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var formatExt = map[string]string{
	"png":  "png",
	"jpeg": "jpg",
	"gif":  "gif",
	"webp": "webp",
}

// DecodedImage is a validated image payload.
type DecodedImage struct {
	Data     []byte
	Format   string
	MimeType string
	Width    int
	Height   int
}

// DecodeImageDataURI strips an optional data-URI prefix, base64-decodes the
// rest and checks the bytes are an image we can name a type for.
func DecodeImageDataURI(s string) (DecodedImage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DecodedImage{}, apperr.NewValidation("imageBase64", "No image data provided")
	}
	payload := dataURIPrefix.ReplaceAllString(s, "")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return DecodedImage{}, apperr.NewValidation("imageBase64", "Image data is not valid base64")
		}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return DecodedImage{}, apperr.NewValidation("imageBase64", "Image data is not a supported image (png, jpeg, gif, webp)")
	}
	return DecodedImage{
		Data:     data,
		Format:   format,
		MimeType: formatMime[format],
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// DefaultImageName is generated-image-<unix ms>.<ext>.
func DefaultImageName(format string, now time.Time) string {
	ext := formatExt[format]
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("generated-image-%d.%s", now.UnixMilli(), ext)
}

// UploadImage stores a decoded image in Drive.
func (c *Client) UploadImage(ctx context.Context, img DecodedImage, name, folderID string) (models.DriveResource, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultImageName(img.Format, time.Now())
	}
	meta := fileMetadata{Name: name}
	if f := strings.TrimSpace(folderID); f != "" {
		meta.Parents = []string{f}
	}
	return c.upload(ctx, "drive_upload_image", meta, img.MimeType, img.Data)
}
