package dashboard

import (
	"encoding/base64"
	"html/template"
	"net/http"
	"os"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// LoadBackground reads the image at path and returns a CSS declaration that
// embeds it as a data URL.
func LoadBackground(path string) (template.CSS, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read background image %s", path)
	}
	mime := http.DetectContentType(raw)
	switch mime {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return "", errors.NewValidationError("background_path", "not a supported image type", mime)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	return template.CSS(`background-image: url("data:` + mime + `;base64,` + encoded + `");`), nil
}
