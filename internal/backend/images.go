package backend

import (
	"encoding/json"
	"strings"
)

// ParseImages decodes the catalog's JSON-encoded list of image paths into
// absolute URLs. Malformed input yields no images.
func ParseImages(images *string, uploadsURL string) []string {
	out := []string{}
	if images == nil || strings.TrimSpace(*images) == "" {
		return out
	}

	var paths []string
	if err := json.Unmarshal([]byte(*images), &paths); err != nil {
		return out
	}
	for _, p := range paths {
		if u := ImageURL(p, uploadsURL); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ImageURL resolves one image path against the uploads prefix. Absolute URLs
// are returned as is; a blank path gives "".
func ImageURL(path, uploadsURL string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(uploadsURL, "/") + "/" + strings.TrimLeft(path, "/")
}
