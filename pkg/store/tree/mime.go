package tree

import (
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// defaultMime is reported for files whose type cannot be determined.
const defaultMime = "application/octet-stream"

// baselineTypes pins common extensions so results do not depend on the
// host's mime.types files.
var baselineTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
}

func init() {
	for ext, typ := range baselineTypes {
		_ = mime.AddExtensionType(ext, typ)
	}
}

// mimeOf infers the media type of the file at abs from its extension.
// With sniffing enabled, unknown extensions fall back to content detection.
func (s *Store) mimeOf(abs string) string {
	if typ := mime.TypeByExtension(filepath.Ext(abs)); typ != "" {
		return mediaType(typ)
	}

	if s.sniffMime {
		if detected, err := mimetype.DetectFile(abs); err == nil {
			return mediaType(detected.String())
		}
	}

	return defaultMime
}

// mediaType strips parameters such as "; charset=utf-8".
func mediaType(typ string) string {
	media, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return typ
	}
	return media
}
