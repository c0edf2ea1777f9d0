package storage

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

var extTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".json": "application/json",
	".xml":  "application/xml",
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
}

// ContentTypeFromExt maps a file extension to a MIME type
func ContentTypeFromExt(filename string) string {
	if t, ok := extTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return octetStream
}

// ResolveContentType keeps the type the browser declared unless it is empty
// or generic, in which case the content is sniffed. Extension lookup is the
// last resort.
func ResolveContentType(filename string, data []byte, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != octetStream {
		return declared
	}

	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil && mt.String() != octetStream {
			// Plain text sniffing cannot tell csv from markdown; the name can.
			if mt.Is("text/plain") {
				if byExt := ContentTypeFromExt(filename); byExt != octetStream {
					return byExt
				}
			}
			return mt.String()
		}
	}

	return ContentTypeFromExt(filename)
}
