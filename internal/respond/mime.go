package respond

import (
	"mime"
	"strings"
)

// builtinExtras covers extensions Go's stdlib mime package doesn't map by
// default on minimal systems (no /etc/mime.types), sourced from the kind
// of table original_source/src/server/rendering.rs hard-codes.
var builtinExtras = map[string]string{
	".md":   "text/markdown; charset=utf-8",
	".go":   "text/plain; charset=utf-8",
	".yaml": "application/x-yaml",
	".yml":  "application/x-yaml",
	".log":  "text/plain; charset=utf-8",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
}

// DefaultMIMETypes is the MIMETypes implementation wired by default: the
// stdlib mime table supplemented by builtinExtras.
type DefaultMIMETypes struct{}

// TypeByExtension implements MIMETypes.
func (DefaultMIMETypes) TypeByExtension(ext string) string {
	ext = strings.ToLower(ext)
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if t, ok := builtinExtras[ext]; ok {
		return t
	}
	return ""
}
