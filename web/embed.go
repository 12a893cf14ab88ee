package web

import "embed"

// Templates embeds HTML document templates.
//
//go:embed templates/*/*.html
var Templates embed.FS
