// Package views holds the HTML templates compiled into the binary.
package views

import "embed"

//go:embed layouts/*.html pages/*.html partials/*.html
var FS embed.FS
