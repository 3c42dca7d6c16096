// Package web holds the HTML pages served by the root routes.
package web

import _ "embed"

//go:embed views/index.html
var IndexHTML []byte

//go:embed views/404.html
var NotFoundHTML []byte
