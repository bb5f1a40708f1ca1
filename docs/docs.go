// Package docs embeds the OpenAPI description served under /swagger.
package docs

import _ "embed"

//go:embed swagger.json
var SwaggerJSON []byte
