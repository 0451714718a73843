// Package schemas holds the embedded JSON Schemas for API payloads.
package schemas

import _ "embed"

// StartRequestSchemaJSON is the JSON Schema for POST /evaluation/start bodies.
//
//go:embed start_request.schema.json
var StartRequestSchemaJSON string
