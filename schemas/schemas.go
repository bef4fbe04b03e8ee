// Package schemas embeds the JSON Schemas for payloads exchanged with external services.
package schemas

import "embed"

// Schema file names.
const (
	Email   = "email.schema.json"
	Trigger = "trigger.schema.json"
)

//go:embed *.schema.json
var FS embed.FS
