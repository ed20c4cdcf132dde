// Package schemas embeds the JSON Schemas used to check payloads from
// external services before they are trusted.
package schemas

import _ "embed"

// AllocationProposal is the schema for the validation service's
// per-invoice decision payload.
//
//go:embed allocation_proposal.schema.json
var AllocationProposal string
