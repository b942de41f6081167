// Package schemas embeds the JSON Schemas for the config file and the agent
// tool arguments.
package schemas

import _ "embed"

//go:embed config.schema.json
var ConfigSchemaJSON string

//go:embed policy_lookup.schema.json
var PolicyLookupSchemaJSON string

//go:embed risk_scoring.schema.json
var RiskScoringSchemaJSON string

//go:embed triage_logger.schema.json
var TriageLoggerSchemaJSON string
