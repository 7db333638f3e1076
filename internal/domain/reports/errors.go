package reports

import "errors"

// ErrMalformedResponse indicates the AI backend returned text that is not a JSON object.
var ErrMalformedResponse = errors.New("malformed ai response")

// ErrSchemaViolation indicates the AI JSON parsed but violates the report schema.
var ErrSchemaViolation = errors.New("ai response schema violation")
