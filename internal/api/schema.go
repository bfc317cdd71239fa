package api

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// speakRequestSchema rejects malformed /speak bodies before they reach
// the gate. Unknown extra fields are allowed; metadata is open by design.
const speakRequestSchema = `{
  "type": "object",
  "required": ["trigger", "content"],
  "properties": {
    "trigger": {"type": "string", "minLength": 1},
    "content": {"type": "string"},
    "priority": {"type": "number", "minimum": 0, "maximum": 1},
    "source": {"type": "string"},
    "is_interrupt": {"type": "boolean"},
    "event_id": {"type": ["string", "null"]},
    "metadata": {"type": "object"}
  }
}`

var speakSchema = jsonschema.MustCompileString("speak_request.json", speakRequestSchema)

func validateSpeakBody(raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return speakSchema.Validate(payload)
}
