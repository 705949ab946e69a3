package webhooks

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/fieldline/go-autopilot/core"
)

type eventEnvelope struct {
	Topic      string `json:"topic"`
	ItemID     string `json:"itemId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	OccurredAt string `json:"occurredAt"`
}

// ParseEvent decodes a delivery payload into a pipeline event. Topic and item
// id are mandatory, everything else is telemetry the downstream stages treat
// as best effort.
func ParseEvent(body []byte) (core.Event, error) {
	if len(body) == 0 {
		return core.Event{}, badPayload(nil, "webhooks: request body is required", nil)
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.Event{}, badPayload(err, "webhooks: payload is not valid JSON", nil)
	}

	topic := core.Topic(strings.TrimSpace(envelope.Topic))
	if topic == "" {
		return core.Event{}, badPayload(nil, "webhooks: topic is required", nil)
	}
	itemID := strings.TrimSpace(envelope.ItemID)
	if itemID == "" {
		return core.Event{}, badPayload(nil, "webhooks: itemId is required", nil)
	}

	event := core.Event{
		Topic:    topic,
		ItemID:   itemID,
		UserID:   strings.TrimSpace(envelope.UserID),
		UserName: strings.TrimSpace(envelope.UserName),
	}
	if raw := strings.TrimSpace(envelope.OccurredAt); raw != "" {
		occurredAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return core.Event{}, badPayload(err, "webhooks: occurredAt must be RFC3339", nil)
		}
		event.OccurredAt = occurredAt
	}
	return event, nil
}
