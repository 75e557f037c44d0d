package payment

import "encoding/json"

// WebhookEvent is a gateway callback event name.
type WebhookEvent string

const (
	EventApproved WebhookEvent = "payment.approved"
	EventRefused  WebhookEvent = "payment.refused"
)

// ParseWebhookEvent maps a raw event name to a known event. ok is false for
// events this service does not act on.
func ParseWebhookEvent(raw string) (WebhookEvent, bool) {
	switch e := WebhookEvent(raw); e {
	case EventApproved, EventRefused:
		return e, true
	default:
		return "", false
	}
}

// TargetStatus is the payment status an event moves a payment to.
func (e WebhookEvent) TargetStatus() PaymentStatus {
	switch e {
	case EventApproved:
		return StatusApproved
	case EventRefused:
		return StatusRefused
	default:
		return ""
	}
}

// ResultMessage is the acknowledgement returned to the gateway once the event is applied.
func (e WebhookEvent) ResultMessage() string {
	switch e {
	case EventApproved:
		return "Payment processed successfully"
	case EventRefused:
		return "Payment refusal processed"
	default:
		return ""
	}
}

// WebhookData is the event-specific object sent by the gateway. ID is the
// gateway identifier; Raw keeps the full object so it can replace the stored
// gateway data.
type WebhookData struct {
	ID  string
	Raw json.RawMessage
}
