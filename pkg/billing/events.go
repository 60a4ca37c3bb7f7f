package billing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType enumerates the processor webhook events the reconciler handles.
// Anything else maps to EventUnhandled, which is acknowledged without a state
// change for forward compatibility with processor event additions.
type EventType string

const (
	EventSubscriptionActivated        EventType = "SUBSCRIPTION.ACTIVATED"
	EventSubscriptionPaymentCompleted EventType = "SUBSCRIPTION.PAYMENT.COMPLETED"
	EventSubscriptionPaymentFailed    EventType = "SUBSCRIPTION.PAYMENT.FAILED"
	EventSubscriptionCancelled        EventType = "SUBSCRIPTION.CANCELLED"
	EventSubscriptionSuspended        EventType = "SUBSCRIPTION.SUSPENDED"
	EventSaleCompleted                EventType = "PAYMENT.SALE.COMPLETED"
	EventUnhandled                    EventType = "UNHANDLED"
)

// Event is the normalized webhook event, decoded once at the boundary.
// The loosely-typed processor body is reduced to the few correlation fields
// the reconciler is allowed to trust; everything else stays in Raw for
// logging and audit.
type Event struct {
	Type           EventType
	ProviderType   string // original processor event name
	ID             string // processor event identity, used for delivery dedup
	CorrelationKey string // locally generated key round-tripped via custom/custom_id
	SubscriptionID string // processor's recurring subscription identity
	SaleID         string // one-time payment identity
	Raw            json.RawMessage
}

type eventEnvelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type eventResource struct {
	ID                 string `json:"id"`
	CustomID           string `json:"custom_id"`
	Custom             string `json:"custom"`
	BillingAgreementID string `json:"billing_agreement_id"`
}

// ParseEvent decodes a raw webhook payload into the Event tagged union.
//
// It fails only for structural problems: unparseable JSON, a missing
// event_type, or a missing correlation field for an event type that requires
// one. Those are the cases the webhook endpoint answers with 400; a
// correlation key that parses but matches nothing locally is a business-level
// no-op handled further in.
func ParseEvent(payload []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrMalformedEvent)
	}

	var res eventResource
	if len(env.Resource) > 0 {
		if err := json.Unmarshal(env.Resource, &res); err != nil {
			return nil, errors.Join(ErrMalformedEvent, err)
		}
	}

	ev := &Event{
		ProviderType: env.EventType,
		ID:           env.ID,
		Raw:          env.Resource,
	}

	switch EventType(env.EventType) {
	case EventSubscriptionActivated:
		ev.Type = EventSubscriptionActivated
		ev.SubscriptionID = res.ID
		ev.CorrelationKey = res.CustomID
		if ev.CorrelationKey == "" {
			return nil, fmt.Errorf("%w: %s without custom_id", ErrMissingCorrelationKey, env.EventType)
		}

	case EventSubscriptionPaymentCompleted, EventSubscriptionPaymentFailed:
		t := EventType(env.EventType)
		ev.Type = t
		// Recurring payment events reference the subscription through
		// billing_agreement_id; resource.id is the payment itself.
		ev.SubscriptionID = res.BillingAgreementID
		if ev.SubscriptionID == "" {
			ev.SubscriptionID = res.ID
		}
		if ev.SubscriptionID == "" {
			return nil, fmt.Errorf("%w: %s without subscription reference", ErrMissingCorrelationKey, env.EventType)
		}

	case EventSubscriptionCancelled, EventSubscriptionSuspended:
		ev.Type = EventType(env.EventType)
		ev.SubscriptionID = res.ID
		if ev.SubscriptionID == "" {
			return nil, fmt.Errorf("%w: %s without subscription id", ErrMissingCorrelationKey, env.EventType)
		}

	case EventSaleCompleted:
		ev.Type = EventSaleCompleted
		ev.SaleID = res.ID
		ev.CorrelationKey = res.Custom
		if ev.CorrelationKey == "" {
			return nil, fmt.Errorf("%w: %s without custom field", ErrMissingCorrelationKey, env.EventType)
		}

	default:
		ev.Type = EventUnhandled
	}

	return ev, nil
}
