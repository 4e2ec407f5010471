// Package bot implements the messaging-platform side of the service:
// webhook verification and dispatch, command routing, reply delivery
// and user-facing formatting.
package bot

// WebhookRequest is the callback body the platform POSTs: a batch of
// events for one bot destination.
type WebhookRequest struct {
	Destination string         `json:"destination"`
	Events      []WebhookEvent `json:"events"`
}

// WebhookEvent is one platform event. Message and Postback are set
// according to Type.
type WebhookEvent struct {
	Type            string          `json:"type"`
	WebhookEventID  string          `json:"webhookEventId"`
	Timestamp       int64           `json:"timestamp"`
	ReplyToken      string          `json:"replyToken"`
	Source          EventSource     `json:"source"`
	Message         *EventMessage   `json:"message,omitempty"`
	Postback        *EventPostback  `json:"postback,omitempty"`
	DeliveryContext DeliveryContext `json:"deliveryContext"`
}

// EventSource identifies who triggered the event.
type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// EventMessage is the message payload of a message event. Text is only
// set for text messages; image bytes are fetched separately through the
// content API using ID.
type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// EventPostback carries the data string of a pressed postback button.
type EventPostback struct {
	Data string `json:"data"`
}

// DeliveryContext marks platform-side redeliveries.
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}
