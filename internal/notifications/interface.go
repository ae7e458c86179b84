// Package notifications delivers fill, rejection, and cooldown alerts
// to external channels. Delivery is fire-and-forget: a slow or dead
// channel must never stall the execution loop.
package notifications

// Topics published by the pipeline.
const (
	TopicOrderFilled   = "order_filled"
	TopicOrderRejected = "order_rejected"
	TopicCooldown      = "cooldown_entered"
	TopicLimitBreach   = "limit_breach"
)

// Notifier is the outbound alert port.
type Notifier interface {
	// Publish sends one alert. Implementations must not block the
	// caller on network I/O.
	Publish(topic, message, source string)
}

// NopNotifier discards every alert. Used when no channel is configured.
type NopNotifier struct{}

func (NopNotifier) Publish(topic, message, source string) {}
