package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing messages at 1MB, in line with typical
// broker limits. Hub traffic is tiny JSON; anything near the cap is a
// bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends a message to the given topic and waits for the broker
// acknowledgment, bounded by the publish timeout. Retained messages
// are stored by the broker and replayed to new subscribers; the hub
// uses them only for status topics, never for commands.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString publishes a string payload, the common case for the
// hub's quote-packed agent messages.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}
