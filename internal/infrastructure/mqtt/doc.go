// Package mqtt provides MQTT client connectivity for KHome Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// KHome uses MQTT as the message bus connecting the Core to field devices
// (nodes). The broker (Mosquitto) decouples the Core from individual device
// firmware and lets multiple operator frontends share the same bus.
//
//	Operator Frontends ↔ MQTT Broker ↔ KHome Core
//	                         ↕
//	                    Field Nodes
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all module data reports
//	err = client.Subscribe(mqtt.Topics{}.AllModuleData(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a signal to a module
//	topic := mqtt.Topics{}.SignalModule("a1b2c3", "relay0")
//	client.Publish(topic, []byte(`"1"`), 1, false)
package mqtt
