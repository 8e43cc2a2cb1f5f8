package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/dronecontrol/pkg/log"
	"github.com/autopeer-io/dronecontrol/pkg/mqtt"
	"github.com/autopeer-io/dronecontrol/pkg/mqtt/topic"
)

// ExampleClient shows how the pilot wires the MQTT client: subscribe to its
// command topic, announce itself as online and leave a will behind.
func ExampleClient() {
	topics := topic.NewBuilder("dronecontrol/v1")

	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "dronecontrol-drone-1",
		KeepAlive:      30,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,

		// The broker flips the online flag if the pilot disappears.
		WillTopic:   topics.Build("online", "drone-1"),
		WillPayload: []byte(`{"online":false}`),
		WillQoS:     1,
		WillRetain:  true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	// Start returns immediately; autopaho connects and reconnects in the background.
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}

	handler := func(ctx context.Context, msg mqtt.Message) {
		if msg.Retained {
			return
		}
		fmt.Printf("Received command on %s: %s\n", msg.Topic, string(msg.Payload))
	}

	// Subscriptions are replayed after a reconnect.
	cmdTopic := topics.Build("command", "drone-1")
	if err := client.Subscribe(ctx, cmdTopic, mqtt.AtLeastOnce, handler); err != nil {
		log.Error(err, "Failed to subscribe", "topic", cmdTopic)
	}

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	online := topics.Build("online", "drone-1")
	if err := client.Publish(ctx, online, mqtt.AtLeastOnce, true, []byte(`{"online":true}`)); err != nil {
		log.Error(err, "Failed to publish message", "topic", online)
	}

	client.Disconnect(ctx)
}
