package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/+/c", "a/b/c", true},
		{"a/+/c", "a/b/x/c", false},
		{"a/#", "a/b/c", true},
		{"a/+", "a/b/c", false},
		{"dronecontrol/v1/command/+", "dronecontrol/v1/command/drone-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"|"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, topicsMatch(tt.filter, tt.topic))
		})
	}
}

func TestTopicFilterStripsSharedPrefix(t *testing.T) {
	assert.Equal(t, "a/b/+", topicFilter("$share/group/a/b/+"))
	assert.Equal(t, "a/b/+", topicFilter("a/b/+"))
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{})
	assert.Error(t, err)

	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"})
	assert.NoError(t, err)
	assert.False(t, c.IsConnected())
}

type collector struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collector) handle(ctx context.Context, msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

func publish(c *pahoClient, topic string, payload string, retain bool) {
	_, _ = c.router(paho.PublishReceived{Packet: &paho.Publish{Topic: topic, Payload: []byte(payload), Retain: retain}})
}

func TestRouterDeliversInOrder(t *testing.T) {
	c := &pahoClient{cfg: &ClientConfig{}}
	col := &collector{}
	c.register("dronecontrol/v1/command/+", AtLeastOnce, col.handle, SubscribeOptions{})
	t.Cleanup(func() { c.unregister("dronecontrol/v1/command/+") })

	for i := 0; i < 20; i++ {
		publish(c, "dronecontrol/v1/command/drone-1", fmt.Sprint(i), i == 0)
	}
	publish(c, "dronecontrol/v1/status/drone-1", "ignored", false)

	require.Eventually(t, func() bool { return len(col.received()) == 20 }, time.Second, 5*time.Millisecond)
	msgs := col.received()
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprint(i), string(m.Payload))
		assert.Equal(t, "dronecontrol/v1/command/drone-1", m.Topic)
		assert.False(t, m.Received.IsZero())
	}
	assert.True(t, msgs[0].Retained)
	assert.False(t, msgs[1].Retained)
}

func TestRegisterReplacesHandler(t *testing.T) {
	c := &pahoClient{cfg: &ClientConfig{}}
	first, second := &collector{}, &collector{}

	c.register("a/b", AtMostOnce, first.handle, SubscribeOptions{})
	c.register("a/b", AtMostOnce, second.handle, SubscribeOptions{})
	publish(c, "a/b", "x", false)

	require.Eventually(t, func() bool { return len(second.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, first.received())

	c.unregister("a/b")
	publish(c, "a/b", "y", false)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, second.received(), 1)
}

func TestRouterOverflow(t *testing.T) {
	c := &pahoClient{cfg: &ClientConfig{}}
	release := make(chan struct{})
	var handled atomic.Int32
	dropped := &collector{}
	c.register("a/b", AtLeastOnce, func(ctx context.Context, msg Message) {
		<-release
		handled.Add(1)
	}, NewSubscribeOptions(WithOverflow(dropped.handle)))
	t.Cleanup(func() { c.unregister("a/b") })

	// One message is held by the blocked handler, inboxSize more fill the inbox.
	publish(c, "a/b", "held", false)
	require.Eventually(t, func() bool {
		sub, _ := c.subscriptions.Load("a/b")
		return len(sub.(*subscription).inbox) == 0
	}, time.Second, time.Millisecond)
	for i := 0; i < inboxSize; i++ {
		publish(c, "a/b", fmt.Sprint(i), false)
	}
	publish(c, "a/b", "late", false)

	require.Eventually(t, func() bool { return len(dropped.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "late", string(dropped.received()[0].Payload))

	close(release)
	require.Eventually(t, func() bool { return handled.Load() == inboxSize+1 }, time.Second, 5*time.Millisecond)
}
