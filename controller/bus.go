package controller

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ubilab-escape/operator/config"
)

// opTimeout bounds every broker round trip.
const opTimeout = 10 * time.Second

// inboundQueueSize buffers inbound messages between the client library's
// routing goroutine and the dispatch goroutine. At one clock tick per second
// this is minutes of headroom.
const inboundQueueSize = 256

// InboundHandler receives every message the broker delivers to this client.
type InboundHandler func(topic string, payload []byte)

type inboundMessage struct {
	topic   string
	payload []byte
}

// PahoBus adapts the Eclipse Paho client to the workflow.Bus interface. The
// session is persistent and auto-reconnecting; active subscriptions are
// re-established on every reconnect in case the broker dropped the session.
//
// Inbound delivery is decoupled from dispatch: the client library invokes the
// message handler inline on its routing goroutine, and the dispatch path
// publishes and waits for QoS acknowledgements on the same connection. A
// handler that blocked there would stop the routing goroutine from reading
// the very acknowledgement it is waiting for. The handler therefore only
// enqueues, and a single dispatch goroutine drains the queue in arrival
// order.
type PahoBus struct {
	client mqtt.Client
	logger *slog.Logger
	queue  chan inboundMessage
	done   chan struct{}

	mu     sync.Mutex
	topics map[string]struct{}
}

// NewPahoBus creates a disconnected bus. Every inbound message, regardless of
// topic, is delivered to handler from the bus's dispatch goroutine, one
// message at a time in arrival order.
func NewPahoBus(cfg *config.Config, handler InboundHandler) *PahoBus {
	b := &PahoBus{
		logger: slog.Default().With("component", "bus"),
		queue:  make(chan inboundMessage, inboundQueueSize),
		done:   make(chan struct{}),
		topics: make(map[string]struct{}),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.URL()).
		SetClientID(cfg.MQTT.ClientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetOrderMatters(true)

	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		b.deliver(msg.Topic(), msg.Payload())
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		b.logger.Info("Connected to broker", "url", cfg.MQTT.URL())
		b.resubscribe(client)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.Warn("Connection to broker lost", "error", err)
	})

	b.client = mqtt.NewClient(opts)
	go b.dispatch(handler)
	return b
}

// deliver hands one inbound message to the dispatch goroutine. It must never
// wait on a broker round trip itself; the buffered queue is the only thing it
// can block on.
func (b *PahoBus) deliver(topic string, payload []byte) {
	b.queue <- inboundMessage{topic: topic, payload: payload}
}

func (b *PahoBus) dispatch(handler InboundHandler) {
	defer close(b.done)
	for msg := range b.queue {
		handler(msg.topic, msg.payload)
	}
}

func (b *PahoBus) resubscribe(client mqtt.Client) {
	b.mu.Lock()
	topics := make([]string, 0, len(b.topics))
	for topic := range b.topics {
		topics = append(topics, topic)
	}
	b.mu.Unlock()

	for _, topic := range topics {
		if err := wait(client.Subscribe(topic, 0, nil)); err != nil {
			b.logger.Error("Resubscribe failed", "topic", topic, "error", err)
		}
	}
}

// Connect establishes the broker session.
func (b *PahoBus) Connect() error {
	if err := wait(b.client.Connect()); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Disconnect flushes in-flight messages, closes the session and drains the
// dispatch queue.
func (b *PahoBus) Disconnect() {
	b.client.Disconnect(250)
	close(b.queue)
	<-b.done
	b.logger.Info("Disconnected from broker")
}

func (b *PahoBus) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if err := wait(b.client.Publish(topic, qos, retained, payload)); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (b *PahoBus) Subscribe(topic string) error {
	// A nil callback routes the topic to the default publish handler.
	if err := wait(b.client.Subscribe(topic, 0, nil)); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	b.mu.Lock()
	b.topics[topic] = struct{}{}
	b.mu.Unlock()
	return nil
}

func (b *PahoBus) Unsubscribe(topic string) error {
	if err := wait(b.client.Unsubscribe(topic)); err != nil {
		return fmt.Errorf("unsubscribe from %s: %w", topic, err)
	}
	b.mu.Lock()
	delete(b.topics, topic)
	b.mu.Unlock()
	return nil
}

func wait(token mqtt.Token) error {
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("broker operation timed out after %s", opTimeout)
	}
	return token.Error()
}
