package workflow

import (
	"encoding/json"
	"testing"
)

// fakeBus records every bus interaction in order.
type fakeBus struct {
	ops        []string // "pub <topic>", "sub <topic>", "unsub <topic>"
	published  []publication
	subscribed map[string]int
}

type publication struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{subscribed: make(map[string]int)}
}

func (b *fakeBus) Publish(topic string, qos byte, retained bool, payload []byte) error {
	b.ops = append(b.ops, "pub "+topic)
	b.published = append(b.published, publication{topic: topic, qos: qos, retained: retained, payload: payload})
	return nil
}

func (b *fakeBus) Subscribe(topic string) error {
	b.ops = append(b.ops, "sub "+topic)
	b.subscribed[topic]++
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.ops = append(b.ops, "unsub "+topic)
	b.subscribed[topic]--
	return nil
}

// publicationsTo returns the decoded JSON payloads published to a topic.
func (b *fakeBus) publicationsTo(t *testing.T, topic string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, p := range b.published {
		if p.topic != topic {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(p.payload, &m); err != nil {
			t.Fatalf("payload on %s is not JSON: %v", topic, err)
		}
		out = append(out, m)
	}
	return out
}

// recorder tracks parent callbacks for a node under test.
type recorder struct {
	finished []string
	failed   []error
}

func (r *recorder) attach(w Workflow) {
	w.RegisterOnFinished(func(name string) { r.finished = append(r.finished, name) })
	w.RegisterOnFailed(func(_ string, err error) { r.failed = append(r.failed, err) })
}
