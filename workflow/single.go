package workflow

import (
	"encoding/json"

	"github.com/ubilab-escape/operator/message"
)

// Single-command workflows fire one action and report finished immediately:
// they never subscribe, and Skip is a no-op because the command is atomic.
// Side effects live entirely in Execute, so a skipped-before-execute node
// still produces no bus traffic.

// SendTrigger publishes a single trigger with a target state to a topic.
type SendTrigger struct {
	node
	topic  string
	target message.State
}

// NewSendTrigger creates a fire-and-forget trigger leaf.
func NewSendTrigger(name, topic string, target message.State) *SendTrigger {
	return &SendTrigger{node: newNode(name, "SendTriggerWorkflow", nil), topic: topic, target: target}
}

func (w *SendTrigger) Execute(bus Bus) {
	w.state = StateActive
	if w.topic != "" {
		payload, err := message.Message{Method: message.MethodTrigger, State: w.target}.JSON()
		if err != nil {
			w.logger.Error("Serialize trigger failed", "error", err)
		} else if err := bus.Publish(w.topic, 2, false, payload); err != nil {
			w.logger.Error("Publish trigger failed", "topic", w.topic, "error", err)
		} else {
			w.logger.Info("Trigger sent", "state", w.target.String(), "topic", w.topic)
		}
	}
	w.finish(false)
}

// Skip is a no-op: the command is atomic.
func (w *SendTrigger) Skip(string) {}

// SendMessage publishes one MESSAGE with state NONE and an arbitrary data
// value to a topic.
type SendMessage struct {
	node
	topic string
	data  any
}

// NewSendMessage creates a fire-and-forget message leaf.
func NewSendMessage(name, topic string, data any) *SendMessage {
	return &SendMessage{node: newNode(name, "SendMessageWorkflow", nil), topic: topic, data: data}
}

func (w *SendMessage) Execute(bus Bus) {
	w.state = StateActive
	if w.topic != "" {
		payload, err := message.Message{Method: message.MethodMessage, State: message.StateNone, Data: w.data}.JSON()
		if err != nil {
			w.logger.Error("Serialize message failed", "error", err)
		} else if err := bus.Publish(w.topic, 2, false, payload); err != nil {
			w.logger.Error("Publish message failed", "topic", w.topic, "error", err)
		} else {
			w.logger.Info("Message sent", "topic", w.topic, "data", w.data)
		}
	}
	w.finish(false)
}

// Skip is a no-op: the command is atomic.
func (w *SendMessage) Skip(string) {}

// TTSTopic is the fixed topic of the room's text-to-speech service.
const TTSTopic = "2/textToSpeech"

// TTSAudio speaks a text or plays an audio file over the room's audio
// system.
type TTSAudio struct {
	node
	payload  string
	fromFile bool
}

// NewTTSAudio creates a text-to-speech leaf. payload is either the text to
// speak or, when fromFile is set, the file location of the audio to play.
func NewTTSAudio(name, payload string, fromFile bool) *TTSAudio {
	return &TTSAudio{node: newNode(name, "TTSAudioWorkflow", nil), payload: payload, fromFile: fromFile}
}

func (w *TTSAudio) Execute(bus Bus) {
	w.state = StateActive

	var body any
	if w.fromFile {
		body = struct {
			Method       string `json:"method"`
			PlayFromFile bool   `json:"play_from_file"`
			FileLocation string `json:"file_location"`
		}{Method: "message", PlayFromFile: true, FileLocation: w.payload}
	} else {
		body = struct {
			Method string `json:"method"`
			Data   string `json:"data"`
		}{Method: "message", Data: w.payload}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		w.logger.Error("Serialize TTS payload failed", "error", err)
	} else if err := bus.Publish(TTSTopic, 2, false, payload); err != nil {
		w.logger.Error("Publish TTS failed", "error", err)
	} else {
		w.logger.Info("TTS published", "from_file", w.fromFile)
	}
	w.finish(false)
}

// Skip is a no-op: the command is atomic.
func (w *TTSAudio) Skip(string) {}
