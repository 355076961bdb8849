package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ubilab-escape/operator/message"
)

// Location names a room whose LED strips are controlled as one group.
type Location int

const (
	LocationLobbyRoom Location = iota
	LocationMainRoom
	LocationServerRoom
)

var locationNames = [...]string{"LOBBYROOM", "MAINROOM", "SERVERROOM"}

func (l Location) String() string {
	if l < 0 || int(l) >= len(locationNames) {
		return "UNKNOWN"
	}
	return locationNames[l]
}

// LEDPattern is an animation pattern supported by the LED strip firmware.
type LEDPattern string

const (
	PatternRGB            LEDPattern = "solidColor"
	PatternWaves          LEDPattern = "colorwaves"
	PatternPaletteTest    LEDPattern = "palettetest"
	PatternPride          LEDPattern = "pride"
	PatternRainbow        LEDPattern = "rainbow"
	PatternRainbowGlitter LEDPattern = "rainbowWithGlitter"
	PatternConfetti       LEDPattern = "confetti"
	PatternSinelon        LEDPattern = "sinelon"
	PatternJuggle         LEDPattern = "juggle"
	PatternBPM            LEDPattern = "bpm"
	PatternFire           LEDPattern = "fire"
	PatternTimerprint     LEDPattern = "timerprint"
	PatternGlobes         LEDPattern = "globes"
	PatternStroboskop     LEDPattern = "stroboskop"
)

// RGB is a light color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// SingleLight sets one LED strip to a color, brightness and power state
// through three sequential publishes on its topic. Optionally a fourth
// publish selects an animation pattern.
type SingleLight struct {
	node
	topic      string
	target     message.State
	brightness int
	color      RGB
	pattern    LEDPattern
}

// NewSingleLight creates a light control leaf. target is ON or OFF,
// brightness is clamped to [0,255].
func NewSingleLight(name, topic string, target message.State, brightness int, color RGB) *SingleLight {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 255 {
		brightness = 255
	}
	return &SingleLight{
		node:       newNode(name, "SingleLightControlWorkflow", nil),
		topic:      topic,
		target:     target,
		brightness: brightness,
		color:      color,
	}
}

// SetPattern selects an animation pattern published alongside the color.
func (w *SingleLight) SetPattern(p LEDPattern) { w.pattern = p }

func (w *SingleLight) Execute(bus Bus) {
	w.state = StateActive
	w.publishRaw(bus, "rgb", w.color.String())
	w.publishRaw(bus, "brightness", w.brightness)
	if w.pattern != "" {
		w.publishRaw(bus, "pattern", string(w.pattern))
	}
	w.publishRaw(bus, "power", strings.ToLower(w.target.String()))
	w.finish(false)
}

// Skip is a no-op: the command is atomic.
func (w *SingleLight) Skip(string) {}

// publishRaw emits the strip firmware's non-standard trigger shape, whose
// state field carries the parameter name rather than a lifecycle state.
func (w *SingleLight) publishRaw(bus Bus, state string, data any) {
	payload, err := json.Marshal(struct {
		Method string `json:"method"`
		State  string `json:"state"`
		Data   any    `json:"data"`
	}{Method: "trigger", State: state, Data: data})
	if err != nil {
		w.logger.Error("Serialize light trigger failed", "error", err)
		return
	}
	if err := bus.Publish(w.topic, 2, false, payload); err != nil {
		w.logger.Error("Publish light trigger failed", "topic", w.topic, "error", err)
		return
	}
	w.logger.Debug("Light trigger published", "state", state, "data", data)
}

// lightTopics maps each room to the topics of its LED strips.
var lightTopics = map[Location][]struct{ name, topic string }{
	LocationLobbyRoom: {
		{"Control lobbyroom light", "2/ledstrip/lobby"},
	},
	LocationMainRoom: {
		{"Control mainroom light north", "2/ledstrip/labroom/north"},
		{"Control mainroom light south", "2/ledstrip/labroom/south"},
		{"Control mainroom light middle", "2/ledstrip/labroom/middle"},
	},
	LocationServerRoom: {
		{"Control serverroom light", "2/ledstrip/serverroom"},
	},
}

// NewLightControl operates every LED strip of a room as one atomic step. It
// is a Combined workflow over the room's SingleLight leaves, rendered as one
// graph node.
func NewLightControl(location Location, target message.State, brightness int, color RGB) *Combined {
	strips := lightTopics[location]
	children := make([]Workflow, 0, len(strips))
	for _, s := range strips {
		children = append(children, NewSingleLight(s.name, s.topic, target, brightness, color))
	}

	name := fmt.Sprintf("Turn %s %s lights (%d)/255", target.String(), location.String(), brightness)
	c := NewCombined(name, children, nil)
	c.typ = "LightControlWorkflow"
	return c
}
