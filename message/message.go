// Package message implements the payload contract shared with the puzzle and
// actuator firmware: a JSON object with the fields method, state and data.
//
// Enum names are matched case-insensitively on parse and written lower-case
// on serialize, which is the format the current generation of peers emits.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Method identifies the kind of a bus message.
type Method int

const (
	MethodMessage Method = iota
	MethodStatus
	MethodTrigger
)

var methodNames = map[Method]string{
	MethodMessage: "MESSAGE",
	MethodStatus:  "STATUS",
	MethodTrigger: "TRIGGER",
}

// String returns the canonical upper-case name of the method.
func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// MarshalJSON writes the method as a lower-case JSON string.
func (m Method) MarshalJSON() ([]byte, error) {
	s, ok := methodNames[m]
	if !ok {
		return nil, fmt.Errorf("unknown method %d", int(m))
	}
	return json.Marshal(strings.ToLower(s))
}

// State is the lifecycle or trigger state carried by a message.
type State int

const (
	StateOff State = iota
	StateOn
	StateInactive
	StateActive
	StateSolved
	StateFailed
	StateNone
)

var stateNames = map[State]string{
	StateOff:      "OFF",
	StateOn:       "ON",
	StateInactive: "INACTIVE",
	StateActive:   "ACTIVE",
	StateSolved:   "SOLVED",
	StateFailed:   "FAILED",
	StateNone:     "NONE",
}

// String returns the canonical upper-case name of the state.
func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalJSON writes the state as a lower-case JSON string.
func (s State) MarshalJSON() ([]byte, error) {
	n, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return json.Marshal(strings.ToLower(n))
}

// InvalidMessageError reports a payload whose method or state field is
// missing or names an unknown enum value.
type InvalidMessageError struct {
	Field string
	Value string
}

func (e *InvalidMessageError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("message attribute %q is missing", e.Field)
	}
	return fmt.Sprintf("message %s %q is not valid", e.Field, e.Value)
}

// Message is the data transfer object for communication with the puzzle
// micro-controllers and actuators. Field order is fixed so serialization is
// deterministic and round-trips byte-for-byte.
type Message struct {
	Method Method `json:"method"`
	State  State  `json:"state"`
	Data   any    `json:"data"`
}

// JSON serializes the message with lower-case enum names in the fixed key
// order method, state, data.
func (m Message) JSON() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}
	return b, nil
}

// Parse decodes a bus payload into a Message.
//
// A payload that is not valid JSON degrades to {MESSAGE, NONE, <raw text>};
// the degraded message is returned together with the decode error so callers
// choose between leniency and failure. A payload with an unknown method or
// state fails with *InvalidMessageError naming the offending field. A
// missing state is accepted only for the MESSAGE method, where it becomes
// NONE.
func Parse(payload []byte) (Message, error) {
	var raw struct {
		Method *string `json:"method"`
		State  *string `json:"state"`
		Data   any     `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		fallback := Message{Method: MethodMessage, State: StateNone, Data: string(payload)}
		return fallback, fmt.Errorf("decode payload: %w", err)
	}

	if raw.Method == nil || *raw.Method == "" {
		return Message{}, &InvalidMessageError{Field: "method"}
	}
	method, ok := lookupMethod(*raw.Method)
	if !ok {
		return Message{}, &InvalidMessageError{Field: "method", Value: *raw.Method}
	}

	var state State
	switch {
	case raw.State == nil || *raw.State == "":
		if method != MethodMessage {
			return Message{}, &InvalidMessageError{Field: "state"}
		}
		state = StateNone
	default:
		s, ok := lookupState(*raw.State)
		if !ok {
			return Message{}, &InvalidMessageError{Field: "state", Value: *raw.State}
		}
		state = s
	}

	return Message{Method: method, State: state, Data: raw.Data}, nil
}

func lookupMethod(name string) (Method, bool) {
	upper := strings.ToUpper(name)
	for m, n := range methodNames {
		if n == upper {
			return m, true
		}
	}
	return 0, false
}

func lookupState(name string) (State, bool) {
	upper := strings.ToUpper(name)
	for s, n := range stateNames {
		if n == upper {
			return s, true
		}
	}
	return 0, false
}
