package workflow

import (
	"encoding/json"
	"fmt"
)

// DefaultParticipants is assumed when the operator does not configure a
// group size.
const DefaultParticipants = 4

// Options is the parsed gameOptions blob consumed at session start.
type Options struct {
	// Participants is the group size, defaulted when absent.
	Participants int `json:"participants"`

	// Duration is the game duration in minutes. Required: it arms the
	// countdown timer.
	Duration int `json:"duration"`

	// SkipTo names a top-level room to rewind the session to; every
	// top-level child before the match starts out SKIPPED.
	SkipTo string `json:"skipTo,omitempty"`
}

// ParseOptions decodes a gameOptions payload, applying defaults.
func ParseOptions(payload []byte) (Options, error) {
	opts := Options{Participants: DefaultParticipants}
	if err := json.Unmarshal(payload, &opts); err != nil {
		return Options{}, fmt.Errorf("decode game options: %w", err)
	}
	if opts.Participants <= 0 {
		opts.Participants = DefaultParticipants
	}
	return opts, nil
}

// Validate checks that the options can start a session.
func (o Options) Validate() error {
	if o.Duration <= 0 {
		return fmt.Errorf("game options: duration (minutes) is required")
	}
	return nil
}

// Factory instantiates a workflow definition: the top-level children the
// controller wraps in its root sequence.
type Factory interface {
	Create(opts Options) []Workflow
}
