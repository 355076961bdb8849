// Package definition holds the workflow definitions the operator can run.
// Definitions register themselves by name at init time and are selected
// through configuration.
package definition

import (
	"fmt"
	"sort"

	"github.com/ubilab-escape/operator/workflow"
)

// Settings carries the per-deployment values a definition needs to build its
// tree.
type Settings struct {
	// SuccessSound is the audio file played by the exit workflow.
	SuccessSound string

	// ClockTopic is the game clock's seconds topic, used by delay steps.
	ClockTopic string
}

// Builder constructs a workflow factory for the given deployment settings.
type Builder func(Settings) workflow.Factory

var registry = make(map[string]Builder)

// Register adds a definition under a unique name. It panics on duplicates,
// which only happen through programmer error at init time.
func Register(name string, b Builder) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("definition %q registered twice", name))
	}
	registry[name] = b
}

// Lookup returns the builder registered under name.
func Lookup(name string) (Builder, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown workflow definition %q (available: %v)", name, Names())
	}
	return b, nil
}

// Names returns the registered definition names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
