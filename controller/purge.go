package controller

import (
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/ubilab-escape/operator/config"
)

// RetainedPurge deletes every retained message on the broker except the
// operator's own control and options topics. It shells out to mosquitto_sub's
// --remove-retained mode because the client library offers no broker-side
// sweep.
type RetainedPurge struct {
	command string
	host    string
	keep    []string
	logger  *slog.Logger
}

// NewRetainedPurge creates a purger for the configured broker. Returns nil
// when purging is disabled, which the controller treats as a no-op.
func NewRetainedPurge(cfg *config.Config) *RetainedPurge {
	if !cfg.Purge.Enabled {
		return nil
	}
	return &RetainedPurge{
		command: cfg.Purge.Command,
		host:    cfg.MQTT.Host,
		keep:    []string{cfg.Topics.Control(), cfg.Topics.Options()},
		logger:  slog.Default().With("component", "purge"),
	}
}

// Purge launches the sweep in the background; the subscriber exits on its own
// once the broker has replayed all retained messages.
func (p *RetainedPurge) Purge() error {
	args := p.args()
	cmd := exec.Command(p.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.command, err)
	}
	p.logger.Info("Purging retained messages", "command", p.command, "args", args)
	go func() {
		if err := cmd.Wait(); err != nil {
			p.logger.Warn("Purge command exited with error", "error", err)
		}
	}()
	return nil
}

func (p *RetainedPurge) args() []string {
	args := []string{"-h", p.host, "-t", "#"}
	for _, topic := range p.keep {
		args = append(args, "-T", topic)
	}
	return append(args, "--remove-retained", "--retained-only", "-W", "5")
}
