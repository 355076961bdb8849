// Package controller wires the broker connection, the game clock and the
// workflow tree into one running escape-room session. All session mutations
// are serialized behind a single mutex, which is what lets the workflow tree
// stay lock-free.
package controller

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ubilab-escape/operator/config"
	"github.com/ubilab-escape/operator/gametimer"
	"github.com/ubilab-escape/operator/message"
	"github.com/ubilab-escape/operator/workflow"
)

// GameState is the lifecycle state of the session.
type GameState int

const (
	GameStopped GameState = iota
	GameStarted
	GamePaused
)

var gameStateNames = [...]string{"STOPPED", "STARTED", "PAUSED"}

func (s GameState) String() string {
	if s < 0 || int(s) >= len(gameStateNames) {
		return "UNKNOWN"
	}
	return gameStateNames[s]
}

// Purger removes stale retained messages from the broker. A nil purger
// disables purging.
type Purger interface {
	Purge() error
}

// Controller owns one escape-room session: it dispatches operator commands,
// routes puzzle messages into the workflow tree, drives the game clock and
// keeps the dashboard snapshot current.
type Controller struct {
	cfg     *config.Config
	bus     workflow.Bus
	factory workflow.Factory
	purger  Purger
	timer   *gametimer.Timer
	logger  *slog.Logger

	mu        sync.Mutex
	game      GameState
	sessionID string
	options   *workflow.Options
	root      *workflow.Sequence
	lastGraph []byte
}

// New creates a controller on the given bus. purger may be nil.
func New(cfg *config.Config, bus workflow.Bus, factory workflow.Factory, purger Purger) *Controller {
	c := &Controller{
		cfg:     cfg,
		bus:     bus,
		factory: factory,
		purger:  purger,
		logger:  slog.Default().With("component", "controller"),
	}
	c.timer = gametimer.New(bus, cfg.Topics.GameTime(), time.Duration(cfg.Timer.Interval))
	return c
}

// Subscribe registers the operator's own command topics on the bus.
func (c *Controller) Subscribe() error {
	if err := c.bus.Subscribe(c.cfg.Topics.Control()); err != nil {
		return fmt.Errorf("subscribe control topic: %w", err)
	}
	if err := c.bus.Subscribe(c.cfg.Topics.Options()); err != nil {
		return fmt.Errorf("subscribe options topic: %w", err)
	}
	c.logger.Info("Waiting for game control commands", "topic", c.cfg.Topics.Control())
	return nil
}

// Shutdown stops a running session and releases the game clock.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// State returns the current session state.
func (c *Controller) State() GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

// HandleMessage is the single entry point for every inbound bus message.
// The dashboard snapshot is re-published after each message, de-duplicated
// against the previous one.
func (c *Controller) HandleMessage(topic string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metricMessages.Inc()

	switch topic {
	case c.cfg.Topics.Control():
		c.handleCommandLocked(string(payload))
	case c.cfg.Topics.Options():
		c.saveOptionsLocked(payload)
	default:
		if c.root != nil {
			c.root.OnMessage(topic, payload)
		}
	}

	c.publishGameStateLocked()
}

func (c *Controller) handleCommandLocked(raw string) {
	cmd := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case cmd == "":
		// Retained tombstone left after a finished game.
	case cmd == "START":
		c.startLocked()
	case cmd == "STOP":
		c.stopLocked()
	case cmd == "PAUSE":
		c.pauseLocked()
	case cmd == "RESET":
		c.stopLocked()
		c.startLocked()
	case strings.HasPrefix(cmd, "SKIP "):
		c.skipLocked(strings.TrimSpace(cmd[len("SKIP "):]))
	default:
		c.logger.Warn("Game command not supported", "command", cmd)
	}
}

// startLocked starts a new session, or resumes a paused one without
// rebuilding the workflow tree.
func (c *Controller) startLocked() {
	switch c.game {
	case GameStarted:
		return
	case GamePaused:
		c.game = GameStarted
		if err := c.timer.Start(); err != nil {
			c.logger.Error("Resume game timer failed", "error", err)
		}
		metricGameState.Set(float64(GameStarted))
		c.logger.Info("Game resumed", "session", c.sessionID)
		return
	}

	if c.options == nil {
		c.logger.Warn("START ignored, no game options received",
			"topic", c.cfg.Topics.Options())
		return
	}

	c.purgeRetained()

	c.sessionID = uuid.NewString()
	children := c.factory.Create(*c.options)
	root := workflow.NewSequence("Main workflow", children, nil)
	root.SetHighlight(true)
	root.RegisterOnFinished(c.workflowSolvedLocked)
	root.RegisterOnFailed(c.workflowFailedLocked)
	c.root = root
	c.lastGraph = nil

	c.timer.SetDuration(time.Duration(c.options.Duration) * time.Minute)
	sid := c.sessionID
	// The expiry callback arrives from the timer goroutine; it re-enters
	// through its own lock acquisition and is dropped if the session it
	// belongs to is gone by then.
	c.timer.RegisterOnExpired(func() { go c.gameTimeExpired(sid) })

	c.game = GameStarted
	metricGamesStarted.Inc()
	metricGameState.Set(float64(GameStarted))
	c.logger.Info("Game started",
		"session", sid,
		"duration_min", c.options.Duration,
		"participants", c.options.Participants)

	root.Execute(c.bus)
	if c.game != GameStarted {
		// The whole tree completed during Execute (everything skipped).
		return
	}

	if err := c.timer.Start(); err != nil {
		c.logger.Error("Start game timer failed", "error", err)
	}
}

func (c *Controller) stopLocked() {
	if c.game == GameStopped {
		return
	}
	c.timer.Stop()
	if c.root != nil {
		c.root.Dispose(c.bus)
	}
	c.game = GameStopped
	metricGameState.Set(float64(GameStopped))
	c.purgeRetained()
	c.logger.Info("Game stopped", "session", c.sessionID)
}

func (c *Controller) pauseLocked() {
	if c.game != GameStarted {
		return
	}
	c.timer.Pause()
	c.game = GamePaused
	metricGameState.Set(float64(GamePaused))
	c.logger.Info("Game paused", "session", c.sessionID)
}

// skipLocked forwards a skip to the workflow tree. An empty name skips the
// whole remaining game.
func (c *Controller) skipLocked(name string) {
	if c.root == nil || c.game == GameStopped {
		c.logger.Warn("SKIP ignored, no running game", "name", name)
		return
	}
	if name == "" {
		name = c.root.Name()
	}
	c.logger.Info("Skipping workflow", "name", name)
	c.root.Skip(name)
}

func (c *Controller) saveOptionsLocked(payload []byte) {
	if len(payload) == 0 {
		return
	}
	opts, err := workflow.ParseOptions(payload)
	if err != nil {
		c.logger.Error("Discarding invalid game options", "error", err)
		return
	}
	if err := opts.Validate(); err != nil {
		c.logger.Error("Discarding invalid game options", "error", err)
		return
	}
	c.options = &opts
	c.logger.Info("Game options received",
		"duration_min", opts.Duration,
		"participants", opts.Participants,
		"skip_to", opts.SkipTo)
}

// workflowSolvedLocked runs when the root sequence reports completion. It is
// invoked from within a locked call path, never concurrently.
func (c *Controller) workflowSolvedLocked(string) {
	c.logger.Info("Escape room finished successfully", "session", c.sessionID)
	metricGamesSolved.Inc()
	c.clearControlRetainedLocked()
	c.stopLocked()
}

// workflowFailedLocked logs puzzle failures without ending the session; the
// operator decides whether to skip or stop.
func (c *Controller) workflowFailedLocked(name string, err error) {
	metricWorkflowFailures.Inc()
	c.logger.Error("Workflow reported failure", "workflow", name, "error", err)
}

// gameTimeExpired ends the session when the clock runs out: red lights in
// every room, the game-over announcement, then a regular stop.
func (c *Controller) gameTimeExpired(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID != sessionID || c.game == GameStopped {
		return
	}

	c.logger.Info("Game time expired", "session", sessionID)
	metricGamesExpired.Inc()

	red := workflow.RGB{R: 255}
	workflow.NewLightControl(workflow.LocationServerRoom, message.StateOn, 255, red).Execute(c.bus)
	workflow.NewLightControl(workflow.LocationMainRoom, message.StateOn, 255, red).Execute(c.bus)
	workflow.NewTTSAudio("Play gameover", c.cfg.Sounds.GameOver, true).Execute(c.bus)

	c.clearControlRetainedLocked()
	c.stopLocked()
	c.publishGameStateLocked()
}

// clearControlRetainedLocked removes a retained START from the control topic
// so a broker restart does not relaunch the finished game.
func (c *Controller) clearControlRetainedLocked() {
	if err := c.bus.Publish(c.cfg.Topics.Control(), 2, true, nil); err != nil {
		c.logger.Error("Clear retained control message failed", "error", err)
	}
}

func (c *Controller) publishGameStateLocked() {
	if c.root == nil {
		return
	}
	b, err := workflow.RenderGraph(c.root)
	if err != nil {
		c.logger.Error("Render dashboard snapshot failed", "error", err)
		return
	}
	if bytes.Equal(b, c.lastGraph) {
		return
	}
	if err := c.bus.Publish(c.cfg.Topics.State(), 0, true, b); err != nil {
		c.logger.Error("Publish dashboard snapshot failed", "error", err)
		return
	}
	c.lastGraph = b
	metricGraphPublishes.Inc()
}

func (c *Controller) purgeRetained() {
	if c.purger == nil {
		return
	}
	if err := c.purger.Purge(); err != nil {
		c.logger.Error("Purge retained messages failed", "error", err)
	}
}
