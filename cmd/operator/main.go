// Package main provides the operator binary entry point. The operator is the
// long-running game master of the escape room: it drives the puzzle
// micro-controllers and actuators over the message broker, runs the game
// clock and feeds the dashboard.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ubilab-escape/operator/config"
	"github.com/ubilab-escape/operator/controller"
	"github.com/ubilab-escape/operator/definition"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "operator"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath  string
		mqttHost    string
		workflowDef string
		httpAddr    string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Escape room game operator",
		Long: `The operator coordinates one escape room: it arms the puzzle
micro-controllers over MQTT, tracks their progress through a workflow
definition, runs the game clock and publishes the live game graph for
the dashboard.

Operators steer the game through the gameControl topic (START, STOP,
PAUSE, RESET, SKIP <workflow>) after publishing session options on the
gameOptions topic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, mqttHost, workflowDef, httpAddr, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&mqttHost, "mqtt-host", "", "Broker host (overrides config)")
	cmd.Flags().StringVar(&workflowDef, "workflow-def", "", "Workflow definition name (overrides config)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "Health/metrics listen address (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	cmd.AddCommand(simulateCmd())

	return cmd
}

func run(configPath, mqttHost, workflowDef, httpAddr, logLevel string) error {
	configureLogging(logLevel)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if mqttHost != "" {
		cfg.MQTT.Host = mqttHost
	}
	if workflowDef != "" {
		cfg.Workflow.Definition = workflowDef
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	build, err := definition.Lookup(cfg.Workflow.Definition)
	if err != nil {
		return err
	}
	factory := build(definition.Settings{
		SuccessSound: cfg.Sounds.Success,
		ClockTopic:   cfg.Topics.GameTime() + "_in_sec",
	})

	var purger controller.Purger
	if p := controller.NewRetainedPurge(cfg); p != nil {
		purger = p
	}

	// The bus delivers inbound messages to the controller; the controller
	// is created right after, before the connection is opened.
	var ctrl *controller.Controller
	bus := controller.NewPahoBus(cfg, func(topic string, payload []byte) {
		ctrl.HandleMessage(topic, payload)
	})
	ctrl = controller.New(cfg, bus, factory, purger)

	if err := bus.Connect(); err != nil {
		return err
	}
	defer bus.Disconnect()

	if err := ctrl.Subscribe(); err != nil {
		return err
	}

	if cfg.HTTP.Addr != "" {
		mux := http.NewServeMux()
		ctrl.RegisterHTTPHandlers(mux)
		go func() {
			slog.Info("HTTP listener started", "addr", cfg.HTTP.Addr)
			if err := http.ListenAndServe(cfg.HTTP.Addr, mux); err != nil {
				slog.Error("HTTP listener failed", "error", err)
			}
		}()
	}

	slog.Info("Operator ready",
		"version", Version,
		"broker", cfg.MQTT.URL(),
		"definition", cfg.Workflow.Definition)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	slog.Info("Shutting down", "signal", s.String())

	ctrl.Shutdown()
	return nil
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
