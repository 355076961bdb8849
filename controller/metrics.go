package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_bus_messages_total",
		Help: "Inbound bus messages handled by the controller.",
	})
	metricGamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_games_started_total",
		Help: "Game sessions started.",
	})
	metricGamesSolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_games_solved_total",
		Help: "Game sessions in which the full workflow finished.",
	})
	metricGamesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_games_expired_total",
		Help: "Game sessions ended by the countdown running out.",
	})
	metricWorkflowFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_workflow_failures_total",
		Help: "Failures reported by workflow nodes.",
	})
	metricGraphPublishes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_graph_publishes_total",
		Help: "Dashboard snapshots published after de-duplication.",
	})
	metricGameState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "operator_game_state",
		Help: "Current session state (0 stopped, 1 started, 2 paused).",
	})
)
