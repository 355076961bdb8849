package main

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
)

// simMessage is one step of the scripted playthrough.
type simMessage struct {
	topic   string
	payload string
}

// simSequence replays a full game against a live broker: session options,
// the start command and one solved report per puzzle, including a pair of
// broken payloads to exercise the operator's error handling.
var simSequence = []simMessage{
	{"op/gameOptions", `{"participants": 3, "duration": 5}`},
	{"op/gameControl", "start"},
	{"4/puzzle", `{"method": "STATUS", "state": "Invalid}`},
	{"4/puzzle", `{"method": "STATUS", "state": "UNSOLVED"}`},
	{"4/puzzle", `{"method": "STATUS", "state": "SOLVED"}`},
	{"4/globes", `{"method": "status", "state": "solved", "data": "Worked!"}`},
	{"5/safe/activate", `{"method": "STATUS", "state": "SOLVED"}`},
	{"7/fusebox/laserDetection", `{"method": "STATUS", "state": "SOLVED"}`},
	{"7/fusebox/rewiring0", `{"method": "STATUS", "state": "SOLVED"}`},
	{"7/fusebox/rewiring1", `{"method": "STATUS", "state": "SOLVED"}`},
	{"7/fusebox/potentiometer", `{"method": "STATUS", "state": "SOLVED"}`},
	{"5/safe/control", `{"method": "STATUS", "state": "SOLVED"}`},
	{"6/puzzle/scale", `{"method": "STATUS", "state": "ACTIVE"}`},
	{"7/robot", `{"method": "STATUS", "state": "SOLVED"}`},
	{"6/puzzle/scale", `{"method": "STATUS", "state": "INACTIVE"}`},
	{"8/puzzle/maze", `{"method": "STATUS", "state": "SOLVED"}`},
	{"6/puzzle/terminal", `{"method": "STATUS", "state": "SOLVED"}`},
	{"8/puzzle/IP", `{"method": "STATUS", "state": "SOLVED"}`},
	{"8/puzzle/simon", `{"method": "STATUS", "state": "SOLVED"}`},
}

func simulateCmd() *cobra.Command {
	var (
		broker   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scripted playthrough against a running broker",
		Long: `Simulate publishes a scripted game session to the broker: the game
options, the start command and a solved report for every puzzle, spaced
by a fixed interval. Useful for exercising a deployed operator and
dashboard without physical puzzle hardware.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate(broker, interval)
		},
	}

	cmd.Flags().StringVar(&broker, "broker", "tcp://127.0.0.1:1883", "Broker URL")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Delay between published messages")

	return cmd
}

func simulate(broker string, interval time.Duration) error {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("operator-simulator")
	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", broker, err)
	}
	defer client.Disconnect(250)

	for i, msg := range simSequence {
		fmt.Printf("[%2d/%d] %s %s\n", i+1, len(simSequence), msg.topic, msg.payload)
		token := client.Publish(msg.topic, 2, false, []byte(msg.payload))
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("publish to %s: timeout", msg.topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", msg.topic, err)
		}
		time.Sleep(interval)
	}

	fmt.Println("Simulation finished")
	return nil
}
