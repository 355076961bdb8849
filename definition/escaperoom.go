package definition

import (
	"strings"

	"github.com/ubilab-escape/operator/message"
	"github.com/ubilab-escape/operator/workflow"
)

func init() {
	Register("escape-room", newEscapeRoom)
}

// escapeRoom is the production room layout: a lobby, a control room and a
// server room, bracketed by an init and an exit workflow.
type escapeRoom struct {
	settings Settings
}

func newEscapeRoom(settings Settings) workflow.Factory {
	return &escapeRoom{settings: settings}
}

// Create builds the full room tree for one session.
func (d *escapeRoom) Create(opts workflow.Options) []workflow.Workflow {
	rooms := []workflow.Workflow{
		workflow.NewInit([]workflow.Workflow{
			workflow.NewSendTrigger("Reset safe", "5/safe/control", message.StateOff),
			workflow.NewSendTrigger("Close lab room door", "4/door/entrance", message.StateOff),
			workflow.NewSendTrigger("Close server room door", "4/door/server", message.StateOff),
			workflow.NewLightControl(workflow.LocationMainRoom, message.StateOn, 255, workflow.RGB{R: 255, G: 255, B: 255}),
			workflow.NewLightControl(workflow.LocationServerRoom, message.StateOn, 255, workflow.RGB{R: 255, G: 255, B: 255}),

			workflow.NewSendMessage("Reset Radio", "3/gamecontrol", "idle"),
			workflow.NewSendMessage("Set Radio Mode", "3/touchgame/displayTime", false),

			workflow.NewSendMessage("Set Battery Level", "5/battery/1/level", 0),
		}, nil),

		workflow.NewSequence("Lobby Room", []workflow.Workflow{
			workflow.NewPuzzle("Power Outage", "0/dummy", nil),
			workflow.NewSequence("Puzzle 1 - Cube", []workflow.Workflow{
				workflow.NewPuzzle("Panels Released", "0/dummy", nil),
				workflow.NewPuzzle("Panels Placed", "0/dummy", nil),
			}, nil),
			workflow.NewSendTrigger("Open Control Room Door", "4/door/entrance", message.StateOn),
		}, nil),

		workflow.NewSequence("Control room", []workflow.Workflow{
			workflow.NewSequence("Puzzle 5 - Battery", []workflow.Workflow{
				workflow.NewPuzzle("Safe Unlocked", "0/dummy", nil),
				workflow.NewPuzzle("Battery Placed", "0/dummy", nil),
			}, nil),
			workflow.NewSequence("Puzzle 3 - Radio", []workflow.Workflow{
				workflow.NewPuzzle("Radio Turned On", "0/dummy", nil),
				workflow.NewPuzzle("Antenna Aligned", "0/dummy", nil),
				workflow.NewPuzzle("Radio Tuned", "0/dummy", nil),
				workflow.NewPuzzle("Touch Game Finished", "0/dummy", nil),
			}, nil),
			workflow.NewSendTrigger("Open Server Room Door", "4/door/server", message.StateOn),
		}, nil),

		workflow.NewSequence("Server room", []workflow.Workflow{
			workflow.NewSequence("Puzzle 2 - Switchboard", []workflow.Workflow{
				workflow.NewPuzzle("Switchboard Opened", "0/dummy", nil),
				workflow.NewPuzzle("Switches Correct", "0/dummy", nil),
			}, nil),
			workflow.NewSequence("Puzzle 4 - Server", []workflow.Workflow{
				workflow.NewPuzzle("Puzzle Solved", "0/dummy", nil),
			}, nil),
		}, nil),

		workflow.NewExit([]workflow.Workflow{
			workflow.NewSendTrigger("Open escape room door", "4/door/entrance", message.StateOn),
			workflow.NewDelay("Wait for exit door", 2, d.settings.ClockTopic),
			workflow.NewLightControl(workflow.LocationServerRoom, message.StateOn, 255, workflow.RGB{G: 255}),
			workflow.NewLightControl(workflow.LocationMainRoom, message.StateOn, 255, workflow.RGB{G: 255}),
			workflow.NewTTSAudio("Play success", d.settings.SuccessSound, true),
		}, nil),
	}

	applyInitialSettings(rooms, opts.SkipTo)
	return rooms
}

// applyInitialSettings highlights the top-level rooms and pre-skips every
// room before the skipTo target. A skipTo that matches nothing skips the
// whole game.
func applyInitialSettings(rooms []workflow.Workflow, skipTo string) {
	reached := false
	for _, room := range rooms {
		room.SetHighlight(true)
		if skipTo != "" && !reached && !strings.EqualFold(room.Name(), skipTo) {
			room.Skip(room.Name())
		} else {
			reached = true
		}
	}
}
