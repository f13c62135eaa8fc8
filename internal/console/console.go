// Package console provides an interactive command line for driving the
// switch signals by hand.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sweeney/green-switch/internal/logic"
	"github.com/sweeney/green-switch/internal/status"
)

// ErrUsage is returned for lines that are not a known command.
var ErrUsage = errors.New("console: unknown command")

type action int

const (
	actionNone action = iota
	actionCommand
	actionState
	actionSignals
	actionHelp
	actionExit
)

type request struct {
	action  action
	command logic.Command
}

// parseLine converts one input line into a request.
func parseLine(line string) (request, error) {
	parts := strings.Fields(strings.ToLower(line))
	if len(parts) == 0 {
		return request{action: actionNone}, nil
	}

	switch parts[0] {
	case "help", "?":
		return request{action: actionHelp}, nil
	case "state", "s":
		return request{action: actionState}, nil
	case "signals", "report":
		return request{action: actionSignals}, nil
	case "exit", "quit", "q":
		return request{action: actionExit}, nil
	}

	value := "toggle"
	switch len(parts) {
	case 1:
		if parts[0] != logic.WebButton.WireName() {
			return request{}, fmt.Errorf("%w: %s", ErrUsage, parts[0])
		}
	case 2:
		value = parts[1]
	default:
		return request{}, fmt.Errorf("%w: %s", ErrUsage, line)
	}

	cmd, err := logic.ParseCommand(parts[0], value)
	if err != nil {
		return request{}, err
	}
	return request{action: actionCommand, command: cmd}, nil
}

// Console reads commands from the terminal and queues them for the
// controller loop.
type Console struct {
	rl       *readline.Instance
	commands chan<- logic.Command
	tracker  *status.Tracker
}

// New creates a console bound to the terminal.
func New(commands chan<- logic.Command, tracker *status.Tracker) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "switch> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, commands: commands, tracker: tracker}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// PrintTrace writes one evaluation record the way an operator reads it.
func (c *Console) PrintTrace(tr logic.Trace) {
	fmt.Fprintln(c.rl.Stdout(), tr.String())
}

// Run starts the interactive command loop. It calls cancel when the
// operator exits.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	printHelp(c.rl.Stdout())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		if !c.handle(line, c.rl.Stdout()) {
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}
	}
}

// handle processes one line. It returns false when the operator asked
// to exit.
func (c *Console) handle(line string, out io.Writer) bool {
	req, err := parseLine(line)
	if err != nil {
		fmt.Fprintf(out, "%v (type 'help' for commands)\n", err)
		return true
	}

	switch req.action {
	case actionHelp:
		printHelp(out)
	case actionState:
		fmt.Fprint(out, formatState(c.tracker.Snapshot()))
	case actionSignals:
		fmt.Fprint(out, formatSignals(c.tracker.Snapshot()))
	case actionExit:
		return false
	case actionCommand:
		select {
		case c.commands <- req.command:
		default:
			fmt.Fprintln(out, "command queue full, try again")
		}
	}
	return true
}

func formatState(snap status.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State:   %s\n", snap.State)
	fmt.Fprintf(&b, "Primary: %s\n", snap.PrimaryName())
	if d := snap.LastChange; d != nil {
		fmt.Fprintf(&b, "Last:    %s -> %s at %s\n", d.From, d.To, d.Timestamp.Format("15:04:05"))
		fmt.Fprintf(&b, "Reason:  %s\n", d.Reason)
	}
	return b.String()
}

func formatSignals(snap status.Snapshot) string {
	if snap.Report == "" {
		return "no signals yet\n"
	}
	return snap.Report
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `
Green Switch Commands:
  Signals:
    physical on|off       - Flip the physical switch
    web                   - Press the web button (toggle)
    timer on|off          - Start or expire the forced timer
    away on|off           - Leave or return home
    green-timer on|off    - Open or close the green window
    excess-green on|off   - Report excess green energy

  Inspection:
    state                 - Show the device state and last decision
    signals               - Show every signal

  Other:
    help                  - Show this help
    exit                  - Stop the daemon
`)
}
