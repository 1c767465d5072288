// Package interactive provides the interactive command-line interface
// for the Pomegranate coordinator.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/pomegranate-proto/pomegranate-go/pkg/connection"
)

// Console handles interactive mode for pome-coordinator.
type Console struct {
	coord *connection.Coordinator
	rl    *readline.Instance
}

// New creates a new interactive console for the coordinator.
func New(coord *connection.Coordinator) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "coordinator> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{
		coord: coord,
		rl:    rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

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

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "send", "s":
			c.cmdSend(input, args)

		case "list", "l":
			c.cmdList()

		case "count", "c":
			c.cmdCount()

		case "status":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (try 'help')\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), "Commands:")
	fmt.Fprintln(c.rl.Stdout(), "  send <text>  - Broadcast a message to all connected clients")
	fmt.Fprintln(c.rl.Stdout(), "  list         - List connected clients")
	fmt.Fprintln(c.rl.Stdout(), "  count        - Show the number of connected clients")
	fmt.Fprintln(c.rl.Stdout(), "  status       - Show coordinator status")
	fmt.Fprintln(c.rl.Stdout(), "  quit         - Stop the coordinator and exit")
}

func (c *Console) cmdSend(input string, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: send <text>")
		return
	}

	// Preserve the original spacing of the message text
	msg := strings.TrimSpace(strings.TrimPrefix(input, strings.Fields(input)[0]))
	if err := c.coord.Broadcast([]byte(msg)); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Broadcast failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Sent to %d client(s)\n", c.coord.ConnectionCount())
}

func (c *Console) cmdList() {
	sessions := c.coord.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No connected clients")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(c.rl.Stdout(), "  %s  %s\n", s.ID(), s.RemoteAddr())
	}
}

func (c *Console) cmdCount() {
	fmt.Fprintf(c.rl.Stdout(), "%d client(s) connected\n", c.coord.ConnectionCount())
}

func (c *Console) cmdStatus() {
	fmt.Fprintf(c.rl.Stdout(), "Listening on: %s\n", c.coord.Addr())
	fmt.Fprintf(c.rl.Stdout(), "Clients:      %d\n", c.coord.ConnectionCount())
}
