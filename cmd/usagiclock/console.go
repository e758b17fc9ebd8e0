package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/usagiclock/internal/app"
	"github.com/coreman2200/usagiclock/internal/tests"
	"github.com/coreman2200/usagiclock/internal/ws"
)

const consoleHelp = `commands:
  a | alarm          trigger the alarm now
  r | reset          back to idle
  space | p          pause / resume
  n [k] | b [k]      step forward / back k frames (pauses)
  t <kind>           run a frame test (keyframe_sweep, dense_sweep, marker_tour)
  mute | unmute      sound output
  s | status         print status
  q | quit           exit`

// runConsole reads debug commands until EOF or quit.
func runConsole(ctx context.Context, core *app.Core) {
	var testItems []readline.PrefixCompleterInterface
	for _, k := range tests.Kinds() {
		testItems = append(testItems, readline.PcItem(string(k)))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt: ">> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("alarm"),
			readline.PcItem("reset"),
			readline.PcItem("status"),
			readline.PcItem("t", testItems...),
			readline.PcItem("mute"),
			readline.PcItem("unmute"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		log.Error().Err(err).Msg("console unavailable")
		return
	}
	defer rl.Close()
	fmt.Fprintln(rl.Stdout(), consoleHelp)

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("console read")
			return
		}
		if line == " " {
			line = "p"
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "q" || fields[0] == "quit" {
			return
		}
		if fields[0] == "s" || fields[0] == "status" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(core.Status())
			continue
		}
		cmd, ok := parseCommand(fields)
		if !ok {
			fmt.Fprintln(rl.Stdout(), consoleHelp)
			continue
		}
		if err := core.Control(ctx, cmd); err != nil {
			fmt.Fprintf(rl.Stdout(), " [!] %v\n", err)
		}
	}
}

func parseCommand(fields []string) (ws.Command, bool) {
	arg := func(def int) int {
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				return n
			}
		}
		return def
	}
	switch fields[0] {
	case "a", "alarm", "trigger":
		return ws.Command{Cmd: "trigger"}, true
	case "r", "reset":
		return ws.Command{Cmd: "reset"}, true
	case "p", "pause", "toggle":
		return ws.Command{Cmd: "toggle"}, true
	case "n", "next":
		return ws.Command{Cmd: "step", Delta: arg(1)}, true
	case "b", "back":
		return ws.Command{Cmd: "step", Delta: -arg(1)}, true
	case "t", "test":
		if len(fields) < 2 {
			return ws.Command{}, false
		}
		return ws.Command{Cmd: "test", Test: fields[1]}, true
	case "mute", "unmute":
		return ws.Command{Cmd: fields[0]}, true
	}
	return ws.Command{}, false
}
