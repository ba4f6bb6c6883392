package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"sjsage522/passoworker/services/worker"
)

const promptHelp = `Commands:
  list          fetch the match list of the category
  detail <n>    show ticket categories of match n from the last list
  help          show this help
  quit          close the browser and exit`

// command is one parsed prompt line
type command struct {
	name  string
	index int
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}

	switch name := strings.ToLower(fields[0]); name {
	case "list", "l":
		return command{name: "list"}, nil
	case "detail", "d":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: detail <index>")
		}
		index, err := strconv.Atoi(fields[1])
		if err != nil || index < 0 {
			return command{}, fmt.Errorf("invalid index %q", fields[1])
		}
		return command{name: "detail", index: index}, nil
	case "help", "h", "?":
		return command{name: "help"}, nil
	case "quit", "exit", "q":
		return command{name: "quit"}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q, type help", fields[0])
	}
}

// runInteractive reads commands on their own goroutine and renders worker
// events as they arrive. One job runs at a time; commands typed while a job
// is running are refused.
func (a *app) runInteractive(ctx context.Context) error {
	w, err := a.newWorker(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	p := a.presenter()
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(a.errOut, promptHelp)
	busy := false
	listed := false
	events := w.Events()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := p.Handle(ev); err != nil {
				return err
			}
			if ev.Final() {
				busy = false
				if ev.Kind == worker.EventListReady {
					listed = true
				}
			}

		case line, ok := <-lines:
			if !ok {
				// Input closed; let a running job finish first.
				if busy {
					lines = nil
					continue
				}
				return nil
			}
			cmd, err := parseCommand(line)
			if err != nil {
				p.RenderLog(err.Error())
				continue
			}

			switch cmd.name {
			case "":
			case "help":
				fmt.Fprintln(a.errOut, promptHelp)
			case "quit":
				return nil
			case "list", "detail":
				if busy {
					p.RenderLog("A job is still running, please wait.")
					continue
				}
				if cmd.name == "detail" && !listed {
					p.RenderLog("Please fetch the match list first.")
					continue
				}
				job := worker.ListJob()
				if cmd.name == "detail" {
					job = worker.DetailJob(cmd.index)
				}
				if err := w.Submit(job); err != nil {
					return err
				}
				busy = true
			}
		}
		if lines == nil && !busy {
			return nil
		}
	}
}
