// Package main is the vortex-runtime worker binary: the out-of-process
// sandbox realization. It executes one JavaScript file and writes the
// result envelope {output, logs, execution_time_ms} as JSON to stdout.
//
// Usage:
//
//	vortex-runtime [-topic T -redis-addr A] <path-to-js-file>
//
// With a broker configured, log events are additionally published to the
// given topic as they are emitted, so stream subscribers observe them
// live. Exit codes: 0 success, 1 script failure (an error envelope is
// still written), 2 usage or I/O failure. The orchestrator enforces the
// deadline by killing this process; no cooperative shutdown is expected.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/divitsinghall/Vortex/internal/model"
	"github.com/divitsinghall/Vortex/internal/sandbox"
)

func main() {
	os.Exit(run())
}

func run() int {
	topic := flag.String("topic", "", "event-bus topic to stream log events to")
	redisAddr := flag.String("redis-addr", "", "redis broker address for live log streaming")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vortex-runtime [-topic T -redis-addr A] <path-to-js-file>")
		return 2
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read script: %v\n", err)
		return 2
	}

	var sink sandbox.EventSink
	var pub *logPublisher
	if *redisAddr != "" && *topic != "" {
		pub, err = newLogPublisher(*redisAddr, *topic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect broker: %v\n", err)
			return 2
		}
		sink = pub
	}

	res, runErr := sandbox.New(sink).Run(context.Background(), string(source))
	if pub != nil {
		pub.flush()
	}

	env := model.Envelope{
		Logs:            res.Logs,
		ExecutionTimeMs: res.Elapsed.Milliseconds(),
	}
	output, err := json.Marshal(res.Return)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		return 2
	}
	env.Output = output

	exit := 0
	if runErr != nil {
		exit = 1
		env.Error = &model.ErrorPayload{Kind: model.KindRuntimeError, Detail: runErr.Error()}
		var me *model.Error
		if errors.As(runErr, &me) {
			env.Error = &model.ErrorPayload{Kind: me.Kind, Detail: me.Detail}
		}
	}

	if env.Logs == nil {
		env.Logs = []model.LogEvent{}
	}
	if err := json.NewEncoder(os.Stdout).Encode(env); err != nil {
		fmt.Fprintf(os.Stderr, "encode envelope: %v\n", err)
		return 2
	}
	return exit
}

// logPublisher streams log events to a broker channel from a background
// goroutine, keeping the sandbox's log path non-blocking.
type logPublisher struct {
	client *redis.Client
	topic  string
	events chan model.LogEvent
	done   chan struct{}
}

func newLogPublisher(addr, topic string) (*logPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}

	p := &logPublisher{
		client: client,
		topic:  topic,
		events: make(chan model.LogEvent, 256),
		done:   make(chan struct{}),
	}
	go p.pump()
	return p, nil
}

func (p *logPublisher) pump() {
	defer close(p.done)
	ctx := context.Background()
	for ev := range p.events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := p.client.Publish(ctx, p.topic, string(payload)).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "publish log event: %v\n", err)
		}
	}
}

// Append implements sandbox.EventSink. Events are dropped if the backlog
// is full rather than stalling the script.
func (p *logPublisher) Append(ev model.LogEvent) {
	select {
	case p.events <- ev:
	default:
	}
}

// flush drains pending events and closes the broker connection, so the
// envelope on stdout is only written after every streamed event went out.
func (p *logPublisher) flush() {
	close(p.events)
	<-p.done
	p.client.Close()
}
