// Package app dispatches parsed commands to the session runtime or forwards
// them to an already-running session over IPC.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/storyvoice/storyvoice/internal/audio"
	"github.com/storyvoice/storyvoice/internal/cli"
	"github.com/storyvoice/storyvoice/internal/config"
	"github.com/storyvoice/storyvoice/internal/doctor"
	"github.com/storyvoice/storyvoice/internal/fsm"
	"github.com/storyvoice/storyvoice/internal/ipc"
	"github.com/storyvoice/storyvoice/internal/logging"
	"github.com/storyvoice/storyvoice/internal/quiz"
	"github.com/storyvoice/storyvoice/internal/session"
	"github.com/storyvoice/storyvoice/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("storyvoice"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("storyvoice"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	book := cfgLoaded.Config.Session.Book
	if parsed.Book != "" {
		book = parsed.Book
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
		"book", book,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, book, logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandQuestions:
		return r.commandQuestions(book)
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandAssistant:
		return r.commandAssistant(ctx, cfgLoaded.Config, parsed.Room)
	case cli.CommandPlay, cli.CommandCheck, cli.CommandRetry, cli.CommandNext,
		cli.CommandRestart, cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: string(parsed.Command)})
	case cli.CommandAnswer:
		return r.forwardOrFail(ctx, ipc.Request{Command: "answer", Text: parsed.Text})
	case cli.CommandField:
		return r.forwardOrFail(ctx, ipc.Request{Command: "field", Index: parsed.Index, Text: parsed.Text})
	case cli.CommandRate:
		return r.forwardOrFail(ctx, ipc.Request{Command: "rate", Rating: parsed.Rating})
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandRun owns the session socket and walks the book's questions until the
// child finishes, stops, or the process is interrupted.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, book string, logger *slog.Logger) int {
	questions, err := quiz.Catalog(book)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: a storyvoice session is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	deps := buildSessionDeps(ctx, cfg, logger)
	controller := session.NewController(
		logger,
		deps.cue,
		deps.listener,
		deps.speaker,
		deps.grader,
		deps.indicator,
		deps.assetDir,
	)

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	handler := &runHandler{controller: controller, stop: stopRun}
	if !cfg.Session.AutoStart {
		handler.startCh = make(chan struct{})
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, handler)
	}()

	if handler.startCh != nil {
		fmt.Fprintln(r.Stdout, "waiting for `storyvoice play` to begin")
		select {
		case <-runCtx.Done():
			serverCancel()
			<-serverErrCh
			return 0
		case <-handler.startCh:
		}
	}

	exit := r.runBook(runCtx, controller, questions, cfg, logger)

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	return exit
}

// runBook walks the question chain by route, following each result's
// NextRoute until the final question reports the root route.
func (r Runner) runBook(
	ctx context.Context,
	controller *session.Controller,
	questions []quiz.Question,
	cfg config.Config,
	logger *slog.Logger,
) int {
	route := questions[0].Route

	for route != "" && route != "/" {
		q, err := quiz.ByRoute(route)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		q.ListenFor = listenWindow(q, cfg.Session)

		fmt.Fprintf(r.Stdout, "question %d: %s\n", q.Ordinal, q.Prompt)

		result := controller.Run(ctx, q)
		logSessionResult(logger, result)
		if cfg.Debug.EnableResponseDump {
			dumpSessionResult(logger, result)
		}

		if result.Cancelled {
			fmt.Fprintln(r.Stdout, "stopped")
			return 0
		}
		if result.Err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
			return 1
		}

		if result.Verdict.Message != "" {
			fmt.Fprintln(r.Stdout, result.Verdict.Message)
		}
		route = result.NextRoute
	}

	fmt.Fprintln(r.Stdout, "all questions complete")
	return 0
}

// listenWindow applies the configured window lengths over the catalog
// defaults. Reflection questions keep the longer window.
func listenWindow(q quiz.Question, s config.SessionConfig) time.Duration {
	long := q.ListenFor > 10*time.Second
	if long && s.LongListenMS > 0 {
		return time.Duration(s.LongListenMS) * time.Millisecond
	}
	if !long && s.ListenMS > 0 {
		return time.Duration(s.ListenMS) * time.Millisecond
	}
	return q.ListenFor
}

// runHandler layers session-lifetime commands over the controller's
// per-question command surface.
type runHandler struct {
	controller *session.Controller
	stop       context.CancelFunc

	mu      sync.Mutex
	startCh chan struct{}
}

func (h *runHandler) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "stop":
		// While listening, stop means "close the microphone"; the session
		// keeps going. Anywhere else it ends the session.
		if h.controller.State() == fsm.StateListening {
			return h.controller.Handle(ctx, req)
		}
		h.stop()
		return ipc.Response{OK: true, State: string(h.controller.State()), Message: "stopping"}
	case "play":
		if h.consumeStart() {
			return ipc.Response{OK: true, State: string(h.controller.State()), Message: "starting"}
		}
	}
	return h.controller.Handle(ctx, req)
}

// consumeStart releases a deferred-start session exactly once.
func (h *runHandler) consumeStart() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.startCh == nil {
		return false
	}
	close(h.startCh)
	h.startCh = nil
	return true
}

func (r Runner) commandQuestions(book string) int {
	questions, err := quiz.Catalog(book)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}
	for _, q := range questions {
		fmt.Fprintf(r.Stdout, "%2d %-12s %s\n", q.Ordinal, q.Route, q.Prompt)
	}
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: "status"})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		if resp.Question != "" {
			fmt.Fprintf(r.Stdout, "%s %s\n", resp.State, resp.Question)
			return 0
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no active storyvoice session")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"route", result.Route,
		"state", result.State,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"bytes_captured", result.BytesCaptured,
		"transcript_length", len(result.Transcript),
		"correct", result.Verdict.Correct,
		"next_route", result.NextRoute,
	}

	if result.Err != nil {
		logger.Error("question failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("question complete", fields...)
}
