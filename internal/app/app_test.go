package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storyvoice/storyvoice/internal/config"
	"github.com/storyvoice/storyvoice/internal/fsm"
	"github.com/storyvoice/storyvoice/internal/ipc"
	"github.com/storyvoice/storyvoice/internal/quiz"
	"github.com/storyvoice/storyvoice/internal/session"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "storyvoice")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestRunnerStatusIdleWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerStopReturnsNoActiveSession(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no active storyvoice session")
}

func TestRunnerForwardsCommandsToActiveSession(t *testing.T) {
	paths := setupRunnerEnv(t)
	requests := make(chan ipc.Request, 16)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "storyvoice.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		return ipc.Response{OK: true, State: "writing", Message: req.Command + " handled"}
	})
	defer shutdown()

	runner := Runner{}

	cases := [][]string{
		{"play"},
		{"answer", "Goldilocks", "and", "the", "Three", "Bears"},
		{"field", "1", "She", "ran", "home"},
		{"rate", "5"},
		{"check"},
		{"retry"},
		{"next"},
		{"restart"},
		{"stop"},
	}
	for _, args := range cases {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner.Stdout = stdout
		runner.Stderr = stderr

		full := append([]string{"--config", paths.configPath}, args...)
		exitCode := runner.Execute(context.Background(), full)
		require.Equal(t, 0, exitCode, args[0])
		require.Empty(t, stderr.String(), args[0])
		require.Contains(t, stdout.String(), args[0]+" handled")
	}

	byCommand := map[string]ipc.Request{}
	for range cases {
		req := <-requests
		byCommand[req.Command] = req
	}
	require.Equal(t, "Goldilocks and the Three Bears", byCommand["answer"].Text)
	require.Equal(t, 1, byCommand["field"].Index)
	require.Equal(t, "She ran home", byCommand["field"].Text)
	require.Equal(t, 5, byCommand["rate"].Rating)
}

func TestRunnerQuestionsListsCatalog(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "questions"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "/GodAct1")
	require.Contains(t, stdout.String(), "/GodAct9")

	stdout.Reset()
	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "--book", "peter", "questions"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "/PetAct2")
}

func TestRunnerRunRejectsUnknownBook(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "--book", "narnia", "run"})
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "error:")
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "storyvoice.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	serverCtx, cancelServer := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- ipc.Serve(serverCtx, listener, ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
			switch req.Command {
			case "status":
				return ipc.Response{OK: true, State: "listening"}
			default:
				return ipc.Response{OK: false, Error: "unsupported"}
			}
		}))
	}()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "listening", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, ipc.Request{Command: "check"})
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")

	cancelServer()
	require.NoError(t, <-serverDone)
}

func TestTryForwardReportsUnhandledWhenSocketMissing(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "storyvoice.sock")

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.False(t, handled)
	require.NoError(t, err)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "storyvoice.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forward command \"status\":")

	<-done
	require.NoError(t, listener.Close())
}

func TestListenWindowOverrides(t *testing.T) {
	s := config.SessionConfig{ListenMS: 4000, LongListenMS: 9000}

	short := quiz.Question{ListenFor: 10 * time.Second}
	long := quiz.Question{ListenFor: 15 * time.Second}

	require.Equal(t, 4*time.Second, listenWindow(short, s))
	require.Equal(t, 9*time.Second, listenWindow(long, s))

	require.Equal(t, 10*time.Second, listenWindow(short, config.SessionConfig{}))
	require.Equal(t, 15*time.Second, listenWindow(long, config.SessionConfig{}))
}

func TestRunHandlerStopCancelsRun(t *testing.T) {
	controller := session.NewController(nil, nil, nil, nil, nil, nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	handler := &runHandler{controller: controller, stop: cancel}

	resp := handler.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, resp.OK)
	require.Equal(t, "stopping", resp.Message)
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestRunHandlerDeferredStartConsumesFirstPlay(t *testing.T) {
	controller := session.NewController(nil, nil, nil, nil, nil, nil, "")
	handler := &runHandler{controller: controller, stop: func() {}, startCh: make(chan struct{})}
	startCh := handler.startCh

	resp := handler.Handle(context.Background(), ipc.Request{Command: "play"})
	require.True(t, resp.OK)
	require.Equal(t, "starting", resp.Message)

	select {
	case <-startCh:
	default:
		t.Fatal("start channel was not released")
	}

	// A later play reaches the controller, which rejects it while idle.
	resp = handler.Handle(context.Background(), ipc.Request{Command: "play"})
	require.False(t, resp.OK)
}

func TestSocketErrorHelpers(t *testing.T) {
	require.False(t, isSocketMissing(nil))
	require.False(t, isConnectionRefused(nil))

	require.True(t, isSocketMissing(os.ErrNotExist))
	require.True(t, isSocketMissing(errors.New("dial unix /tmp/storyvoice.sock: no such file or directory")))
	require.False(t, isSocketMissing(errors.New("other error")))

	require.True(t, isConnectionRefused(syscall.ECONNREFUSED))
	require.False(t, isConnectionRefused(errors.New("other error")))
}

func TestLogSessionResultWritesFailureAndSuccess(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	started := time.Now()
	finished := started.Add(1500 * time.Millisecond)

	logSessionResult(logger, session.Result{
		Route:         "/GodAct1",
		State:         fsm.StateComplete,
		StartedAt:     started,
		FinishedAt:    finished,
		BytesCaptured: 123,
		Transcript:    "hello",
		NextRoute:     "/GodAct2",
	})

	require.Contains(t, logBuf.String(), "question complete")
	require.Contains(t, logBuf.String(), "\"transcript_length\":5")

	logBuf.Reset()
	logSessionResult(logger, session.Result{
		Route:      "/GodAct1",
		State:      fsm.StateError,
		StartedAt:  started,
		FinishedAt: finished,
		Err:        errors.New("boom"),
	})
	require.Contains(t, logBuf.String(), "question failed")
	require.Contains(t, logBuf.String(), "boom")
}

func TestDumpSessionResultWritesJSONArtifact(t *testing.T) {
	stateDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateDir)

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	dumpSessionResult(logger, session.Result{Route: "/GodAct1", Transcript: "hello"})

	matches, err := filepath.Glob(filepath.Join(stateDir, "storyvoice", "debug", "result-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Contains(t, string(data), "/GodAct1")
	require.Contains(t, string(data), "hello")
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.conf")
	require.NoError(t, os.WriteFile(configPath, []byte("\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
