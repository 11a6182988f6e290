package pkgmgr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/rocjpeg-setup/internal/logger"
)

const (
	// outputTailLines is how many trailing output lines a CommandError keeps.
	outputTailLines = 20

	// waitDelay bounds how long Wait keeps reading output after the process was killed.
	waitDelay = 10 * time.Second
)

var (
	// errEmptyArgv is returned for a step without a program.
	errEmptyArgv = errors.New("empty argv")
)

// Result is the outcome of running one step.
type Result struct {
	// Step is the invocation that was run.
	Step Step
	// ExitCode is the process exit status, -1 when the process did not start or was killed.
	ExitCode int
	// Output holds the combined stdout and stderr lines, trimmed to the last outputTailLines.
	Output []string
	// Duration is the wall time of the invocation.
	Duration time.Duration
	// Err is a *CommandError when the step failed, nil otherwise.
	Err error
}

// OK reports whether the step succeeded.
func (r *Result) OK() bool {
	return r.Err == nil
}

// CommandError describes a failed package-manager invocation.
type CommandError struct {
	// Step is the failed invocation.
	Step Step
	// ExitCode is the process exit status, -1 when unknown.
	ExitCode int
	// Output holds the last output lines.
	Output []string
	// Err is the underlying exec or context error.
	Err error
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %q exited with code %d: %v", e.Step.Name, e.Step.String(), e.ExitCode, e.Err)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Executor runs a single step to completion.
type Executor interface {
	Execute(ctx context.Context, step Step) *Result
}

// ExecExecutor runs steps as child processes without a shell.
type ExecExecutor struct {
	// Timeout bounds each invocation. Zero disables the bound.
	Timeout time.Duration
	// Stdin is connected to the child, so the elevation tool can prompt for a password.
	Stdin io.Reader
	// OutputLevel is the level at which child output lines are logged.
	OutputLevel zapcore.Level
}

// NewExecExecutor returns an executor wired to the process stdin.
func NewExecExecutor(timeout time.Duration, outputLevel zapcore.Level) *ExecExecutor {
	return &ExecExecutor{
		Timeout:     timeout,
		Stdin:       os.Stdin,
		OutputLevel: outputLevel,
	}
}

// Execute starts the step, streams its output through the context logger and waits for it.
func (e *ExecExecutor) Execute(ctx context.Context, step Step) *Result {
	result := &Result{Step: step, ExitCode: -1}

	if len(step.Argv) == 0 || step.Argv[0] == "" {
		result.Err = &CommandError{Step: step, ExitCode: -1, Err: errEmptyArgv}
		return result
	}

	cmdCtx, cancel := e.commandContext(ctx)
	defer cancel()

	//nolint:gosec // Argv comes from the profile and the manifest, never from a shell string.
	cmd := exec.CommandContext(cmdCtx, step.Argv[0], step.Argv[1:]...)
	cmd.Stdin = e.Stdin
	cmd.WaitDelay = waitDelay

	reader, writer := io.Pipe()
	cmd.Stdout = writer
	cmd.Stderr = writer

	started := time.Now()

	if err := cmd.Start(); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		result.Duration = time.Since(started)
		result.Err = &CommandError{Step: step, ExitCode: -1, Err: err}

		return result
	}

	done := make(chan []string)
	go func() {
		done <- streamOutput(ctx, reader, e.OutputLevel)
	}()

	waitErr := cmd.Wait()
	_ = writer.Close()
	result.Output = <-done
	result.Duration = time.Since(started)

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if waitErr != nil {
		if ctxErr := cmdCtx.Err(); ctxErr != nil {
			waitErr = fmt.Errorf("%w: %w", ctxErr, waitErr)
		}

		result.Err = &CommandError{
			Step:     step,
			ExitCode: result.ExitCode,
			Output:   result.Output,
			Err:      waitErr,
		}
	}

	return result
}

// commandContext applies the per-invocation timeout when configured.
func (e *ExecExecutor) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, e.Timeout)
}

// streamOutput logs every line it reads at level and returns the last outputTailLines.
// Prompts are logged as warnings as soon as they arrive.
func streamOutput(ctx context.Context, r io.Reader, level zapcore.Level) []string {
	tail := make([]string, 0, outputTailLines)
	scanner := bufio.NewScanner(r)
	log := logger.FromContext(ctx)

	var prompt bool

	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := scanLinesOrPrompt(data, atEOF)
		prompt = err == nil && advance > 0 && advance == len(token) && !atEOF && isPrompt(token)

		return advance, token, err
	})

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if prompt {
			logger.Warnf(ctx, "Waiting for input: %s", strings.TrimSpace(line))
		} else {
			log.Logw(level, line)
		}

		if len(tail) == outputTailLines {
			tail = append(tail[:0], tail[1:]...)
		}

		tail = append(tail, line)
	}

	// Drain whatever is left after an overlong line so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)

	return tail
}

// scanLinesOrPrompt splits like bufio.ScanLines but also returns a pending
// chunk without a newline when it looks like a prompt, such as the password
// question of "sudo -S".
func scanLinesOrPrompt(data []byte, atEOF bool) (int, []byte, error) {
	advance, token, err := bufio.ScanLines(data, atEOF)
	if advance > 0 || token != nil || err != nil {
		return advance, token, err
	}

	if isPrompt(data) {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// isPrompt reports whether chunk ends like a question waiting for an answer.
func isPrompt(chunk []byte) bool {
	trimmed := bytes.TrimRight(chunk, " ")
	if len(trimmed) == len(chunk) || bytes.ContainsRune(chunk, '\n') {
		return false
	}

	return bytes.HasSuffix(trimmed, []byte(":")) || bytes.HasSuffix(trimmed, []byte("?"))
}

// DryRunExecutor logs steps instead of running them.
type DryRunExecutor struct{}

// Execute logs the argv and reports success.
// The message is emitted even when the configured level hides info messages.
func (DryRunExecutor) Execute(ctx context.Context, step Step) *Result {
	logger.InfoKV(logger.Pinned(ctx, zapcore.InfoLevel), "Dry run, not executing", "step", step.Name, "command", step.String())

	return &Result{Step: step}
}
