package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

// Invoker runs a named operation through an external process.
type Invoker interface {
	Invoke(ctx context.Context, operation string, params model.Params) *model.OperationResult
}

// ProcessObserver is notified around the lifetime of every launched process.
type ProcessObserver interface {
	ProcessStarted(pid int, operation string)
	ProcessExited(pid int)
}

// Option configures a Bridge
type Option func(*Bridge)

// WithResolver sets how the entry script is located.
func WithResolver(r PathResolver) Option {
	return func(b *Bridge) { b.resolver = r }
}

// WithObserver registers a process observer.
func WithObserver(o ProcessObserver) Option {
	return func(b *Bridge) { b.observer = o }
}

// Bridge launches the external entry script and recovers a structured result
// from its output. Invoke never returns an error; every failure becomes an
// unsuccessful OperationResult.
type Bridge struct {
	logger   *zap.Logger
	config   Config
	resolver PathResolver
	observer ProcessObserver
}

// New creates a bridge
func New(config Config, logger *zap.Logger, opts ...Option) *Bridge {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.LogArgLimit <= 0 {
		config.LogArgLimit = DefaultLogArgLimit
	}
	b := &Bridge{
		logger:   logger.Named("bridge"),
		config:   config,
		resolver: RootResolver(config.ResourceRoot),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EntryPath returns the resolved entry script location.
func (b *Bridge) EntryPath() string {
	return b.resolver.Resolve(b.config.EntryScript)
}

// InvokeRequest is Invoke for a prepared request.
func (b *Bridge) InvokeRequest(ctx context.Context, req model.OperationRequest) *model.OperationResult {
	return b.Invoke(ctx, req.Operation, req.Parameters)
}

// Invoke runs operation with params and waits for the process to exit or the
// timeout to fire.
func (b *Bridge) Invoke(ctx context.Context, operation string, params model.Params) *model.OperationResult {
	entry := b.EntryPath()
	if _, err := os.Stat(entry); err != nil {
		err = fmt.Errorf("%w: %s", ErrEntryNotFound, entry)
		b.logger.Error("Entry script missing",
			zap.String("operation", operation),
			zap.String("path", entry))
		return model.Failure(err)
	}

	args, err := BuildArgs(b.config.HarnessArgs, entry, operation, params)
	if err != nil {
		b.logger.Error("Failed to build arguments",
			zap.String("operation", operation),
			zap.Error(err))
		return model.Failure(err)
	}

	b.logger.Info("Invoking external process",
		zap.String("operation", operation),
		zap.String("interpreter", b.config.Interpreter),
		zap.String("args", shellquote.Join(head(args, b.config.LogArgLimit)...)))

	runCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, b.config.Interpreter, args...)
	cmd.Dir = filepath.Dir(entry)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	cmd.Cancel = func() error {
		if err := KillTree(cmd.Process.Pid); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	hideWindow(cmd)

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		b.logger.Error("Failed to start external process",
			zap.String("operation", operation),
			zap.Error(err))
		return model.Failure(err)
	}

	pid := cmd.Process.Pid
	if b.observer != nil {
		b.observer.ProcessStarted(pid, operation)
		defer b.observer.ProcessExited(pid)
	}

	waitErr := cmd.Wait()
	duration := time.Since(startTime)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err := fmt.Errorf("%w: %s after %s", ErrTimeout, operation, b.config.Timeout)
		b.logger.Error("External process timed out",
			zap.String("operation", operation),
			zap.Int("pid", pid),
			zap.Duration("timeout", b.config.Timeout))
		return model.Failure(err)
	}
	if ctx.Err() != nil {
		err := fmt.Errorf("%w: %s: %v", ErrCanceled, operation, ctx.Err())
		b.logger.Error("External process canceled",
			zap.String("operation", operation),
			zap.Int("pid", pid))
		return model.Failure(err)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		b.logger.Error("External process wait failed",
			zap.String("operation", operation),
			zap.Error(waitErr))
		return model.Failure(waitErr)
	}

	b.logger.Debug("External process exited",
		zap.String("operation", operation),
		zap.Int("exit_code", cmd.ProcessState.ExitCode()),
		zap.Duration("duration", duration))

	return b.interpret(operation, cmd.ProcessState.ExitCode(), stdout.String(), stderr.String())
}

// interpret turns the exit code and captured output into a result.
func (b *Bridge) interpret(operation string, exitCode int, stdout, stderr string) *model.OperationResult {
	if exitCode != 0 {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = fmt.Sprintf("process exited with code %d", exitCode)
		}
		b.logger.Error("External process failed",
			zap.String("operation", operation),
			zap.Int("exit_code", exitCode),
			zap.String("stderr", excerpt(stderr)))
		return model.FailureMessage(msg, ErrNonZeroExit)
	}

	if s := strings.TrimSpace(stderr); s != "" {
		b.logger.Debug("External process wrote to stderr",
			zap.String("operation", operation),
			zap.String("stderr", excerpt(s)))
	}

	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return &model.OperationResult{Success: true, RawMessage: &trimmed}
	}

	payload, found, err := ExtractJSON(stdout)
	if err != nil {
		b.logger.Error("Failed to parse process output",
			zap.String("operation", operation),
			zap.String("parse_error", err.Error()),
			zap.String("stdout", excerpt(stdout)))
		return parseFailure(err)
	}
	if !found {
		return &model.OperationResult{Success: true, RawMessage: &trimmed}
	}

	result := resultFromPayload(payload)
	b.logger.Info("External process completed",
		zap.String("operation", operation),
		zap.Bool("success", result.Success))
	return result
}

func head(args []string, n int) []string {
	if len(args) <= n {
		return args
	}
	return args[:n]
}
