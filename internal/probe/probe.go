// Package probe checks whether the Kiro CLI is installed and runnable.
package probe

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes name with args and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command as a child process.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Prober runs "<binary> --version". It never reports an error: any failure
// means the CLI is unavailable.
type Prober struct {
	Binary  string
	Timeout time.Duration

	run    Runner
	logger *zap.Logger
}

// New creates a prober. A nil run uses ExecRunner; a nil logger disables
// logging.
func New(binary string, timeout time.Duration, run Runner, logger *zap.Logger) *Prober {
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{Binary: binary, Timeout: timeout, run: run, logger: logger}
}

// Version returns the first line of the version output and whether the CLI
// responded successfully.
func (p *Prober) Version(ctx context.Context) (string, bool) {
	if p.Binary == "" {
		return "", false
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	out, err := p.run(ctx, p.Binary, "--version")
	if err != nil {
		p.logger.Debug("CLI unavailable", zap.String("binary", p.Binary), zap.Error(err))
		return "", false
	}

	version := strings.TrimSpace(string(out))
	if i := strings.IndexByte(version, '\n'); i >= 0 {
		version = strings.TrimSpace(version[:i])
	}
	p.logger.Debug("CLI available", zap.String("binary", p.Binary), zap.String("version", version))
	return version, true
}

// Available reports whether the CLI responded to --version.
func (p *Prober) Available(ctx context.Context) bool {
	_, ok := p.Version(ctx)
	return ok
}

// Probe is a convenience for a one-off check with the default runner.
func Probe(ctx context.Context, binary string, timeout time.Duration) bool {
	return New(binary, timeout, nil, nil).Available(ctx)
}
