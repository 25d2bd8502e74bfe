package steps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/systemstart/nya/pkg/assets"
	"github.com/systemstart/nya/pkg/bus"
	"github.com/systemstart/nya/pkg/payload"
)

const (
	// DefaultBinary is looked up in PATH.
	DefaultBinary = "ansible-playbook"
	// DefaultTokenKey is the context key receiving the captured join token.
	DefaultTokenKey = "k3s_node_token"

	defaultWaitDelay = 5 * time.Second
	maxLineSize      = 1024 * 1024
)

// DefaultTokenPattern matches the join token printed by the control plane
// playbook. The "token" group is captured.
var DefaultTokenPattern = regexp.MustCompile(`K3S_TOKEN=(?P<token>[A-Za-z0-9:.]+)`)

// Executor stages and runs playbooks, narrating their output on the log event.
type Executor struct {
	Binary       string
	Assets       fs.FS
	TokenPattern *regexp.Regexp
	TokenKey     string
	// ControlDir is the parent of per-run ssh socket directories.
	ControlDir string
	// TempDir is the parent of per-invocation work directories.
	TempDir string
	// WaitDelay bounds output draining once the process has exited or
	// ctx is done. Descendants still holding the output are cut off.
	WaitDelay time.Duration
	Logger    *slog.Logger

	fallbackID string
}

// Option configures an Executor.
type Option func(*Executor)

// WithBinary sets the ansible-playbook executable.
func WithBinary(binary string) Option {
	return func(e *Executor) { e.Binary = binary }
}

// WithAssets sets the tree holding playbooks and templates.
func WithAssets(fsys fs.FS) Option {
	return func(e *Executor) { e.Assets = fsys }
}

// WithTokenPattern captures the "token" group of re into key.
func WithTokenPattern(re *regexp.Regexp, key string) Option {
	return func(e *Executor) {
		e.TokenPattern = re
		e.TokenKey = key
	}
}

// WithControlDir sets the parent of the ssh socket directories.
func WithControlDir(dir string) Option {
	return func(e *Executor) { e.ControlDir = dir }
}

// WithTempDir sets the parent of the work directories.
func WithTempDir(dir string) Option {
	return func(e *Executor) { e.TempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.Logger = logger }
}

// WithWaitDelay bounds how long output is read after the playbook exits or
// is cancelled.
func WithWaitDelay(d time.Duration) Option {
	return func(e *Executor) { e.WaitDelay = d }
}

// NewExecutor returns an Executor running ansible-playbook against the
// embedded assets.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		Binary:       DefaultBinary,
		Assets:       assets.FS(),
		TokenPattern: DefaultTokenPattern,
		TokenKey:     DefaultTokenKey,
		WaitDelay:    defaultWaitDelay,
		Logger:       slog.Default(),
		fallbackID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunID returns the run identifier of rt, or an identifier private to e when
// rt does not carry one.
func (e *Executor) RunID(rt bus.Runtime) string {
	if r, ok := rt.(interface{ RunID() string }); ok {
		return r.RunID()
	}
	return e.fallbackID
}

// Run stages pb and executes it to completion. Every output line is forwarded
// to the log event. A non-zero exit status is returned as an error.
func (e *Executor) Run(ctx context.Context, rt bus.Runtime, pb Playbook) error {
	runID := e.RunID(rt)
	logger := e.Logger.With("playbook", pb.Name, "runID", runID)

	s, err := e.stage(runID, rt, pb)
	if err != nil {
		return fmt.Errorf("staging %s: %w", pb.Name, err)
	}
	defer func() {
		if err := s.cleanup(); err != nil {
			logger.Warn("failed to remove work directory", "dir", s.dir, "error", err)
		}
	}()

	socketDir := e.SocketDir(runID)
	if err := os.MkdirAll(socketDir, 0o700); err != nil {
		return fmt.Errorf("creating ssh control directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Binary, "-i", s.inventory, "-e", s.vars, s.playbook)
	cmd.Dir = s.dir
	cmd.Env = commandEnv(os.Environ(), socketDir)
	cmd.WaitDelay = e.WaitDelay
	killProcessGroup(cmd)

	// The child writes into in-process pipes. Wait copies into them and gives
	// up after WaitDelay, so a descendant holding the output cannot stall
	// the pumps.
	stdout, stdoutW := io.Pipe()
	stderr, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	closeWriters := func() {
		_ = stdoutW.Close()
		_ = stderrW.Close()
	}

	logger.Debug("starting playbook", "binary", e.Binary, "workDir", s.dir, "inventory", s.inventory)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		closeWriters()
		return fmt.Errorf("starting %s: %w", e.Binary, err)
	}

	var g errgroup.Group
	g.Go(func() error { return e.pump(ctx, rt, stdout, true) })
	g.Go(func() error { return e.pump(ctx, rt, stderr, false) })

	waitErr := cmd.Wait()
	closeWriters()
	pumpErr := g.Wait()

	if errors.Is(waitErr, exec.ErrWaitDelay) && ctx.Err() == nil {
		logger.Warn("output still held open after exit", "waitDelay", e.WaitDelay)
		waitErr = nil
	}
	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s interrupted: %w: %w", e.Binary, pb.Name, ctxErr, waitErr)
		}
		return fmt.Errorf("%s %s: %w", e.Binary, pb.Name, waitErr)
	}
	if pumpErr != nil {
		return fmt.Errorf("reading %s output: %w", pb.Name, pumpErr)
	}

	logger.Debug("playbook finished", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (e *Executor) pump(ctx context.Context, rt bus.Runtime, r io.Reader, captureToken bool) error {
	br := bufio.NewReaderSize(r, 64*1024)

	for {
		line, truncated, err := readLine(br, maxLineSize)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Drain so the writer is never blocked on a full pipe.
			_, _ = io.Copy(io.Discard, r)
			return err
		}

		if captureToken {
			e.capture(rt, line)
		}
		rt.Trigger(ctx, bus.LogEvent, payload.New(line))
		if truncated {
			e.Logger.Warn("output line truncated", "limit", maxLineSize)
			rt.Trigger(ctx, bus.LogEvent, payload.New(fmt.Sprintf("[line truncated at %d bytes]", maxLineSize)))
		}
	}
}

// readLine returns the next line without its terminator. Bytes beyond limit
// are discarded and reported through truncated. A final line without a
// newline is returned with a nil error.
func readLine(br *bufio.Reader, limit int) (line string, truncated bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if len(buf) > 0 || truncated {
				return string(buf), truncated, nil
			}
			return "", false, err
		}

		if room := limit - len(buf); len(chunk) > room {
			buf = append(buf, chunk[:room]...)
			truncated = true
		} else {
			buf = append(buf, chunk...)
		}

		if !isPrefix {
			return string(buf), truncated, nil
		}
	}
}

func (e *Executor) capture(rt bus.Runtime, line string) {
	if e.TokenPattern == nil {
		return
	}
	m := e.TokenPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}

	token := m[len(m)-1]
	if i := e.TokenPattern.SubexpIndex("token"); i > 0 {
		token = m[i]
	}
	rt.Set(e.TokenKey, token)
}
