package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/WantedChef/chefchat/internal/config"
)

// allowedExecutables is the built-in executable allowlist. It guards against
// shell meta-character abuse only; high-level write blocking happens in the
// mode layer before a command ever reaches the executor.
var allowedExecutables = map[string]bool{
	// File operations
	"cat": true, "head": true, "tail": true, "wc": true, "file": true,
	"stat": true, "ls": true, "find": true, "grep": true, "awk": true,
	"sed": true, "cut": true, "sort": true, "uniq": true, "tr": true,
	"echo": true, "mkdir": true, "rm": true, "cp": true, "mv": true,
	"touch": true, "pwd": true, "tree": true, "which": true, "whereis": true,
	"basename": true, "dirname": true, "realpath": true, "chmod": true,
	"ln": true, "readlink": true,
	// Git
	"git": true,
	// Network
	"curl": true, "wget": true, "ping": true, "dig": true, "host": true,
	// System
	"ps": true, "pgrep": true, "uptime": true, "uname": true,
	"hostname": true, "date": true, "env": true, "printenv": true,
	"whoami": true, "id": true, "df": true, "du": true, "free": true,
	// Languages and build tools
	"python": true, "python3": true, "pip": true, "uv": true,
	"node": true, "npm": true, "npx": true, "make": true,
	"gcc": true, "clang": true, "cargo": true, "go": true, "rustc": true,
	"docker": true,
	// Shells
	"bash": true, "sh": true, "zsh": true,
	// Archives
	"tar": true, "zip": true, "unzip": true, "gzip": true, "gunzip": true,
	// Misc
	"sleep": true, "jq": true, "yq": true, "rsync": true,
	// Dev tools
	"pytest": true, "ruff": true, "mypy": true, "yarn": true, "pnpm": true,
	"cmake": true,
}

// shellBuiltins require a real shell; they are run via "sh -c". cd is
// special-cased and emulated against the executor's own state.
var shellBuiltins = map[string]bool{
	"cd": true, "pushd": true, "popd": true, "dirs": true,
	"source": true, "export": true, "unset": true, "alias": true,
	"unalias": true, "type": true, "hash": true, "umask": true,
	"ulimit": true, "times": true,
}

// gracefulShutdown is how long a timed-out process gets between the interrupt
// and the process-group kill.
const gracefulShutdown = 2 * time.Second

// Result represents the outcome of a command execution.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
}

// Executor runs external commands with a restricted environment and an
// executable allowlist. It owns a mutable current directory so that emulated
// cd commands affect subsequent executions.
type Executor struct {
	config  *config.Config
	workdir string

	mu  sync.Mutex
	cwd string

	extra map[string]bool
}

// New creates an Executor rooted at workdir.
func New(cfg *config.Config, workdir string) *Executor {
	if cfg == nil {
		panic("cfg is required")
	}
	extra := make(map[string]bool, len(cfg.Tools.ExtraExecutables))
	for _, name := range cfg.Tools.ExtraExecutables {
		extra[name] = true
	}
	return &Executor{
		config:  cfg,
		workdir: workdir,
		cwd:     workdir,
		extra:   extra,
	}
}

// Workdir returns the current working directory used for command execution.
func (e *Executor) Workdir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cwd
}

// ResetWorkdir restores the working directory to the original root.
func (e *Executor) ResetWorkdir() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cwd = e.workdir
}

func (e *Executor) isAllowed(name string) bool {
	return allowedExecutables[name] || e.extra[name]
}

// Execute parses and runs a single command, returning its captured output.
// The subprocess environment is the safe allowlist plus extraEnv; host
// secrets never leak through. A zero timeout falls back to the configured
// default.
func (e *Executor) Execute(ctx context.Context, command string, timeout time.Duration, extraEnv map[string]string) (*Result, error) {
	words, err := splitWords(command)
	if err != nil {
		return nil, &ParseError{Command: command, Cause: err}
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}

	executable := words[0]
	base := filepath.Base(executable)

	isBuiltin := shellBuiltins[base] || shellBuiltins[executable]
	if !isBuiltin && base != "cd" && !e.isAllowed(base) && !e.isAllowed(executable) {
		return nil, &DisallowedError{Executable: executable}
	}

	if base == "cd" {
		return e.changeDir(words)
	}

	if timeout <= 0 {
		timeout = time.Duration(e.config.Tools.DefaultShellTimeout) * time.Second
	}

	var cmd *exec.Cmd
	if isBuiltin {
		cmd = exec.Command("sh", "-c", command)
	} else {
		cmd = exec.Command(words[0], words[1:]...)
	}
	cmd.Dir = e.Workdir()
	cmd.Env = SafeEnv(extraEnv)
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	return e.run(ctx, cmd, timeout)
}

// changeDir emulates the cd builtin against executor state. "cd -" and a bare
// "cd" both go home.
func (e *Executor) changeDir(words []string) (*Result, error) {
	target := "~"
	if len(words) > 1 {
		target = words[1]
	}

	var path string
	switch {
	case target == "~" || target == "-":
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, &PathError{Path: target, Reason: "cannot resolve home directory"}
		}
		path = home
	case filepath.IsAbs(target):
		path = target
	default:
		path = filepath.Join(e.Workdir(), target)
	}

	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, &PathError{Path: path, Reason: "cannot resolve path"}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, &PathError{Path: resolved, Reason: "directory does not exist"}
	}
	if !info.IsDir() {
		return nil, &PathError{Path: resolved, Reason: "path is not a directory"}
	}

	e.mu.Lock()
	e.cwd = resolved
	e.mu.Unlock()

	return &Result{
		Stderr: fmt.Sprintf("Changed directory to: %s", resolved),
	}, nil
}

func (e *Executor) run(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) (*Result, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("command start: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("command start: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start: %w", err)
	}

	// Collect output concurrently so it doesn't block the timeout select.
	var stdoutStr, stderrStr string
	var truncated bool
	collectDone := make(chan struct{})
	go func() {
		stdoutStr, stderrStr, truncated = e.collectOutput(stdoutPipe, stderrPipe)
		close(collectDone)
	}()

	done := make(chan error, 1)
	go func() {
		// Wait closes the pipes, so the collectors must drain them first.
		<-collectDone
		done <- cmd.Wait()
	}()

	var execErr error
	select {
	case err := <-done:
		execErr = err
	case <-ctx.Done():
		e.killGroup(cmd)
		<-done
		execErr = ctx.Err()
	case <-time.After(timeout):
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(gracefulShutdown):
			e.killGroup(cmd)
			<-done
		}
		execErr = ErrTimeout
	}

	<-collectDone

	exitCode := 0
	if execErr != nil {
		exitCode = exitCodeOf(execErr)
		if errors.Is(execErr, ErrTimeout) || errors.Is(execErr, context.Canceled) {
			exitCode = -1
		}
	}

	res := &Result{
		Stdout:    stdoutStr,
		Stderr:    stderrStr,
		ExitCode:  exitCode,
		Truncated: truncated,
	}

	// A non-zero exit is a normal outcome for the caller, not an error.
	var exitErr *exec.ExitError
	if errors.As(execErr, &exitErr) {
		return res, nil
	}
	return res, execErr
}

// killGroup kills the whole process group so shell builtins can't leave
// orphaned children behind.
func (e *Executor) killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return
	}
	_ = cmd.Process.Kill()
}

func (e *Executor) collectOutput(stdout, stderr io.Reader) (string, string, bool) {
	maxBytes := int(e.config.Tools.DefaultMaxCommandOutputSize)

	stdoutCollector := newCollector(maxBytes, 8000)
	stderrCollector := newCollector(maxBytes, 8000)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		_, _ = io.Copy(stdoutCollector, stdout)
	}()

	go func() {
		defer wg.Done()
		_, _ = io.Copy(stderrCollector, stderr)
	}()

	wg.Wait()

	truncated := stdoutCollector.Truncated() || stderrCollector.Truncated()
	return stdoutCollector.String(), stderrCollector.String(), truncated
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	type exitCoder interface {
		ExitCode() int
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}
