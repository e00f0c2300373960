package process

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
)

var (
	ErrAlreadyRunning = errors.New("scanner is already running")
	ErrNotRunning     = errors.New("no scanner is running")
	ErrMissingToken   = errors.New("missing token")
)

// TokenEnv is the environment variable the child reads its backend token from.
const TokenEnv = "BACKEND_TOKEN"

// SupervisedEnv is set in the child's environment. A supervised scanner logs to its
// standard streams only and leaves the log files to the controller.
const SupervisedEnv = "SCANNER_SUPERVISED"

// maxLineSize bounds one line of child output; longer lines are cut.
const maxLineSize = 1 << 20

// DefaultStopTimeout is how long Stop waits after SIGTERM before killing the child.
const DefaultStopTimeout = 5 * time.Second

// Broadcaster receives every output line of the child, JSON encoded.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Controller owns at most one scanner child process. All methods are safe for
// concurrent use.
type Controller struct {
	mu          sync.Mutex
	command     []string
	cmd         *exec.Cmd
	done        chan struct{}
	stopping    bool
	startedAt   time.Time
	stopTimeout time.Duration
	broadcaster Broadcaster
	logger      *logger.Logger
}

// NewController creates a Controller that spawns command, split on whitespace.
// broadcaster may be nil.
func NewController(command string, broadcaster Broadcaster, logger *logger.Logger) *Controller {
	return &Controller{
		command:     strings.Fields(command),
		stopTimeout: DefaultStopTimeout,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// SetStopTimeout changes how long Stop waits for a graceful exit.
func (c *Controller) SetStopTimeout(d time.Duration) {
	c.mu.Lock()
	c.stopTimeout = d
	c.mu.Unlock()
}

// Status reports whether a child is running.
func (c *Controller) Status() dto.ProcessStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := dto.ProcessStatus{Command: strings.Join(c.command, " ")}
	if c.cmd != nil {
		status.Running = true
		status.Stopping = c.stopping
		status.PID = c.cmd.Process.Pid
		status.StartedAt = c.startedAt
	}
	return status
}

// Start spawns the scanner with token in its environment.
func (c *Controller) Start(token string) (dto.ProcessStatus, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return dto.ProcessStatus{}, ErrMissingToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return dto.ProcessStatus{}, ErrAlreadyRunning
	}
	if len(c.command) == 0 {
		return dto.ProcessStatus{}, fmt.Errorf("scanner command is empty")
	}

	cmd := exec.Command(c.command[0], c.command[1:]...)
	cmd.Env = append(os.Environ(), TokenEnv+"="+token, SupervisedEnv+"=1")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return dto.ProcessStatus{}, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return dto.ProcessStatus{}, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return dto.ProcessStatus{}, fmt.Errorf("failed to start scanner: %w", err)
	}

	done := make(chan struct{})
	c.cmd = cmd
	c.done = done
	c.startedAt = time.Now()

	var pipes sync.WaitGroup
	pipes.Add(2)
	go c.forward(&pipes, "stdout", stdout)
	go c.forward(&pipes, "stderr", stderr)
	go c.wait(cmd, &pipes, done)

	c.logger.Info("Scanner started (pid %d): %s", cmd.Process.Pid, strings.Join(c.command, " "))

	return dto.ProcessStatus{
		Running:   true,
		PID:       cmd.Process.Pid,
		StartedAt: c.startedAt,
		Command:   strings.Join(c.command, " "),
	}, nil
}

// Stop asks the child to terminate and returns once it has exited. If the child is
// still alive after the stop timeout it is killed. The handle stays set until the
// exit, so Start keeps failing with ErrAlreadyRunning meanwhile.
func (c *Controller) Stop() error {
	c.mu.Lock()
	cmd, done, timeout := c.cmd, c.done, c.stopTimeout
	if cmd == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}
	if c.stopping {
		c.mu.Unlock()
		<-done
		return nil
	}
	c.stopping = true
	c.mu.Unlock()

	c.logger.Info("Stopping scanner (pid %d)", cmd.Process.Pid)
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		c.logger.Warning("SIGTERM failed, killing scanner: %v", err)
		cmd.Process.Kill()
	}

	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Warning("Scanner did not exit within %s, killing it", timeout)
		cmd.Process.Kill()
		<-done
	}
	return nil
}

func (c *Controller) wait(cmd *exec.Cmd, pipes *sync.WaitGroup, done chan struct{}) {
	// pipes must be drained before Wait closes them
	pipes.Wait()
	err := cmd.Wait()

	c.mu.Lock()
	exitedOnItsOwn := c.cmd == cmd && !c.stopping
	if c.cmd == cmd {
		c.cmd = nil
		c.done = nil
		c.stopping = false
	}
	c.mu.Unlock()

	switch {
	case exitedOnItsOwn && err != nil:
		c.logger.Error("Scanner exited: %v", err)
	case exitedOnItsOwn:
		c.logger.Info("Scanner exited")
	default:
		c.logger.Info("Scanner stopped")
	}
	close(done)
}

func (c *Controller) forward(pipes *sync.WaitGroup, stream string, r io.Reader) {
	defer pipes.Done()
	// whatever the scanner cannot read must still be consumed, or the child blocks
	defer io.Copy(io.Discard, r)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		c.relay(stream, line)

		if c.broadcaster == nil {
			continue
		}
		message, err := json.Marshal(dto.ProcessLine{Stream: stream, Line: line, Time: time.Now()})
		if err != nil {
			continue
		}
		c.broadcaster.Broadcast(message)
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warning("Stopped reading scanner %s: %v", stream, err)
	}
}

// relay logs a child line at the level the child logged it with. Unprefixed stderr
// output, such as a panic trace, is a warning.
func (c *Controller) relay(stream, line string) {
	level, text := childLevel(line)
	if level == "" && stream == "stderr" {
		level = levelWarning
	}

	switch level {
	case levelError:
		c.logger.Error("[SCANNER] %s", text)
	case levelWarning:
		c.logger.Warning("[SCANNER] %s", text)
	default:
		c.logger.Info("[SCANNER] %s", text)
	}
}

const (
	levelInfo    = "INFO"
	levelWarning = "WARNING"
	levelError   = "ERROR"
)

// childStamp is the date and time logger.NewWithWriter writes after the level.
const childStamp = "2006/01/02 15:04:05 "

// childLevel splits the level and timestamp written by logger.NewWithWriter off a line.
func childLevel(line string) (string, string) {
	for _, level := range []string{levelInfo, levelWarning, levelError} {
		rest, ok := strings.CutPrefix(line, level+" ")
		if !ok {
			continue
		}
		rest = strings.TrimLeft(rest, " ")
		if len(rest) >= len(childStamp) {
			if _, err := time.Parse(childStamp, rest[:len(childStamp)]); err == nil {
				rest = rest[len(childStamp):]
			}
		}
		return level, rest
	}
	return "", line
}
