package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
)

// ErrBroken is returned once the worker has timed out or its pipes have failed.
var ErrBroken = errors.New("worker: connection broken")

// Client talks to a detection worker process over its stdin and stdout.
// Requests are serialized; one frame is in flight at a time.
type Client struct {
	mu      sync.Mutex
	in      io.WriteCloser
	out     io.Reader
	timeout time.Duration
	seq     uint64
	broken  bool
	logger  *logger.Logger

	cmd  *exec.Cmd
	done chan struct{}
}

// NewClient creates a Client over an already established pair of pipes.
func NewClient(in io.WriteCloser, out io.Reader, timeout time.Duration, logger *logger.Logger) *Client {
	return &Client{in: in, out: out, timeout: timeout, logger: logger}
}

// Start spawns command (split on whitespace) with the model path appended and
// returns a Client bound to its pipes. The process is killed when ctx ends.
func Start(ctx context.Context, command, modelPath string, timeout time.Duration, logger *logger.Logger) (*Client, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("worker command is empty")
	}
	args := append(fields[1:], "--model", modelPath)

	cmd := exec.CommandContext(ctx, fields[0], args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	logger.Info("Detection worker started (pid %d): %s", cmd.Process.Pid, command)

	c := NewClient(stdin, stdout, timeout, logger)
	c.cmd = cmd
	c.done = make(chan struct{})

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Warning("[WORKER] %s", scanner.Text())
		}
	}()

	go func() {
		defer close(c.done)
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			logger.Error("Detection worker exited: %v", err)
		}
	}()

	return c, nil
}

// Detect sends one frame and waits for its detections.
func (c *Client) Detect(frame []byte, threshold float64) ([]dto.DetectionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken {
		return nil, ErrBroken
	}

	c.seq++
	req := Request{Seq: c.seq, FrameData: frame, Threshold: threshold}

	result := make(chan error, 1)
	var resp Response
	go func() {
		if err := WriteMessage(c.in, req); err != nil {
			result <- err
			return
		}
		result <- ReadMessage(c.out, &resp)
	}()

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-result:
		if err != nil {
			c.broken = true
			return nil, fmt.Errorf("worker exchange failed: %w: %w", ErrBroken, err)
		}
	case <-timeout:
		c.broken = true
		return nil, fmt.Errorf("worker did not answer within %s: %w", c.timeout, ErrBroken)
	}

	if resp.Seq != req.Seq {
		c.broken = true
		return nil, fmt.Errorf("worker answered seq %d for request %d: %w", resp.Seq, req.Seq, ErrBroken)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("worker: %s", resp.Error)
	}
	return resp.Detections, nil
}

// Close closes stdin, which asks the worker to exit, and waits briefly for it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.in.Close()
	if c.cmd == nil {
		return err
	}

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		c.logger.Warning("Detection worker did not exit, killing it")
		c.cmd.Process.Kill()
		<-c.done
	}
	return err
}
