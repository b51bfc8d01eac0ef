// Package btctl drives an interactive bluetoothctl process over a
// pseudo-terminal and interprets its free-form status output.
//
// bluetoothctl is a line-oriented REPL with non-deterministic timing
// between a command's echo and its effect report, and unrelated status
// lines interleave freely. The only robust way to read it is to race a
// fixed set of literal triggers against each other (including "timed out"
// and "stream ended" as first-class outcomes) and take whichever appears
// first.
package btctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
)

// ErrSessionClosed reports that the underlying control channel ended.
// Fatal to all pending and future operations; the session is never
// re-spawned within the process lifetime.
var ErrSessionClosed = errors.New("btctl: session closed")

// Session is one long-lived interactive control channel to bluetoothctl.
// Created once at startup, it lives for the process lifetime.
type Session struct {
	rw     io.ReadWriteCloser
	proc   *exec.Cmd
	d      *dispatcher
	logger *log.Logger

	// mu serializes send+expect pairs. The control program is a single
	// serialized resource: overlapping commands corrupt the window in
	// which each response must be matched.
	mu sync.Mutex
}

// Start spawns command on a pseudo-terminal and begins reading its
// output. bluetoothctl only enters interactive mode on a real TTY.
func Start(command string, logger *log.Logger) (*Session, error) {
	cmd := exec.Command(command)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("spawning %s: %w", command, err)
	}
	s := attach(f, logger)
	s.proc = cmd
	return s, nil
}

// Attach wraps an already-open duplex stream as a session. Tests use
// this to script the control program's side of the conversation.
func Attach(rw io.ReadWriteCloser, logger *log.Logger) *Session {
	return attach(rw, logger)
}

func attach(rw io.ReadWriteCloser, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Session{rw: rw, d: newDispatcher(), logger: logger}
	go s.d.readFrom(rw)
	return s
}

// Done is closed when the session output stream ends.
func (s *Session) Done() <-chan struct{} { return s.d.done }

// Err reports the read error that ended the stream. A clean EOF is not
// an error, and a still-open stream reports nil.
func (s *Session) Err() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.d.err
}

// Close tears down the session process and stream.
func (s *Session) Close() error {
	err := s.rw.Close()
	if s.proc != nil {
		_ = s.proc.Wait()
	}
	return err
}

// Send writes one command line to the control program. It does not wait
// for any response: pair every Send with an ExpectAny, or accept that
// the response text is absorbed by a later call.
func (s *Session) Send(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(command)
}

func (s *Session) write(command string) error {
	if _, err := io.WriteString(s.rw, command+"\n"); err != nil {
		return fmt.Errorf("%w: writing %q: %v", ErrSessionClosed, command, err)
	}
	return nil
}

// ExpectAny blocks until the first of the given triggers appears in the
// session output, the timeout lapses, or the stream ends. A timeout of
// zero or less waits forever. The buffer is consumed only through a
// match, so a timed-out call leaves the session usable.
func (s *Session) ExpectAny(patterns []string, timeout time.Duration) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expect(patterns, timeout)
}

func (s *Session) expect(patterns []string, timeout time.Duration) Result {
	w := s.d.arm(patterns)
	if timeout <= 0 {
		return <-w.ch
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-w.ch:
		return res
	case <-timer.C:
		if res, ok := s.d.disarm(w); ok {
			return res
		}
		return Result{Outcome: TimedOut, Index: -1, Before: s.d.snapshot()}
	}
}

// run performs one serialized send+expect exchange. settle mirrors the
// fixed pauses bluetoothctl needs before some responses are worth
// reading; each is a named constant in commands.go.
func (s *Session) run(command string, settle time.Duration, patterns []string, timeout time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(command); err != nil {
		return Result{Outcome: Closed, Index: -1}, err
	}
	if settle > 0 {
		time.Sleep(settle)
	}
	return s.expect(patterns, timeout), nil
}

// WaitForDisconnect blocks until bluetoothctl reports addr dropping its
// connection. Unbounded by design: the disconnect may be arbitrarily far
// in the future, so only ctx or the stream ending gets the caller out.
// The wait is observational and runs concurrently with foreground
// commands without consuming their output.
func (s *Session) WaitForDisconnect(ctx context.Context, addr string) error {
	w, cancel := s.d.watch(addr + " Connected: no")
	defer cancel()
	select {
	case out := <-w.ch:
		if out == Closed {
			return s.closedErr()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) closedErr() error {
	if err := s.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return ErrSessionClosed
}
