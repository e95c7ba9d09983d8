// Package lock guarantees a single polling daemon per session directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file inside a session directory.
const FileName = "LOCK"

// Owner describes the process holding a session lock.
type Owner struct {
	PID     int
	User    string
	Started time.Time
}

// LockHeldError is returned when another daemon already polls this session.
type LockHeldError struct {
	Owner Owner
	Path  string
}

func (e *LockHeldError) Error() string {
	if e.Owner.User != "" {
		return fmt.Sprintf("session lock held by PID %d polling as %s (%s)", e.Owner.PID, e.Owner.User, e.Path)
	}
	return fmt.Sprintf("session lock held by PID %d (%s)", e.Owner.PID, e.Path)
}

// Lock represents an acquired session lock file.
type Lock struct {
	file  *os.File
	path  string
	owner Owner
}

// Acquire takes the exclusive session lock for a daemon polling as user
// (a conversation key such as "student_42"). Returns *LockHeldError if
// another process already holds it.
func Acquire(sessionDir, user string) (*Lock, error) {
	lockPath := filepath.Join(sessionDir, FileName)

	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(lockPath)
		_ = f.Close()
		return nil, &LockHeldError{Owner: parseOwner(string(data)), Path: lockPath}
	}

	owner := Owner{PID: os.Getpid(), User: user, Started: time.Now().UTC().Truncate(time.Second)}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	content := fmt.Sprintf("pid=%d\nuser=%s\ntime=%s\n", owner.PID, owner.User, owner.Started.Format(time.RFC3339))
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath, owner: owner}, nil
}

// Owner returns what this lock recorded about the daemon.
func (l *Lock) Owner() Owner {
	return l.owner
}

// Inspect reads the owner recorded in a session's lock file without taking
// the lock. ok is false when no daemon holds it.
func Inspect(sessionDir string) (owner Owner, ok bool, err error) {
	lockPath := filepath.Join(sessionDir, FileName)
	f, err := os.OpenFile(lockPath, os.O_RDWR, 0600)
	if errors.Is(err, os.ErrNotExist) {
		return Owner{}, false, nil
	}
	if err != nil {
		return Owner{}, false, err
	}
	defer func() { _ = f.Close() }()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err == nil {
		// Stale file left by a crashed daemon.
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		return Owner{}, false, nil
	}
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return Owner{}, false, err
	}
	return parseOwner(string(data)), true, nil
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

func parseOwner(content string) Owner {
	var o Owner
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "user":
			o.User = value
		case "time":
			o.Started, _ = time.Parse(time.RFC3339, value)
		}
	}
	return o
}
