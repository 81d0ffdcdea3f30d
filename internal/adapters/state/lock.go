package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

// LockFileName is created next to the handled-topics file.
const LockFileName = "autorun.lock"

// lockInfo represents lock file contents.
type lockInfo struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// InstanceLock guarantees a single scheduler per data directory, so two
// processes never dispatch from the same handled set.
type InstanceLock struct {
	path string
	held bool
}

// NewInstanceLock creates a lock for the file at path.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path}
}

// LockPathFor returns the lock path that guards a handled-topics file.
func LockPathFor(handledPath string) string {
	return filepath.Join(filepath.Dir(handledPath), LockFileName)
}

// Acquire takes the lock. A lock left by a dead process is reclaimed.
func (l *InstanceLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	if info, err := readLock(l.path); err == nil {
		if info.PID != os.Getpid() && processExists(info.PID) {
			return core.ErrState(core.CodeLockAcquireFailed,
				fmt.Sprintf("autorun already running as PID %d on %s since %s",
					info.PID, info.Hostname, info.AcquiredAt.Format(time.RFC3339))).
				WithDetail("path", l.path)
		}
		// stale
		_ = os.Remove(l.path)
	} else if !errors.Is(err, os.ErrNotExist) {
		// unreadable or corrupt lock content; treat as stale
		_ = os.Remove(l.path)
	}

	hostname, _ := os.Hostname()
	data, err := json.Marshal(lockInfo{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshaling lock info: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return core.ErrState(core.CodeLockAcquireFailed, "lock file created by another process").
				WithDetail("path", l.path)
		}
		return fmt.Errorf("creating lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(l.path)
		return fmt.Errorf("writing lock file: %w", err)
	}
	l.held = true
	return nil
}

// Release removes the lock if this process owns it.
func (l *InstanceLock) Release() error {
	if !l.held {
		return nil
	}
	info, err := readLock(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.held = false
			return nil
		}
		return fmt.Errorf("reading lock file: %w", err)
	}
	if info.PID != os.Getpid() {
		return core.ErrState(core.CodeLockReleaseFailed, "lock owned by different process")
	}
	l.held = false
	return os.Remove(l.path)
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

// LockHolder returns the pid recorded in the lock file, or 0 when the file
// is absent or the recorded process is gone.
func LockHolder(path string) int {
	info, err := readLock(path)
	if err != nil || !processExists(info.PID) {
		return 0
	}
	return info.PID
}

func readLock(path string) (lockInfo, error) {
	var info lockInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parsing lock info: %w", err)
	}
	return info, nil
}
