package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/amrinderguler/ilo-collector/internal/errors"
)

const pidFile = "ilocollector.pid"

// Write records the current process ID, refusing to start when another
// collector is already running. Two loops against one controller would race
// each other's sessions.
func Write() error {
	errFactory := errors.New()
	path := filepath.Join(os.TempDir(), pidFile)

	if _, err := os.Stat(path); err == nil {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return errFactory.Wrap(errors.ErrInternal, err)
		}

		previous, err := strconv.Atoi(string(bytes))
		if err == nil {
			process, err := os.FindProcess(previous)
			if err == nil && process.Signal(syscall.Signal(0)) == nil {
				return errFactory.WithData(errors.ErrAlreadyRunning, previous)
			}
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the PID file. Missing files are not an error.
func Remove() error {
	path := filepath.Join(os.TempDir(), pidFile)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
