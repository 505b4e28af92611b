// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// fileLock serializes registry writers across processes with an
// exclusive flock(2) on a sidecar file, and across goroutines within
// this process with a mutex (flock is per file description, not per
// goroutine).
type fileLock struct {
	path  string
	mutex sync.Mutex
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

// Acquire takes the lock and returns the release function. The lock
// file persists between runs; its content is irrelevant, only the
// flock on it matters.
func (lock *fileLock) Acquire() (func(), error) {
	lock.mutex.Lock()

	file, err := os.OpenFile(lock.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		lock.mutex.Unlock()
		return nil, fmt.Errorf("opening registry lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		file.Close()
		lock.mutex.Unlock()
		return nil, fmt.Errorf("locking registry: %w", err)
	}

	return func() {
		// Closing the file releases the flock.
		file.Close()
		lock.mutex.Unlock()
	}, nil
}
