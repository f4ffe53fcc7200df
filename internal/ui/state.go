package ui

import (
	"sync"
	"sync/atomic"
	"time"
)

// ScanState mirrors the scan counters for the user interface. It
// implements the catalog progress Reporter; the scanning goroutine
// writes, the rendering goroutine reads.
type ScanState struct {
	Files       atomic.Uint64
	Dirs        atomic.Uint64
	Bytes       atomic.Uint64
	HashedBytes atomic.Uint64

	startTime time.Time

	mu              sync.Mutex
	currentPath     string
	currentFileSize uint64
	currentFileDone uint64
	hashing         bool
}

// NewScanState returns a ScanState starting its rate clock now.
func NewScanState() *ScanState {
	return &ScanState{startTime: time.Now()}
}

// DirStart notes the directory currently being processed.
func (s *ScanState) DirStart(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hashing {
		s.currentPath = path
	}
}

// DirDone counts a finished directory.
func (s *ScanState) DirDone() {
	s.Dirs.Add(1)
}

// DirSummary accounts a directory loaded from its sidecar.
func (s *ScanState) DirSummary(files uint64, bytes uint64) {
	s.Dirs.Add(1)
	s.Files.Add(files)
	s.Bytes.Add(bytes)
}

// FileSeen counts one scanned file.
func (s *ScanState) FileSeen(size uint64) {
	s.Files.Add(1)
	s.Bytes.Add(size)
}

// HashStart switches the display to per-file hashing.
func (s *ScanState) HashStart(path string, size uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashing = true
	s.currentPath = path
	s.currentFileSize = size
	s.currentFileDone = 0
}

// HashProgress accounts hashed bytes of the current file.
func (s *ScanState) HashProgress(bytesRead uint64) {
	s.HashedBytes.Add(bytesRead)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentFileDone += bytesRead
}

// HashEnd leaves per-file hashing display.
func (s *ScanState) HashEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashing = false
	s.currentFileSize = 0
	s.currentFileDone = 0
}

// Snapshot returns the current path and hashing completion for
// rendering.
func (s *ScanState) Snapshot() (path string, percent float64, hashing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentFileSize > 0 {
		percent = float64(s.currentFileDone) / float64(s.currentFileSize)
	}

	return s.currentPath, percent, s.hashing
}

// HashRate returns the average hashing rate in bytes per second.
func (s *ScanState) HashRate() float64 {
	elapsed := time.Since(s.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}

	return float64(s.HashedBytes.Load()) / elapsed
}
