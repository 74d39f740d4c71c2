// Package errbuf provides a bounded in-memory buffer of recent
// operational errors.
//
// The buffer is explicit shared state: main constructs one with a fixed
// capacity and hands it to every component that records errors. Once
// full, each new entry evicts the oldest. There is no package-level
// instance; whoever needs the buffer receives it.
package errbuf

import (
	"sync"
	"time"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 100

// Entry is one recorded error.
type Entry struct {
	At     time.Time `json:"at"`
	Source string    `json:"source"`
	Msg    string    `json:"msg"`
}

// Buffer is a fixed-capacity ring of Entry values, safe for concurrent
// use.
type Buffer struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
	head    int // index of the oldest entry once the ring is full
	dropped uint64
}

// New returns an empty buffer holding at most capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{cap: capacity}
}

// Record appends an error to the buffer, evicting the oldest entry when
// the buffer is full. Nil errors are ignored.
func (b *Buffer) Record(source string, err error) {
	if err == nil {
		return
	}
	e := Entry{At: time.Now().UTC(), Source: source, Msg: err.Error()}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) < b.cap {
		b.entries = append(b.entries, e)
		return
	}
	b.entries[b.head] = e
	b.head = (b.head + 1) % b.cap
	b.dropped++
}

// Snapshot returns the buffered entries, oldest first.
func (b *Buffer) Snapshot() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, 0, len(b.entries))
	out = append(out, b.entries[b.head:]...)
	out = append(out, b.entries[:b.head]...)
	return out
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Dropped returns how many entries have been evicted since construction.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
