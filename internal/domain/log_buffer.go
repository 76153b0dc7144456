package domain

import (
	"sync"
	"time"
)

// LogKind classifies a console line by its origin.
type LogKind string

const (
	LogKindRx     LogKind = "rx"
	LogKindTx     LogKind = "tx"
	LogKindSystem LogKind = "system"
	LogKindError  LogKind = "error"
	LogKindIP     LogKind = "ip"
	LogKindMAC    LogKind = "mac"
)

// LogEntry is one human-visible console line. Seq grows monotonically for the
// lifetime of the buffer and survives eviction, so observers can detect gaps.
type LogEntry struct {
	Seq  uint64    `json:"seq"`
	At   time.Time `json:"at"`
	Kind LogKind   `json:"kind"`
	Text string    `json:"text"`
}

// LogBuffer keeps the most recent console lines, evicting the oldest first.
type LogBuffer struct {
	mu       sync.RWMutex
	capacity int
	entries  []LogEntry
	head     int
	size     int
	nextSeq  uint64
	now      func() time.Time
}

func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = 1
	}

	return &LogBuffer{
		capacity: capacity,
		entries:  make([]LogEntry, capacity),
		nextSeq:  1,
		now:      time.Now,
	}
}

func (b *LogBuffer) Append(kind LogKind, text string) LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := LogEntry{Seq: b.nextSeq, At: b.now(), Kind: kind, Text: text}
	b.nextSeq++

	idx := (b.head + b.size) % b.capacity
	b.entries[idx] = entry
	if b.size < b.capacity {
		b.size++
	} else {
		b.head = (b.head + 1) % b.capacity
	}

	return entry
}

// Entries returns a copy of the buffered lines, oldest first.
func (b *LogBuffer) Entries() []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]LogEntry, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.entries[(b.head+i)%b.capacity]
	}

	return out
}

func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.size
}

func (b *LogBuffer) Capacity() int {
	return b.capacity
}
