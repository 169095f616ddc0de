package livesync

import (
	"sync"
	"time"
)

// DefaultIncidentCap is how many incidents a board keeps on screen.
const DefaultIncidentCap = 50

type Incident struct {
	At      time.Time `json:"at"`
	Table   string    `json:"table"`
	Message string    `json:"message"`
}

// IncidentLog is a rolling log keeping only the newest entries.
type IncidentLog struct {
	mu      sync.Mutex
	cap     int
	entries []Incident
}

func NewIncidentLog(capacity int) *IncidentLog {
	if capacity <= 0 {
		capacity = DefaultIncidentCap
	}
	return &IncidentLog{cap: capacity}
}

func (l *IncidentLog) Add(inc Incident) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, inc)
	if over := len(l.entries) - l.cap; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
}

// Entries returns the log newest first.
func (l *IncidentLog) Entries() []Incident {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Incident, len(l.entries))
	for i, e := range l.entries {
		out[len(out)-1-i] = e
	}
	return out
}
