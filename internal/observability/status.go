package observability

import (
	"sync"
	"time"
)

// Phase is what the planner is doing right now.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseGenerating Phase = "generating"
	PhaseSanitizing Phase = "sanitizing"
	PhaseSaving     Phase = "saving"
	PhaseRunning    Phase = "running"
)

type SystemStatus struct {
	mu           sync.RWMutex
	Phase        Phase
	ActiveTask   string
	LastActivity time.Time
	Started      time.Time
}

// Snapshot is a copy of the status safe to hand out.
type Snapshot struct {
	Phase        Phase     `json:"phase"`
	ActiveTask   string    `json:"active_task,omitempty"`
	LastActivity time.Time `json:"last_activity"`
	Uptime       string    `json:"uptime"`
}

func NewStatus() *SystemStatus {
	now := time.Now()
	return &SystemStatus{Phase: PhaseIdle, LastActivity: now, Started: now}
}

// Set updates the phase and active task.
func (s *SystemStatus) Set(phase Phase, task string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = phase
	s.ActiveTask = task
	s.LastActivity = time.Now()
}

// Idle resets the status after a request finishes.
func (s *SystemStatus) Idle() { s.Set(PhaseIdle, "") }

// Get retrieves a copy of the status.
func (s *SystemStatus) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Phase:        s.Phase,
		ActiveTask:   s.ActiveTask,
		LastActivity: s.LastActivity,
		Uptime:       time.Since(s.Started).Round(time.Second).String(),
	}
}
