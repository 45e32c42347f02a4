package session

// Action is what the detail loop should do after a failed fetch
type Action int

const (
	// Skip moves on to the next record
	Skip Action = iota
	// RefreshAndRetry backs off, refreshes the session and retries the record once
	RefreshAndRetry
	// Cooldown does RefreshAndRetry and, if that fails too, pauses for a long
	// time, refreshes again and resets the failure count
	Cooldown
)

func (a Action) String() string {
	switch a {
	case RefreshAndRetry:
		return "refresh_and_retry"
	case Cooldown:
		return "cooldown"
	default:
		return "skip"
	}
}

// Rotation tracks when a session should be replaced
type Rotation struct {
	interval      int
	refreshAfter  int
	cooldownAfter int

	sinceRefresh int
	consecutive  int
}

// NewRotation refreshes every interval successes, after 2 consecutive
// failures, and cools down after 10
func NewRotation(interval int) *Rotation {
	if interval <= 0 {
		interval = 50
	}
	return &Rotation{interval: interval, refreshAfter: 2, cooldownAfter: 10}
}

// RefreshDue reports whether interval successes happened since the last refresh
func (r *Rotation) RefreshDue() bool {
	return r.sinceRefresh >= r.interval
}

// Success records a successful fetch and clears the failure run
func (r *Rotation) Success() {
	r.sinceRefresh++
	r.consecutive = 0
}

// Failure records one failed record and returns the escalation to take
func (r *Rotation) Failure() Action {
	r.consecutive++
	switch {
	case r.consecutive >= r.cooldownAfter:
		return Cooldown
	case r.consecutive >= r.refreshAfter:
		return RefreshAndRetry
	default:
		return Skip
	}
}

// Refreshed records that a new session was obtained
func (r *Rotation) Refreshed() {
	r.sinceRefresh = 0
}

// CooledDown resets the failure run after a cooldown
func (r *Rotation) CooledDown() {
	r.consecutive = 0
	r.sinceRefresh = 0
}

// Consecutive returns the current failure run length
func (r *Rotation) Consecutive() int {
	return r.consecutive
}
