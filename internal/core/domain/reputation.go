package domain

const (
	InitialTrustScore          = 100
	FalseAlertSuspendThreshold = 3
)

// ReputationEvent names an outcome that moves a user's reputation.
type ReputationEvent string

const (
	RepResponded      ReputationEvent = "responded"
	RepResolvedOwn    ReputationEvent = "resolved_own"
	RepFalseAlert     ReputationEvent = "false_alert"
	RepAdminUnsuspend ReputationEvent = "admin_unsuspend"
)

// ReputationDelta is the deterministic effect of one event on one user.
type ReputationDelta struct {
	Event            ReputationEvent
	Trust            int
	FalseAlerts      int
	ResetFalseAlerts bool
	// CheckSuspend suspends the user when the false alert count reaches the
	// threshold after this delta.
	CheckSuspend bool
	// Unsuspend lifts a suspension.
	Unsuspend bool
}

// DeltaFor returns the scoring rule for ev. Unknown events have no effect.
func DeltaFor(ev ReputationEvent) ReputationDelta {
	switch ev {
	case RepResponded:
		return ReputationDelta{Event: ev, Trust: 2}
	case RepResolvedOwn:
		return ReputationDelta{Event: ev, Trust: 5}
	case RepFalseAlert:
		return ReputationDelta{Event: ev, Trust: -20, FalseAlerts: 1, CheckSuspend: true}
	case RepAdminUnsuspend:
		return ReputationDelta{Event: ev, ResetFalseAlerts: true, Unsuspend: true}
	default:
		return ReputationDelta{Event: ev}
	}
}

// Apply mutates u in memory exactly the way the user store applies d
// atomically: trust floored at zero, false alerts never negative, suspension
// set in the same step the threshold is crossed.
func (u *User) Apply(d ReputationDelta) {
	u.TrustScore += d.Trust
	if u.TrustScore < 0 {
		u.TrustScore = 0
	}
	if d.ResetFalseAlerts {
		u.FalseAlertCount = 0
	}
	u.FalseAlertCount += d.FalseAlerts
	if u.FalseAlertCount < 0 {
		u.FalseAlertCount = 0
	}
	if d.Unsuspend {
		u.Suspended = false
	}
	if d.CheckSuspend && u.FalseAlertCount >= FalseAlertSuspendThreshold {
		u.Suspended = true
	}
}
