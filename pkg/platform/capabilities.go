package platform

// Track is one confirmed sensor track: the same target seen on two
// consecutive scans (radars), or a detected emitter (receivers).
type Track struct {
	Target   *Platform
	Sensor   System
	Function string // sensor function: EW, TA, TT, RWR
	Time     float64
}

// TrackReceiver consumes sensing results relayed up the superior chain.
// Within one timestamp, dropped tracks must be delivered before active
// tracks so assignment capacity is freed before new assignments are
// considered.
type TrackReceiver interface {
	ReportActiveTracks(t float64, tracks []Track)
	ReportDroppedTracks(t float64, tracks []Track)
}

// TargetAssignmentC2 is the shooter-container contract between command
// echelons. PriorityAssignTarget may preempt an in-progress engagement;
// UnassignTarget forces teardown when the target was being engaged with
// emissions. Engaging adjusts and returns the container's engagement
// reference count (delta 0 reads it).
type TargetAssignmentC2 interface {
	AssignTarget(t float64, target *Platform) bool
	PriorityAssignTarget(t float64, target *Platform)
	UnassignTarget(t float64, target *Platform)
	TargetDestroyed(t float64, target *Platform, killed bool)
	Engaging(delta int) int
}

// TrackReceiverOf returns the platform's agent as a TrackReceiver when it
// implements that capability.
func TrackReceiverOf(p *Platform) (TrackReceiver, bool) {
	if p == nil || p.Agent == nil {
		return nil, false
	}
	tr, ok := p.Agent.(TrackReceiver)
	return tr, ok
}

// AssignerOf returns the platform's agent as a TargetAssignmentC2 when it
// implements that capability.
func AssignerOf(p *Platform) (TargetAssignmentC2, bool) {
	if p == nil || p.Agent == nil {
		return nil, false
	}
	a, ok := p.Agent.(TargetAssignmentC2)
	return a, ok
}

// ForwardActiveTracks relays tracks verbatim to the owner's superior when
// the superior consumes tracks.
func ForwardActiveTracks(t float64, owner *Platform, tracks []Track) {
	if owner == nil {
		return
	}
	if tr, ok := TrackReceiverOf(owner.Superior); ok {
		tr.ReportActiveTracks(t, tracks)
	}
}

// ForwardDroppedTracks relays dropped tracks verbatim to the owner's
// superior when the superior consumes tracks.
func ForwardDroppedTracks(t float64, owner *Platform, tracks []Track) {
	if owner == nil {
		return
	}
	if tr, ok := TrackReceiverOf(owner.Superior); ok {
		tr.ReportDroppedTracks(t, tracks)
	}
}
