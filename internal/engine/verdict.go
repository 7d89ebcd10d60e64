package engine

// Verdict is the terminal outcome of a single verification.
type Verdict int

const (
	// VerdictAccepted means the attendance record was written (or already
	// existed for the day).
	VerdictAccepted Verdict = iota
	// VerdictAcceptedDeferred means the capture passed every check but the
	// request was flagged offline-origin, so nothing was written. The client
	// queues it and resubmits through Sync.
	VerdictAcceptedDeferred
	// VerdictRejectedNoFace means no face was detected in the capture.
	VerdictRejectedNoFace
	// VerdictRejectedNoMatch means the face did not match the enrolled template.
	VerdictRejectedNoMatch
	// VerdictRejectedOutOfZone means the claimant was farther than the fence
	// radius from every teacher anchor.
	VerdictRejectedOutOfZone
	// VerdictRejectedNoEnrollment means the student has no enrolled template.
	VerdictRejectedNoEnrollment
)

var verdictNames = map[Verdict]string{
	VerdictAccepted:             "accepted",
	VerdictAcceptedDeferred:     "accepted_deferred",
	VerdictRejectedNoFace:       "rejected_no_face",
	VerdictRejectedNoMatch:      "rejected_no_match",
	VerdictRejectedOutOfZone:    "rejected_out_of_zone",
	VerdictRejectedNoEnrollment: "rejected_no_enrollment",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return "unknown"
}

// Accepted reports whether the verdict is a success from the student's
// point of view.
func (v Verdict) Accepted() bool {
	return v == VerdictAccepted || v == VerdictAcceptedDeferred
}

// Result carries the verdict plus the measurements that produced it.
type Result struct {
	Verdict Verdict
	// MatchDistance is the template distance for the compared face, when a
	// comparison happened.
	MatchDistance float64
	// ZoneDistance is the distance in meters to the nearest anchor, when a
	// geofence check happened.
	ZoneDistance float64
}
