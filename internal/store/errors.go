package store

import "errors"

var (
	// ErrDuplicateRecord means a Present record already exists for the
	// student and calendar day. Callers decide whether that is a failure:
	// the live verify path treats it as success, the sync path as a skip.
	ErrDuplicateRecord = errors.New("attendance record already exists for this day")

	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCoordinate means a latitude/longitude pair is outside the
	// valid WGS84 range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
