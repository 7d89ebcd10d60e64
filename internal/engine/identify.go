package engine

import (
	"context"

	"github.com/KunalGupta25/EduConnect/internal/enrollment"
)

// Identification is one candidate from camera-mode identification.
type Identification struct {
	StudentID    int64   `json:"student_id"`
	EnrollmentNo string  `json:"enrollment_no"`
	Name         string  `json:"name"`
	Distance     float64 `json:"distance"`
}

// Identify finds the enrolled students closest to the faces in a frame,
// without knowing who is claimed to be present. Used by the classroom
// camera mode, which points one lens at the room instead of asking each
// student for a selfie. Candidates beyond the configured distance cutoff
// are dropped.
func (e *Engine) Identify(ctx context.Context, frame []byte) ([]Identification, error) {
	resp, err := e.extractor.ExtractFaces(ctx, frame)
	if err != nil {
		return nil, err
	}
	if resp.FacesCount == 0 {
		return nil, nil
	}

	seen := make(map[int64]bool)
	var out []Identification
	for _, face := range resp.Faces {
		matches, err := e.index.Search(face.Template, e.identify.SearchLimit)
		if err != nil {
			// Empty index means nobody is enrolled yet, not a failure.
			continue
		}
		best := bestMatch(matches, e.identify.MaxDistance)
		if best == nil || seen[best.Student.ID] {
			continue
		}
		seen[best.Student.ID] = true
		out = append(out, Identification{
			StudentID:    best.Student.ID,
			EnrollmentNo: best.Student.EnrollmentNo,
			Name:         best.Student.DisplayName(),
			Distance:     best.Distance,
		})
	}
	return out, nil
}

func bestMatch(matches []enrollment.Match, maxDistance float64) *enrollment.Match {
	for i := range matches {
		if matches[i].Distance <= maxDistance {
			return &matches[i]
		}
	}
	return nil
}
