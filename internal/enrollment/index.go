// Package enrollment keeps an in-memory nearest-neighbor index over the
// enrolled face templates. Camera-mode identification searches it instead of
// scanning the whole roster per frame.
package enrollment

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"

	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

const maxNeighbors = 16

// Match is one index hit, closest first.
type Match struct {
	Student  store.Student
	Distance float64
}

// Index wraps the HNSW graph for enrolled template search.
type Index struct {
	graph       *hnsw.Graph[int64]
	idToStudent map[int64]*store.Student
	mu          sync.RWMutex
}

// NewIndex creates a new empty index.
func NewIndex() *Index {
	return &Index{
		idToStudent: make(map[int64]*store.Student),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given students. Students
// without a template are skipped.
func (idx *Index) Build(students []store.Student) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(students) == 0 {
		idx.graph = nil
		idx.idToStudent = make(map[int64]*store.Student)
		return nil
	}

	g := newGraph()
	idx.idToStudent = make(map[int64]*store.Student, len(students))

	for i := range students {
		s := &students[i]
		if !s.Enrolled() {
			continue
		}
		g.Add(hnsw.MakeNode(s.ID, []float32(s.Template)))
		idx.idToStudent[s.ID] = s
	}

	idx.graph = g
	return nil
}

// Upsert adds or replaces a single student's template in the index. An
// updated template shadows the old graph node because matches resolve
// through the student map.
func (idx *Index) Upsert(s store.Student) error {
	if !s.Enrolled() {
		return errors.New("student has no template")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.graph == nil {
		idx.graph = newGraph()
	}

	idx.graph.Add(hnsw.MakeNode(s.ID, []float32(s.Template)))
	idx.idToStudent[s.ID] = &s
	return nil
}

// Search finds the k nearest enrolled students to the query template.
// Distances are recomputed exactly from the stored templates so threshold
// comparisons don't depend on graph internals.
func (idx *Index) Search(query facematch.Template, k int) ([]Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil {
		return nil, errors.New("index not initialized")
	}

	neighbors := idx.graph.Search([]float32(query), k)

	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		s, ok := idx.idToStudent[n.Key]
		if !ok {
			continue
		}
		matches = append(matches, Match{
			Student:  *s,
			Distance: facematch.EuclideanDistance(query, s.Template),
		})
	}

	return matches, nil
}

// Count returns the number of indexed students.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.idToStudent)
}
