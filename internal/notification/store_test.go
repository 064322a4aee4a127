package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/audit"
	"CampusNotify/internal/recipient"
)

// memStore is an in-memory Store used across this package's tests.
type memStore struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]*Notification
	order   []primitive.ObjectID
	failAll error
	// rejectEvery marks every n-th document of a batch as a write error.
	rejectEvery int
}

func newMemStore() *memStore {
	return &memStore{byID: map[primitive.ObjectID]*Notification{}}
}

func (m *memStore) put(n *Notification) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	cp := *n
	m.byID[n.ID] = &cp
	m.order = append(m.order, n.ID)
}

func (m *memStore) Insert(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	m.put(n)
	return nil
}

func (m *memStore) InsertMany(_ context.Context, ns []*Notification) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return 0, m.failAll
	}
	var errs error
	inserted := 0
	for i, n := range ns {
		if m.rejectEvery > 0 && (i+1)%m.rejectEvery == 0 {
			errs = multierr.Append(errs, errors.New("duplicate key"))
			continue
		}
		m.put(n)
		inserted++
	}
	return inserted, errs
}

func (m *memStore) lookup(id string) (*Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	n, ok := m.byID[oid]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return n, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	cp := *n
	return &cp, nil
}

func (m *memStore) collect(keep func(*Notification) bool) []*Notification {
	out := []*Notification{}
	for _, id := range m.order {
		n, ok := m.byID[id]
		if ok && keep(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out
}

func (m *memStore) FindByRecipient(_ context.Context, recipientID string, activeAt *time.Time) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(n *Notification) bool {
		return n.RecipientID == recipientID && (activeAt == nil || n.ActiveAt(*activeAt))
	}), nil
}

func (m *memStore) Find(_ context.Context, f ListFilter) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(n *Notification) bool {
		return (f.Type == "" || n.Type == f.Type) &&
			(f.Status == "" || n.Status == f.Status) &&
			(f.Course == "" || n.Course == f.Course) &&
			(f.AcademicYear == "" || n.AcademicYear == f.AcademicYear) &&
			(f.Semester == 0 || n.Semester == f.Semester)
	}), nil
}

func (m *memStore) MarkRead(_ context.Context, id string, at time.Time) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	n.Status = StatusRead
	n.ReadAt = &at
	cp := *n
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(id)
	if err != nil {
		return err
	}
	delete(m.byID, n.ID)
	return nil
}

func (m *memStore) CountByTypeAndStatus(_ context.Context) ([]CountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []CountRow
	index := map[[2]string]int{}
	for _, id := range m.order {
		n, ok := m.byID[id]
		if !ok {
			continue
		}
		key := [2]string{n.Type, string(n.Status)}
		i, seen := index[key]
		if !seen {
			i = len(rows)
			index[key] = i
			rows = append(rows, CountRow{Type: n.Type, Status: n.Status})
		}
		rows[i].Count++
	}
	return rows, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memRecorder struct {
	entries []*audit.Entry
	err     error
}

func (r *memRecorder) Record(_ context.Context, e *audit.Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

type stubResolver struct {
	ids     []string
	calls   int
	role    recipient.Role
	filters recipient.Filters
}

func (s *stubResolver) Resolve(_ context.Context, role recipient.Role, f recipient.Filters) ([]string, error) {
	s.calls++
	s.role, s.filters = role, f
	return s.ids, nil
}

// capturingFinder records the Mongo filter each category resolver builds.
type capturingFinder struct {
	ids     []string
	filters []bson.M
}

func (f *capturingFinder) FindIDs(_ context.Context, filter bson.M) ([]string, error) {
	f.filters = append(f.filters, filter)
	return f.ids, nil
}
