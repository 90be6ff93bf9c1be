package content

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type repoMock struct {
	mutex   sync.Mutex
	lastID  int
	records map[int]*Record
	now     func() time.Time
	// Err, when set, is returned by every call.
	Err error
	// AfterList, when set, runs once List has read its records and released
	// the lock, before they are returned.
	AfterList func()
}

func NewMockRepo() *repoMock {
	return &repoMock{
		records: make(map[int]*Record),
		now:     time.Now,
	}
}

func (r *repoMock) Add(_ context.Context, record *Record) (*Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	if record.Title == "" {
		return nil, ErrInvalidRecord
	}
	if record.Kind == KindSubscribers && r.findSubscriber(record.Title, 0) != nil {
		return nil, ErrAlreadySubscribed
	}
	return r.add(record), nil
}

func (r *repoMock) add(record *Record) *Record {
	r.lastID++
	added := *record
	added.ID = r.lastID
	if len(added.Data) == 0 {
		added.Data = emptyData
	}
	added.CreatedAt = r.now().Add(time.Duration(r.lastID) * time.Millisecond)
	added.UpdatedAt = added.CreatedAt
	r.records[added.ID] = &added

	result := added
	return &result
}

func (r *repoMock) AddSubscriber(_ context.Context, email string) (*Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	existing := r.findSubscriber(email, 0)
	if existing == nil {
		return r.add(&Record{Kind: KindSubscribers, Title: email, Data: emptyData, IsActive: true}), nil
	}
	if existing.IsActive {
		return nil, ErrAlreadySubscribed
	}
	existing.IsActive = true
	existing.UpdatedAt = r.now()
	result := *existing
	return &result, nil
}

// findSubscriber mirrors the lower(title) unique index; skipID excludes the
// record being updated.
func (r *repoMock) findSubscriber(email string, skipID int) *Record {
	for _, existing := range r.records {
		if existing.Kind == KindSubscribers && existing.ID != skipID && strings.EqualFold(existing.Title, email) {
			return existing
		}
	}
	return nil
}

func (r *repoMock) Get(_ context.Context, kind Kind, id int) (*Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	record, ok := r.records[id]
	if !ok || record.Kind != kind {
		return nil, ErrRecordNotFound
	}
	result := *record
	return &result, nil
}

func (r *repoMock) List(_ context.Context, kind Kind, activeOnly bool) ([]Record, error) {
	records, afterList, err := r.list(kind, activeOnly)
	if err != nil {
		return nil, err
	}
	if afterList != nil {
		afterList()
	}
	return records, nil
}

func (r *repoMock) list(kind Kind, activeOnly bool) ([]Record, func(), error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, nil, r.Err
	}
	var records []Record
	for _, record := range r.records {
		if record.Kind != kind || (activeOnly && !record.IsActive) {
			continue
		}
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, r.AfterList, nil
}

func (r *repoMock) Update(_ context.Context, record *Record) (*Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	existing, ok := r.records[record.ID]
	if !ok || existing.Kind != record.Kind {
		return nil, ErrRecordNotFound
	}
	if record.Kind == KindSubscribers && r.findSubscriber(record.Title, record.ID) != nil {
		return nil, ErrAlreadySubscribed
	}
	existing.Title = record.Title
	existing.Body = record.Body
	existing.Data = record.Data
	if len(existing.Data) == 0 {
		existing.Data = emptyData
	}
	existing.IsActive = record.IsActive
	existing.UpdatedAt = r.now()

	result := *existing
	return &result, nil
}

func (r *repoMock) Deactivate(_ context.Context, kind Kind, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return r.Err
	}
	existing, ok := r.records[id]
	if !ok || existing.Kind != kind {
		return ErrRecordNotFound
	}
	existing.IsActive = false
	existing.UpdatedAt = r.now()
	return nil
}
