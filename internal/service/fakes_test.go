package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (r *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = raw
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, pattern)
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
		}
	}
	return nil
}

func (r *memoryCacheRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// fakeStudentAPI stands in for the upstream client.
type fakeStudentAPI struct {
	mu        sync.Mutex
	pages     map[int][]models.Student
	lastPage  int
	queries   []models.StudentQuery
	listErr   error
	listDelay time.Duration

	deletes     []int64
	deleteErr   error
	deleteGate  chan struct{}
	deleteCalls chan int64
	message     string
}

func newFakeStudentAPI() *fakeStudentAPI {
	return &fakeStudentAPI{
		pages: map[int][]models.Student{
			1: {
				{ID: 3, FirstName: "Ali", LastName: "Hassan", Email: "ali@example.com", StudentNumber: "S-3"},
				{ID: 7, FirstName: "Sara", MiddleName: "M", LastName: "Noor", Email: "sara@example.com", StudentNumber: "S-7"},
				{ID: 42, FirstName: "Omar", LastName: "Zaid", Email: "omar@example.com", StudentNumber: "S-42"},
			},
			2: {
				{ID: 50, FirstName: "Lina", LastName: "Aziz", Email: "lina@example.com", StudentNumber: "S-50"},
			},
		},
		lastPage: 2,
		message:  "Student deleted successfully",
	}
}

func (f *fakeStudentAPI) List(ctx context.Context, q models.StudentQuery) (*models.StudentPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	err := f.listErr
	delay := f.listDelay
	rows := append([]models.Student(nil), f.pages[q.Page]...)
	last := f.lastPage
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return &models.StudentPage{
		Students:   rows,
		Pagination: &models.Pagination{CurrentPage: q.Page, LastPage: last, PerPage: 3, Total: 4},
	}, nil
}

func (f *fakeStudentAPI) Delete(_ context.Context, id int64) (*models.MessageResponse, error) {
	f.mu.Lock()
	f.deletes = append(f.deletes, id)
	gate := f.deleteGate
	calls := f.deleteCalls
	err := f.deleteErr
	f.mu.Unlock()

	if calls != nil {
		calls <- id
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for page, rows := range f.pages {
		kept := rows[:0]
		for _, r := range rows {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		f.pages[page] = kept
	}
	return &models.MessageResponse{Message: f.message}, nil
}

func (f *fakeStudentAPI) lastQuery() models.StudentQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return models.StudentQuery{}
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeStudentAPI) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeStudentAPI) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}

type stubTranslator struct{}

func (stubTranslator) T(id string) string { return id }

func (stubTranslator) Name(parts map[string]string) string {
	return strings.Join(strings.Fields(parts["FirstName"]+" "+parts["MiddleName"]+" "+parts["LastName"]), " ")
}
