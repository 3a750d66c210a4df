package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptomcheck/scheduling-engine/internal/availability"
)

type fakeWindowStore struct {
	byDoctor map[uuid.UUID][]availability.Window
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{byDoctor: make(map[uuid.UUID][]availability.Window)}
}

func (s *fakeWindowStore) GetWindows(_ context.Context, doctorID uuid.UUID) ([]availability.Window, error) {
	return s.byDoctor[doctorID], nil
}

func (s *fakeWindowStore) CreateWindow(_ context.Context, w availability.Window) (*availability.Window, error) {
	if err := availability.ValidateNoOverlap(w, s.byDoctor[w.DoctorID]); err != nil {
		return nil, err
	}
	w.ID = uuid.New()
	s.byDoctor[w.DoctorID] = append(s.byDoctor[w.DoctorID], w)
	return &w, nil
}

func (s *fakeWindowStore) DeleteWindow(_ context.Context, id uuid.UUID) error {
	for doctorID, windows := range s.byDoctor {
		for i, w := range windows {
			if w.ID == id {
				s.byDoctor[doctorID] = append(windows[:i], windows[i+1:]...)
				return nil
			}
		}
	}
	return availability.ErrWindowNotFound
}

func windowsRouter(store availability.Store) http.Handler {
	r := chi.NewRouter()
	r.Get("/doctors/{id}/availability", listWindowsHandler(store))
	r.Post("/doctors/{id}/availability", createWindowHandler(store))
	r.Delete("/availability/{id}", deleteWindowHandler(store))
	return r
}

func TestCreateAndListWindows(t *testing.T) {
	store := newFakeWindowStore()
	router := windowsRouter(store)
	doctorID := uuid.New()

	body := `{"weekdays":[1,3,5],"start":"09:00","end":"12:00"}`
	req := httptest.NewRequest(http.MethodPost, "/doctors/"+doctorID.String()+"/availability", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"start":"09:00"`)
	assert.Contains(t, rec.Body.String(), `"end":"12:00"`)

	req = httptest.NewRequest(http.MethodGet, "/doctors/"+doctorID.String()+"/availability", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"weekdays":[1,3,5]`)
}

func TestCreateWindowRejections(t *testing.T) {
	store := newFakeWindowStore()
	router := windowsRouter(store)
	doctorID := uuid.New()

	seed := availability.Window{
		DoctorID:    doctorID,
		Weekdays:    []time.Weekday{time.Monday},
		StartMinute: 9 * 60,
		EndMinute:   12 * 60,
	}
	_, err := store.CreateWindow(context.Background(), seed)
	require.NoError(t, err)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"overlapping window", `{"weekdays":[1],"start":"10:00","end":"13:00"}`, http.StatusConflict},
		{"end before start", `{"weekdays":[2],"start":"12:00","end":"09:00"}`, http.StatusBadRequest},
		{"bad clock format", `{"weekdays":[2],"start":"9am","end":"12:00"}`, http.StatusBadRequest},
		{"weekday out of range", `{"weekdays":[7],"start":"09:00","end":"12:00"}`, http.StatusBadRequest},
		{"empty weekdays", `{"weekdays":[],"start":"09:00","end":"12:00"}`, http.StatusBadRequest},
		{"not json", `nope`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/doctors/"+doctorID.String()+"/availability", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestDeleteWindow(t *testing.T) {
	store := newFakeWindowStore()
	router := windowsRouter(store)
	doctorID := uuid.New()

	created, err := store.CreateWindow(context.Background(), availability.Window{
		DoctorID:    doctorID,
		Weekdays:    []time.Weekday{time.Monday},
		StartMinute: 9 * 60,
		EndMinute:   12 * 60,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/availability/"+created.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/availability/"+created.ID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/availability/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClockConversion(t *testing.T) {
	m, err := clockToMinutes("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*60+30, m)

	_, err = clockToMinutes("25:00")
	assert.Error(t, err)
	_, err = clockToMinutes("9am")
	assert.Error(t, err)

	assert.Equal(t, "09:30", minutesToClock(9*60+30))
	assert.Equal(t, "00:00", minutesToClock(0))
	assert.Equal(t, "23:45", minutesToClock(23*60+45))
}
