package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/symptomcheck/scheduling-engine/internal/availability"
)

// Availability authoring endpoints. These serve the doctor-profile side;
// the booking engine itself only ever reads windows.

func listWindowsHandler(store availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		windows, err := store.GetWindows(r.Context(), doctorID)
		if err != nil {
			handleWindowError(w, err)
			return
		}

		out := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			out = append(out, toWindowResponse(win))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createWindowHandler(store availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		var req CreateWindowRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		start, err := clockToMinutes(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", err.Error())
			return
		}
		end, err := clockToMinutes(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", err.Error())
			return
		}

		days := make([]time.Weekday, len(req.Weekdays))
		for i, d := range req.Weekdays {
			days[i] = time.Weekday(d)
		}

		created, err := store.CreateWindow(r.Context(), availability.Window{
			DoctorID:    doctorID,
			Weekdays:    days,
			StartMinute: start,
			EndMinute:   end,
		})
		if err != nil {
			handleWindowError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWindowResponse(*created))
	}
}

func deleteWindowHandler(store availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
			return
		}

		if err := store.DeleteWindow(r.Context(), id); err != nil {
			handleWindowError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleWindowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	case errors.Is(err, availability.ErrWindowOverlap):
		writeError(w, http.StatusConflict, "window_overlap", err.Error())
	case errors.Is(err, availability.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func clockToMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
