package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/service/scheduler"
)

func (h *Handler) runCheck(w http.ResponseWriter, r *http.Request) {
	var eventType *domain.EventType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := domain.ParseEventType(raw)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		eventType = &t
	}

	report, err := h.scheduler.RunManualCheck(r.Context(), eventType)
	if err != nil {
		h.logger.WithError(err).Warn("manual event check finished with errors")
	}
	writeSuccess(w, http.StatusOK, newReportResponse(report))
}

func (h *Handler) upcoming(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 366 {
			writeError(w, h.logger, &validationError{message: "days must be between 1 and 366"})
			return
		}
		days = parsed
	}

	var (
		items []scheduler.Upcoming
		err   error
	)
	switch r.URL.Query().Get("type") {
	case "", string(domain.EventBirthday):
		items, err = h.scheduler.UpcomingBirthdays(r.Context(), days)
	case string(domain.EventAnniversary):
		items, err = h.scheduler.UpcomingAnniversaries(r.Context(), days)
	default:
		err = &validationError{message: "type must be birthday or anniversary"}
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]upcomingResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newUpcomingResponse(item))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) getEventSettings(w http.ResponseWriter, r *http.Request) {
	eventType, err := domain.ParseEventType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	settings, err := h.settings.GetEventSettings(r.Context(), eventType)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, newEventSettingsResponse(settings))
}

func (h *Handler) putEventSettings(w http.ResponseWriter, r *http.Request) {
	eventType, err := domain.ParseEventType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req eventSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	notifyTime, err := domain.ParseTimeOfDay(req.NotifyTime)
	if err != nil {
		writeError(w, h.logger, &validationError{message: err.Error()})
		return
	}

	settings := domain.EventSettings{
		Type:             eventType,
		Enabled:          req.Enabled,
		NotifyDays:       req.NotifyDays,
		NotifyTime:       notifyTime,
		RewardAmount:     req.RewardAmount,
		RewardMultiplier: req.RewardMultiplier,
		StockThreshold:   req.StockThreshold,
	}
	if err := h.settings.SaveEventSettings(r.Context(), settings); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.WithField("event_type", eventType).Info("event settings updated")
	writeSuccess(w, http.StatusOK, newEventSettingsResponse(settings))
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	prefs, err := h.settings.GetPreferences(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, preferencesRequest{Birthday: prefs.Birthday, Anniversary: prefs.Anniversary, Stock: prefs.Stock})
}

func (h *Handler) putPreferences(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	prefs := domain.StaffPreferences{AccountID: id, Birthday: req.Birthday, Anniversary: req.Anniversary, Stock: req.Stock}
	if err := h.settings.SavePreferences(r.Context(), prefs); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, req)
}
