package api

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/tasktide/desk/internal/domain"
)

// ListTasks returns one page of task summaries.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filters, page, msg := parseTaskQuery(r.URL.Query())
	if msg != "" {
		Error(w, http.StatusBadRequest, msg)
		return
	}

	raw, err := h.client.LoadTasksSummary(r.Context(), filters, page)
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// GetTask returns one task.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.LoadTask(r.Context(), pathParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// SaveTask creates or updates the task in the body.
func (h *Handler) SaveTask(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	raw, err := h.client.SaveTask(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// DeleteTask removes a task.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.DeleteTask(r.Context(), pathParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// GetCounts returns task counts per status.
func (h *Handler) GetCounts(w http.ResponseWriter, r *http.Request) {
	var since *string
	if v := r.URL.Query().Get("since"); v != "" {
		if _, err := strconv.ParseUint(v, 10, 32); err != nil {
			Error(w, http.StatusBadRequest, "since must be a number of days")
			return
		}
		since = &v
	}

	raw, err := h.client.TaskCounts(r.Context(), since)
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// parseTaskQuery reads filters and pagination from a query string. It
// returns a non-empty message for invalid input.
func parseTaskQuery(q url.Values) (domain.TaskFilters, domain.Pagination, string) {
	f := domain.TaskFilters{
		Query:         q.Get("q"),
		Categories:    slices.Concat(q["categories"], q["category"]),
		Statuses:      slices.Concat(q["statuses"], q["status"]),
		CreatedFrom:   q.Get("createdRF"),
		CreatedTo:     q.Get("createdRT"),
		UpdatedFrom:   q.Get("updatedRF"),
		UpdatedTo:     q.Get("updatedRT"),
		DeadlineFrom:  q.Get("deadlineRF"),
		DeadlineTo:    q.Get("deadlineRT"),
		FinishedFrom:  q.Get("finishedRF"),
		FinishedTo:    q.Get("finishedRT"),
		HasFinishDate: q.Get("hasFinishDate"),
		GroupBy:       q.Get("groupBy"),
		SortBy:        q.Get("sortBy"),
	}
	if f.GroupBy != "" && !domain.ValidGroupBy(f.GroupBy) {
		return f, domain.Pagination{}, "unknown groupBy " + strconv.Quote(f.GroupBy)
	}
	if f.SortBy != "" && !domain.ValidSortBy(f.SortBy) {
		return f, domain.Pagination{}, "unknown sortBy " + strconv.Quote(f.SortBy)
	}

	var page domain.Pagination
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &page.Limit}, {"offset", &page.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, page, p.name + " must be a non-negative integer"
		}
		*p.dst = n
	}
	return f, page.Normalize(), ""
}
