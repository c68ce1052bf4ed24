package api

import "net/http"

// ListMilestones returns the milestones of a task.
func (h *Handler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.LoadMilestonesForTask(r.Context(), pathParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// SaveMilestone creates or updates the milestone in the body.
func (h *Handler) SaveMilestone(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	raw, err := h.client.SaveMilestone(r.Context(), body, pathParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// GetMilestone returns one milestone.
func (h *Handler) GetMilestone(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.LoadMilestone(r.Context(), pathParam(r, "taskID"), pathParam(r, "milestoneID"))
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// DeleteMilestone removes one milestone.
func (h *Handler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.DeleteMilestone(r.Context(), pathParam(r, "milestoneID"), pathParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}
