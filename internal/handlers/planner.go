package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/planner"
)

// PlannerList returns the whole planner array; a fresh planner is [].
func (h *Handler) PlannerList(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		h.unavailable(w, "Planner")
		return
	}
	items, err := h.planner.List(r.Context())
	if err != nil {
		log.Printf("[Planner][List] error err=%v", err)
		writeAppError(w, err, "Failed to read planner")
		return
	}
	if items == nil {
		items = []models.PlannerItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// PlannerUpsert overlays the posted keys onto the entry with the same id, or
// appends the item. Keys sent empty clear the stored value; keys left out keep
// it. A missing id is assigned by the store.
func (h *Handler) PlannerUpsert(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		h.unavailable(w, "Planner")
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		writeAppError(w, err, "")
		return
	}
	b, _ := json.Marshal(raw)
	var item models.PlannerItem
	if err := json.Unmarshal(b, &item); err != nil {
		writeAppError(w, apperr.NewValidation("body", "Invalid JSON body"), "")
		return
	}
	saved, err := h.planner.Upsert(r.Context(), item, planner.FieldsPresent(raw)...)
	if err != nil {
		if apperr.KindOf(err) != apperr.Validation {
			log.Printf("[Planner][Upsert] error id=%s err=%v", item.ID, err)
		}
		writeAppError(w, err, "Failed to save planner item")
		return
	}
	h.broadcastEvent(realtimeEvent{Type: "planner.updated", ID: saved.ID})
	writeJSON(w, http.StatusOK, models.PlannerSaveResponse{Success: true, Item: saved})
}

// PlannerDelete removes one item; deleting an unknown id is a 404.
func (h *Handler) PlannerDelete(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		h.unavailable(w, "Planner")
		return
	}
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeAppError(w, apperr.NewValidation("id", "Planner item ID is required"), "")
		return
	}
	deleted, err := h.planner.Delete(r.Context(), id)
	if err != nil {
		log.Printf("[Planner][Delete] error id=%s err=%v", id, err)
		writeAppError(w, err, "Failed to delete planner item")
		return
	}
	if !deleted {
		writeAppError(w, apperr.New(apperr.NotFound, "Planner item not found"), "")
		return
	}
	h.broadcastEvent(realtimeEvent{Type: "planner.deleted", ID: id})
	writeJSON(w, http.StatusOK, models.PlannerDeleteResponse{Success: true, Deleted: true})
}
