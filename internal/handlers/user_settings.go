package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// oauthKeySuffix marks settings rows that hold provider tokens; they are
// readable through the credential resolver only.
const oauthKeySuffix = "_oauth"

func (h *Handler) GetUserSetting(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.unavailable(w, "Database")
		return
	}
	userID := pathVar(r, "userId")
	settingKey := pathVar(r, "key")
	log.Printf("[UserSettings][Get] userId=%s key=%s", userID, settingKey)
	if strings.HasSuffix(settingKey, oauthKeySuffix) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
		return
	}

	var raw []byte
	err := h.db.QueryRowContext(r.Context(),
		`SELECT value FROM public.user_settings WHERE user_id = $1 AND key = $2`,
		userID, settingKey).Scan(&raw)
	if err == sql.ErrNoRows {
		log.Printf("[UserSettings][Get] not found userId=%s key=%s", userID, settingKey)
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
		return
	}
	if err != nil {
		log.Printf("[UserSettings][Get] query error userId=%s key=%s err=%v", userID, settingKey, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to read setting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": settingKey, "value": json.RawMessage(raw)})
}

func (h *Handler) UpsertUserSetting(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.unavailable(w, "Database")
		return
	}
	userID := pathVar(r, "userId")
	settingKey := pathVar(r, "key")
	log.Printf("[UserSettings][Upsert] userId=%s key=%s", userID, settingKey)
	if strings.HasSuffix(settingKey, oauthKeySuffix) {
		writeJSONError(w, http.StatusBadRequest, "Use /api/session/credentials to store provider tokens")
		return
	}

	var body struct {
		Value any `json:"value"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeAppError(w, err, "")
		return
	}
	valueBytes, err := json.Marshal(body.Value)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid setting value")
		return
	}

	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO public.user_settings (user_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, userID, settingKey, valueBytes)
	if err != nil {
		log.Printf("[UserSettings][Upsert] DB upsert error userId=%s key=%s err=%v", userID, settingKey, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to save setting")
		return
	}
	log.Printf("[UserSettings][Upsert] success userId=%s key=%s", userID, settingKey)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": settingKey, "value": json.RawMessage(valueBytes)})
}

// GetUserSettings returns every non-token setting of a user.
func (h *Handler) GetUserSettings(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.unavailable(w, "Database")
		return
	}
	userID := pathVar(r, "userId")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "userId is required")
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `SELECT key, value FROM public.user_settings WHERE user_id = $1`, userID)
	if err != nil {
		log.Printf("[UserSettings][GetAll] query error userId=%s err=%v", userID, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var k string
		var raw []byte
		if err := rows.Scan(&k, &raw); err != nil {
			log.Printf("[UserSettings][GetAll] scan error userId=%s err=%v", userID, err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to read settings")
			return
		}
		if strings.HasSuffix(k, oauthKeySuffix) {
			continue
		}
		out[k] = json.RawMessage(raw)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[UserSettings][GetAll] rows error userId=%s err=%v", userID, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": out})
}
