package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the dashboard API on r.
func RegisterRoutes(h *Handler, r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/api/python/{path:.*}", h.Proxy).Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)
	r.HandleFunc("/api/credits", h.Credits).Methods(http.MethodGet)

	// Google
	r.HandleFunc("/api/google/drive", h.GoogleDriveFiles).Methods(http.MethodGet)
	r.HandleFunc("/api/google/drive/folders", h.GoogleDriveFolders).Methods(http.MethodGet)
	r.HandleFunc("/api/google/drive/create-doc", h.GoogleCreateDoc).Methods(http.MethodPost)
	r.HandleFunc("/api/google/drive/upload-image", h.GoogleUploadImage).Methods(http.MethodPost)
	r.HandleFunc("/api/google/docs", h.GoogleDocContent).Methods(http.MethodGet)
	r.HandleFunc("/api/google/sheets", h.GoogleSheetValues).Methods(http.MethodGet)
	r.HandleFunc("/api/google/sheets/write", h.GoogleSheetsWrite).Methods(http.MethodPost)

	// Local planner and content
	r.HandleFunc("/api/local/planner", h.PlannerList).Methods(http.MethodGet)
	r.HandleFunc("/api/local/planner", h.PlannerUpsert).Methods(http.MethodPost)
	r.HandleFunc("/api/local/planner/{id}", h.PlannerDelete).Methods(http.MethodDelete)
	r.HandleFunc("/api/local/social-stats", h.SocialStats).Methods(http.MethodPost)
	r.HandleFunc("/api/local/files", h.LocalFiles).Methods(http.MethodGet)
	r.HandleFunc("/api/local/read", h.LocalRead).Methods(http.MethodGet)
	r.HandleFunc("/api/local/write", h.LocalWrite).Methods(http.MethodPost)
	r.HandleFunc("/api/storage/write", h.StorageWrite).Methods(http.MethodPost)
	r.HandleFunc("/api/proxy-image", h.ProxyImage).Methods(http.MethodGet)

	// Credentials and settings
	r.HandleFunc("/api/session/credentials", h.ListCredentials).Methods(http.MethodGet)
	r.HandleFunc("/api/session/credentials/{provider}", h.ConnectCredential).Methods(http.MethodPut)
	r.HandleFunc("/api/session/credentials/{provider}", h.DisconnectCredential).Methods(http.MethodDelete)
	r.HandleFunc("/api/user-settings/{userId}", h.GetUserSettings).Methods(http.MethodGet)
	r.HandleFunc("/api/user-settings/{userId}/{key}", h.GetUserSetting).Methods(http.MethodGet)
	r.HandleFunc("/api/user-settings/{userId}/{key}", h.UpsertUserSetting).Methods(http.MethodPut)

	// Realtime
	r.HandleFunc("/api/events/ping", h.EventsPing).Methods(http.MethodGet)
	r.HandleFunc("/api/events/ws", h.EventsWebSocket).Methods(http.MethodGet)
}
