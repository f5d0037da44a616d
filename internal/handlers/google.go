package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/afterglow"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/google"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

// googleClient resolves the caller's Google credential and builds a client.
// On failure it has already written the response. The factory is only
// reached with a usable credential.
func (h *Handler) googleClient(w http.ResponseWriter, r *http.Request) (*google.Client, bool) {
	return h.googleClientFrom(w, r, h.creds)
}

// sheetsClient is googleClient with the operator token as a last resort.
func (h *Handler) sheetsClient(w http.ResponseWriter, r *http.Request) (*google.Client, bool) {
	return h.googleClientFrom(w, r, credentials.Chain{h.creds, h.service})
}

func (h *Handler) googleClientFrom(w http.ResponseWriter, r *http.Request, res credentials.Resolver) (*google.Client, bool) {
	if h.google == nil {
		h.unavailable(w, "Google")
		return nil, false
	}
	if res == nil {
		writeAppError(w, apperr.NewUnauthorized(), "Unauthorized")
		return nil, false
	}
	cred, err := res.Resolve(r, credentials.Google)
	if err != nil {
		if errors.Is(err, credentials.ErrNotConnected) {
			writeAppError(w, apperr.NewUnauthorized(), "Unauthorized")
			return nil, false
		}
		log.Printf("[Google][Auth] credential lookup failed err=%v", err)
		writeAppError(w, err, "Failed to read credentials")
		return nil, false
	}
	if cred == nil || (strings.TrimSpace(cred.AccessToken) == "" && strings.TrimSpace(cred.RefreshToken) == "") {
		writeAppError(w, apperr.NewUnauthorized(), "Unauthorized")
		return nil, false
	}
	return h.google.ForCredential(r.Context(), cred), true
}

// GoogleDriveFolders lists folders under ?parentId (root when empty).
func (h *Handler) GoogleDriveFolders(w http.ResponseWriter, r *http.Request) {
	c, ok := h.googleClient(w, r)
	if !ok {
		return
	}
	parent := queryParam(r, "parentId")
	folders, err := c.ListFolders(r.Context(), parent)
	if err != nil {
		log.Printf("[Google][Folders] error parent=%s err=%v", parent, err)
		writeAppError(w, err, "Failed to fetch Drive folders")
		return
	}
	writeJSON(w, http.StatusOK, models.DriveFoldersResponse{Folders: folders})
}

// GoogleDriveFiles lists recent Docs/Sheets; ?type=all|doc|sheet, ?folderId.
func (h *Handler) GoogleDriveFiles(w http.ResponseWriter, r *http.Request) {
	kind, ok := google.ParseFileKind(queryParam(r, "type"))
	if !ok {
		writeAppError(w, apperr.NewValidation("type", "type must be one of all, doc, sheet"), "")
		return
	}
	c, ok := h.googleClient(w, r)
	if !ok {
		return
	}
	files, err := c.ListFiles(r.Context(), kind, queryParam(r, "folderId"))
	if err != nil {
		log.Printf("[Google][Files] error kind=%s err=%v", kind, err)
		writeAppError(w, err, "Failed to fetch Drive files")
		return
	}
	writeJSON(w, http.StatusOK, models.DriveFilesResponse{Files: files})
}

// GoogleDocContent returns {content, title} for ?fileId.
func (h *Handler) GoogleDocContent(w http.ResponseWriter, r *http.Request) {
	fileID := queryParam(r, "fileId")
	if fileID == "" {
		writeAppError(w, apperr.NewValidation("fileId", "File ID is required"), "")
		return
	}
	c, ok := h.googleClient(w, r)
	if !ok {
		return
	}
	doc, err := c.ReadDocument(r.Context(), fileID)
	if err != nil {
		log.Printf("[Google][Docs] error fileId=%s err=%v", fileID, err)
		writeAppError(w, err, "Failed to fetch Doc content")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GoogleSheetValues returns {values} for ?spreadsheetId and optional ?range.
func (h *Handler) GoogleSheetValues(w http.ResponseWriter, r *http.Request) {
	id := queryParam(r, "spreadsheetId")
	if id == "" {
		writeAppError(w, apperr.NewValidation("spreadsheetId", "Spreadsheet ID is required"), "")
		return
	}
	c, ok := h.sheetsClient(w, r)
	if !ok {
		return
	}
	values, err := c.ReadRange(r.Context(), id, queryParam(r, "range"))
	if err != nil {
		log.Printf("[Google][Sheets] error spreadsheetId=%s err=%v", id, err)
		writeAppError(w, err, "Failed to fetch Sheet data")
		return
	}
	writeJSON(w, http.StatusOK, models.SheetValuesResponse{Values: values})
}

// GoogleCreateDoc turns {title, content, folderId} into a Google Doc.
func (h *Handler) GoogleCreateDoc(w http.ResponseWriter, r *http.Request) {
	c, ok := h.googleClient(w, r)
	if !ok {
		return
	}
	var req models.CreateDocRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	f, err := c.CreateDocument(r.Context(), req.Title, req.Content, req.FolderID)
	if err != nil {
		log.Printf("[Google][CreateDoc] error title=%q err=%v", req.Title, err)
		writeAppError(w, err, "Failed to create Document")
		return
	}
	log.Printf("[Google][CreateDoc] created id=%s folder=%s", f.ID, req.FolderID)
	writeJSON(w, http.StatusOK, models.DriveFileCreated{Success: true, FileID: f.ID, Link: f.WebViewLink})
}

// GoogleUploadImage stores a base64 image (data URI or bare) in Drive.
func (h *Handler) GoogleUploadImage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.googleClient(w, r)
	if !ok {
		return
	}
	var req models.UploadImageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	img, err := google.DecodeImageDataURI(req.ImageBase64)
	if err != nil {
		writeAppError(w, err, "")
		return
	}
	name := strings.TrimSpace(req.FileName)
	if name == "" && strings.TrimSpace(req.Title) != "" {
		name = afterglow.FileName(req.Title, afterglow.Visual, imageExt(img.Format), h.now())
	}
	f, err := c.UploadImage(r.Context(), img, name, req.FolderID)
	if err != nil {
		log.Printf("[Google][UploadImage] error name=%q err=%v", name, err)
		writeAppError(w, err, "Failed to upload image")
		return
	}
	log.Printf("[Google][UploadImage] uploaded id=%s bytes=%d format=%s", f.ID, len(img.Data), img.Format)
	writeJSON(w, http.StatusOK, models.DriveFileCreated{Success: true, FileID: f.ID, Link: f.WebViewLink})
}

func imageExt(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	if format == "" {
		return "png"
	}
	return format
}

// GoogleSheetsWrite appends a planner item to the planner spreadsheet,
// creating the spreadsheet on first use.
func (h *Handler) GoogleSheetsWrite(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sheetsClient(w, r)
	if !ok {
		return
	}
	var req models.SheetsWriteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	id, err := c.AppendPlannerRow(r.Context(), req.FolderID, req.Item)
	if err != nil {
		log.Printf("[Google][SheetsWrite] error item=%s err=%v", req.Item.ID, err)
		writeAppError(w, err, "Failed to write to Sheet")
		return
	}
	writeJSON(w, http.StatusOK, models.SheetsWriteResponse{Success: true, SpreadsheetID: id})
}
