package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

const (
	foldersPageSize = 50
	filesPageSize   = 20
)

type driveFile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	ModifiedTime string   `json:"modifiedTime"`
	Size         string   `json:"size"`
	WebViewLink  string   `json:"webViewLink"`
	Parents      []string `json:"parents"`
}

type driveFileList struct {
	Files []driveFile `json:"files"`
}

func (c *Client) listFiles(ctx context.Context, op string, params url.Values) ([]driveFile, error) {
	var out driveFileList
	if err := c.do(ctx, op, http.MethodGet, c.Endpoints.Drive+"/files?"+params.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// ListFolders returns the non-trashed folders directly under parentID
// ("root" when empty).
func (c *Client) ListFolders(ctx context.Context, parentID string) ([]models.DriveFolder, error) {
	parent := strings.TrimSpace(parentID)
	if parent == "" {
		parent = "root"
	}
	q := url.Values{}
	q.Set("q", fmt.Sprintf("mimeType = '%s' and trashed = false and %s in parents", MimeFolder, quote(parent)))
	q.Set("orderBy", "folder,name")
	q.Set("pageSize", fmt.Sprint(foldersPageSize))
	q.Set("fields", "files(id,name,mimeType)")

	files, err := c.listFiles(ctx, "drive_folders", q)
	if err != nil {
		return nil, err
	}
	out := make([]models.DriveFolder, 0, len(files))
	for _, f := range files {
		out = append(out, models.DriveFolder{ID: f.ID, Name: f.Name})
	}
	return out, nil
}

// FileKind narrows ListFiles.
type FileKind string

const (
	KindAll   FileKind = "all"
	KindDoc   FileKind = "doc"
	KindSheet FileKind = "sheet"
)

func ParseFileKind(s string) (FileKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return KindAll, true
	case "doc", "docs", "document":
		return KindDoc, true
	case "sheet", "sheets", "spreadsheet":
		return KindSheet, true
	default:
		return "", false
	}
}

// ListFiles returns recently modified Docs and/or Sheets, optionally inside parentID.
func (c *Client) ListFiles(ctx context.Context, kind FileKind, parentID string) ([]models.DriveResource, error) {
	var mime string
	switch kind {
	case KindDoc:
		mime = fmt.Sprintf("mimeType = '%s'", MimeDocument)
	case KindSheet:
		mime = fmt.Sprintf("mimeType = '%s'", MimeSpreadsheet)
	default:
		mime = fmt.Sprintf("(mimeType = '%s' or mimeType = '%s')", MimeDocument, MimeSpreadsheet)
	}
	query := mime + " and trashed = false"
	if p := strings.TrimSpace(parentID); p != "" {
		query += " and " + quote(p) + " in parents"
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("orderBy", "modifiedTime desc")
	q.Set("pageSize", fmt.Sprint(filesPageSize))
	q.Set("fields", "files(id,name,mimeType,modifiedTime,size,webViewLink)")

	files, err := c.listFiles(ctx, "drive_files", q)
	if err != nil {
		return nil, err
	}
	out := make([]models.DriveResource, 0, len(files))
	for _, f := range files {
		out = append(out, models.DriveResource{
			ID:          f.ID,
			Name:        f.Name,
			MimeType:    f.MimeType,
			Modified:    f.ModifiedTime,
			Size:        f.Size,
			WebViewLink: f.WebViewLink,
		})
	}
	return out, nil
}

type fileMetadata struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// upload sends metadata plus media as a multipart/related Drive upload.
func (c *Client) upload(ctx context.Context, op string, meta fileMetadata, mediaType string, media []byte) (models.DriveResource, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return models.DriveResource{}, err
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return models.DriveResource{}, err
	}
	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mediaType}})
	if err != nil {
		return models.DriveResource{}, err
	}
	if _, err := mediaPart.Write(media); err != nil {
		return models.DriveResource{}, err
	}
	if err := mw.Close(); err != nil {
		return models.DriveResource{}, err
	}

	endpoint := c.Endpoints.Upload + "/files?uploadType=multipart&fields=" + url.QueryEscape("id,name,mimeType,webViewLink")
	var f driveFile
	if err := c.do(ctx, op, http.MethodPost, endpoint, &buf, "multipart/related; boundary="+mw.Boundary(), &f); err != nil {
		return models.DriveResource{}, err
	}
	return models.DriveResource{ID: f.ID, Name: f.Name, MimeType: f.MimeType, WebViewLink: f.WebViewLink}, nil
}

// CreateDocument uploads plain text that Drive converts into a Google Doc.
func (c *Client) CreateDocument(ctx context.Context, title, content, folderID string) (models.DriveResource, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled Script"
	}
	meta := fileMetadata{Name: title, MimeType: MimeDocument}
	if f := strings.TrimSpace(folderID); f != "" {
		meta.Parents = []string{f}
	}
	return c.upload(ctx, "drive_create_doc", meta, "text/plain; charset=UTF-8", []byte(content))
}

// moveToFolder re-parents a file from root into folderID.
func (c *Client) moveToFolder(ctx context.Context, fileID, folderID string) error {
	q := url.Values{}
	q.Set("addParents", folderID)
	q.Set("removeParents", "root")
	q.Set("fields", "id,parents")
	return c.doJSON(ctx, "drive_move", http.MethodPatch, c.Endpoints.Drive+"/files/"+url.PathEscape(fileID)+"?"+q.Encode(), map[string]any{}, nil)
}
