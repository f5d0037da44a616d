package models

import "time"

// PlannerItem is one content idea on the dashboard's planner board.
type PlannerItem struct {
	ID       string `json:"id" yaml:"id"`
	Topic    string `json:"topic" yaml:"topic" validate:"max=500"`
	Platform string `json:"platform" yaml:"platform" validate:"omitempty,oneof=linkedin instagram youtube twitter x tiktok facebook threads blog other"`
	Prompt   string `json:"prompt" yaml:"prompt" validate:"max=10000"`
	Status   string `json:"status" yaml:"status" validate:"omitempty,oneof=idea planned generated drafted scheduled posted"`
	Date     string `json:"date" yaml:"date" validate:"omitempty,datetime=2006-01-02"`
}

type PlannerSaveResponse struct {
	Success bool        `json:"success"`
	Item    PlannerItem `json:"item"`
}

type PlannerDeleteResponse struct {
	Success bool `json:"success"`
	Deleted bool `json:"deleted"`
}

// DriveResource is a reference to a Drive file or folder. Never cached.
type DriveResource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
	Modified    string `json:"modified,omitempty"`
	Size        string `json:"size,omitempty"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

type DriveFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DriveFoldersResponse struct {
	Folders []DriveFolder `json:"folders"`
}

type DriveFilesResponse struct {
	Files []DriveResource `json:"files"`
}

type DocContentResponse struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

type SheetValuesResponse struct {
	Values [][]any `json:"values"`
}

type CreateDocRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	FolderID string `json:"folderId"`
}

type UploadImageRequest struct {
	ImageBase64 string `json:"imageBase64"`
	FileName    string `json:"filename"`
	Title       string `json:"title"`
	FolderID    string `json:"folderId"`
}

// DriveFileCreated answers both create-doc and upload-image.
type DriveFileCreated struct {
	Success bool   `json:"success"`
	FileID  string `json:"fileId"`
	Link    string `json:"link"`
}

type SheetsWriteRequest struct {
	Item     PlannerItem `json:"item"`
	FolderID string      `json:"folderId"`
}

type SheetsWriteResponse struct {
	Success       bool   `json:"success"`
	SpreadsheetID string `json:"spreadsheetId"`
}

// CreditsBalance mirrors the backend's /user/credits payload.
type CreditsBalance struct {
	CreditsBalance   int    `json:"credits_balance"`
	SubscriptionTier string `json:"subscription_tier"`
}

type SocialProfiles struct {
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
	Instagram string `json:"instagram"`
	YouTube   string `json:"youtube"`
}

type SocialStatsRequest struct {
	Profiles SocialProfiles `json:"profiles"`
}

// PlatformStats uses the audience noun each network uses.
type PlatformStats struct {
	Followers   int64   `json:"followers,omitempty"`
	Connections int64   `json:"connections,omitempty"`
	Subscribers int64   `json:"subscribers,omitempty"`
	Views       float64 `json:"views"`
	Source      string  `json:"source"`
}

type SocialStats struct {
	TotalViews     string                   `json:"totalViews"`
	TotalFollowers string                   `json:"totalFollowers"`
	EngagementRate string                   `json:"engagementRate"`
	Platforms      map[string]PlatformStats `json:"platforms"`
}

type LocalFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	IsDirectory bool      `json:"isDirectory"`
}

type LocalWriteRequest struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Directory string `json:"directory"`
}

type LocalWriteResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	FileID  string `json:"fileId,omitempty"`
	Link    string `json:"link,omitempty"`
}

// ConnectCredentialRequest stores an already obtained token. Expiry is RFC 3339
// or empty.
type ConnectCredentialRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	Expiry       string `json:"expiry"`
	AccountID    string `json:"accountId"`
	Scope        string `json:"scope"`
}
