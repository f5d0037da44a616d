// Package localfs keeps the dashboard's scripts and drafts as plain files
// under one content root.
package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9.\-_ ()]`)

// SanitizeName replaces every character outside letters, digits, space and
// ".-_()" with "_".
func SanitizeName(name string) string {
	return unsafeName.ReplaceAllString(strings.TrimSpace(name), "_")
}

type Dir struct {
	Root string
}

// resolve joins rel under Root and rejects anything that would escape it.
func (d Dir) resolve(field, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		return "", apperr.NewValidation(field, "Path must be relative to the content directory")
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", apperr.NewValidation(field, "Path must stay inside the content directory")
	}
	if clean == "." {
		return d.Root, nil
	}
	return filepath.Join(d.Root, clean), nil
}

func (d Dir) ensure() error {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return apperr.NewLocalIO("Failed to list files", err)
	}
	return nil
}

// List returns the direct children of Root, creating Root when missing.
// Created is the modification time; not every filesystem records birth times.
func (d Dir) List() ([]models.LocalFile, error) {
	if err := d.ensure(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, apperr.NewLocalIO("Failed to list files", err)
	}
	out := make([]models.LocalFile, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, models.LocalFile{
			ID:          e.Name(),
			Name:        e.Name(),
			Size:        info.Size(),
			Created:     info.ModTime(),
			Modified:    info.ModTime(),
			IsDirectory: e.IsDir(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d Dir) Read(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", apperr.NewValidation("filename", "Filename is required")
	}
	p, err := d.resolve("filename", filename)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", apperr.New(apperr.NotFound, "File not found")
	}
	if err != nil {
		return "", apperr.NewLocalIO("Failed to read file", err)
	}
	return string(b), nil
}

// Write stores content as <directory>/<sanitized filename> under Root and
// returns the written path.
func (d Dir) Write(filename, content, directory string) (string, error) {
	if strings.TrimSpace(filename) == "" || content == "" {
		return "", apperr.NewValidation("filename", "Filename and content are required")
	}
	dir, err := d.resolve("directory", directory)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.NewLocalIO("Failed to write file", err)
	}
	p := filepath.Join(dir, SanitizeName(filepath.Base(filename)))
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", apperr.NewLocalIO("Failed to write file", fmt.Errorf("write %s: %w", p, err))
	}
	return p, nil
}
