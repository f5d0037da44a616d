package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

// FileStore keeps the planner as a pretty-printed JSON array on disk. It is the
// development backend; the mutex plus temp-file rename make each upsert atomic
// for a single process.
type FileStore struct {
	Path string

	mu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) List(ctx context.Context) ([]models.PlannerItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.read(false)
	if err != nil {
		return nil, apperr.NewLocalIO("Failed to read planner", err)
	}
	return items, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (models.PlannerItem, bool, error) {
	items, err := s.List(ctx)
	if err != nil {
		return models.PlannerItem{}, false, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, true, nil
		}
	}
	return models.PlannerItem{}, false, nil
}

func (s *FileStore) Upsert(ctx context.Context, item models.PlannerItem, fields ...string) (models.PlannerItem, error) {
	item, err := prepare(item)
	if err != nil {
		return item, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Unparsable content is replaced on write; a failed read is not.
	items, err := s.read(true)
	if err != nil {
		return item, apperr.NewLocalIO("Failed to save planner item", err)
	}
	var replaced bool
	items, item, replaced = upsertInto(items, item, fields)
	if err := s.write(items); err != nil {
		log.Printf("[Planner][File][Upsert] write failed path=%s id=%s err=%v", s.Path, item.ID, err)
		return item, apperr.NewLocalIO("Failed to save planner item", err)
	}
	log.Printf("[Planner][File][Upsert] ok id=%s replaced=%v total=%d", item.ID, replaced, len(items))
	return item, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read(false)
	if err != nil {
		return false, apperr.NewLocalIO("Failed to delete planner item", err)
	}
	items, removed := removeFrom(items, id)
	if !removed {
		return false, nil
	}
	if err := s.write(items); err != nil {
		return false, apperr.NewLocalIO("Failed to delete planner item", err)
	}
	return true, nil
}

// read loads the array. A missing file is an empty planner. When lenient is
// set, unparsable content is also an empty planner.
func (s *FileStore) read(lenient bool) ([]models.PlannerItem, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.PlannerItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []models.PlannerItem{}, nil
	}
	var items []models.PlannerItem
	if err := json.Unmarshal(b, &items); err != nil {
		if lenient {
			log.Printf("[Planner][File] corrupt planner, starting empty path=%s err=%v", s.Path, err)
			return []models.PlannerItem{}, nil
		}
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	if items == nil {
		items = []models.PlannerItem{}
	}
	return items, nil
}

func (s *FileStore) write(items []models.PlannerItem) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".planner-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
