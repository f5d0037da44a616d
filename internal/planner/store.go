// Package planner persists the dashboard's planner items. Every Store upserts
// atomically: concurrent writers with distinct ids never lose each other's items.
package planner

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

type Store interface {
	List(ctx context.Context) ([]models.PlannerItem, error)
	Get(ctx context.Context, id string) (models.PlannerItem, bool, error)
	// Upsert replaces the item with the same id or appends it. An empty id is
	// assigned before the write and returned. With fields given, only those
	// fields of an existing item are overwritten (empty values included);
	// without, every field is.
	Upsert(ctx context.Context, item models.PlannerItem, fields ...string) (models.PlannerItem, error)
	Delete(ctx context.Context, id string) (bool, error)
}

var ErrNotFound = errors.New("planner item not found")

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a lexicographically sortable id.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Validate checks the loose field rules and returns an apperr validation error
// naming the first offending field.
func Validate(item models.PlannerItem) error {
	item.Platform = strings.ToLower(item.Platform)
	item.Status = strings.ToLower(item.Status)
	if err := validate.Struct(item); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := strings.ToLower(fe.Field())
			return apperr.NewValidation(field, validationMessage(field, fe))
		}
		return apperr.NewValidation("", err.Error())
	}
	return nil
}

func validationMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// prepare normalises an item before any backend writes it.
func prepare(item models.PlannerItem) (models.PlannerItem, error) {
	item.ID = strings.TrimSpace(item.ID)
	if err := Validate(item); err != nil {
		return item, err
	}
	if item.ID == "" {
		item.ID = NewID()
	}
	return item, nil
}

// Field names accepted by Upsert. They match the JSON keys of a planner item.
const (
	FieldID       = "id"
	FieldTopic    = "topic"
	FieldPlatform = "platform"
	FieldPrompt   = "prompt"
	FieldStatus   = "status"
	FieldDate     = "date"
)

var itemFields = []string{FieldID, FieldTopic, FieldPlatform, FieldPrompt, FieldStatus, FieldDate}

// FieldsPresent returns the planner fields named by the keys of a decoded JSON
// object. FieldID is always included so the result is never empty.
func FieldsPresent(raw map[string]json.RawMessage) []string {
	out := []string{FieldID}
	for _, f := range itemFields[1:] {
		if _, ok := raw[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

func writes(fields []string, name string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// merge overlays the named fields of in onto old; no names means all of them.
func merge(old, in models.PlannerItem, fields []string) models.PlannerItem {
	out := old
	if writes(fields, FieldTopic) {
		out.Topic = in.Topic
	}
	if writes(fields, FieldPlatform) {
		out.Platform = in.Platform
	}
	if writes(fields, FieldPrompt) {
		out.Prompt = in.Prompt
	}
	if writes(fields, FieldStatus) {
		out.Status = in.Status
	}
	if writes(fields, FieldDate) {
		out.Date = in.Date
	}
	return out
}

// upsertInto merges item into the first element with its id, or appends it.
// It returns the stored version of the item.
func upsertInto(items []models.PlannerItem, item models.PlannerItem, fields []string) ([]models.PlannerItem, models.PlannerItem, bool) {
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = merge(items[i], item, fields)
			return items, items[i], true
		}
	}
	return append(items, item), item, false
}

func removeFrom(items []models.PlannerItem, id string) ([]models.PlannerItem, bool) {
	for i := range items {
		if items[i].ID == id {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}
