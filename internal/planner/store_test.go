package planner

import (
	"encoding/json"
	"testing"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

func TestValidate(t *testing.T) {
	ok := []models.PlannerItem{
		{},
		{ID: "1", Platform: "LinkedIn", Status: "Posted", Date: "2024-05-01"},
		{Platform: "x", Status: "idea"},
		{ID: "1", Status: "generated"},
	}
	for _, it := range ok {
		if err := Validate(it); err != nil {
			t.Fatalf("expected %#v valid, got %v", it, err)
		}
	}

	bad := map[string]models.PlannerItem{
		"platform": {Platform: "myspace"},
		"status":   {Status: "archived"},
		"date":     {Date: "05/01/2024"},
	}
	for field, it := range bad {
		err := Validate(it)
		e, isApp := apperr.As(err)
		if !isApp || e.Kind != apperr.Validation {
			t.Fatalf("expected validation error for %s, got %v", field, err)
		}
		if e.Field != field {
			t.Fatalf("expected field %q, got %q", field, e.Field)
		}
	}
}

func TestNewIDIsMonotonic(t *testing.T) {
	a := NewID()
	b := NewID()
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
}

func TestUpsertIntoAndRemoveFrom(t *testing.T) {
	items := []models.PlannerItem{{ID: "1"}, {ID: "2", Topic: "old", Prompt: "keep me"}}
	items, stored, replaced := upsertInto(items, models.PlannerItem{ID: "2", Topic: "x", Status: "posted"}, []string{FieldTopic, FieldStatus})
	if !replaced || len(items) != 2 || items[1].Topic != "x" {
		t.Fatalf("unexpected replace result: %#v", items)
	}
	if stored.Prompt != "keep me" || stored.Status != "posted" || stored != items[1] {
		t.Fatalf("unnamed fields should keep stored values, got %#v", stored)
	}
	_, stored, _ = upsertInto(items, models.PlannerItem{ID: "2", Topic: ""}, []string{FieldTopic})
	if stored.Topic != "" || stored.Prompt != "keep me" {
		t.Fatalf("a named empty field should clear, got %#v", stored)
	}
	items, _, replaced = upsertInto(items, models.PlannerItem{ID: "3"}, nil)
	if replaced || len(items) != 3 {
		t.Fatalf("unexpected append result: %#v", items)
	}
	items, removed := removeFrom(items, "1")
	if !removed || len(items) != 2 || items[0].ID != "2" {
		t.Fatalf("unexpected remove result: %#v", items)
	}
}

func TestFieldsPresent(t *testing.T) {
	raw := map[string]json.RawMessage{"id": json.RawMessage(`"1"`), "prompt": json.RawMessage(`""`), "extra": nil}
	got := FieldsPresent(raw)
	if len(got) != 2 || got[0] != FieldID || got[1] != FieldPrompt {
		t.Fatalf("unexpected fields %v", got)
	}
	if got := FieldsPresent(nil); len(got) != 1 || got[0] != FieldID {
		t.Fatalf("expected only id, got %v", got)
	}
}
