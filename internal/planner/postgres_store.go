package planner

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

// PostgresStore keeps planner items in public.planner_items. Order follows the
// position column, which an update never changes.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]models.PlannerItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, topic, platform, prompt, status, date
		FROM public.planner_items
		ORDER BY position ASC
	`)
	if err != nil {
		log.Printf("[Planner][Postgres][List] query error err=%v", err)
		return nil, apperr.NewLocalIO("Failed to read planner", err)
	}
	defer rows.Close()

	out := make([]models.PlannerItem, 0, 16)
	for rows.Next() {
		var it models.PlannerItem
		if err := rows.Scan(&it.ID, &it.Topic, &it.Platform, &it.Prompt, &it.Status, &it.Date); err != nil {
			return nil, apperr.NewLocalIO("Failed to read planner", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.NewLocalIO("Failed to read planner", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.PlannerItem, bool, error) {
	var it models.PlannerItem
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, topic, platform, prompt, status, date
		FROM public.planner_items WHERE id = $1
	`, id).Scan(&it.ID, &it.Topic, &it.Platform, &it.Prompt, &it.Status, &it.Date)
	if err == sql.ErrNoRows {
		return models.PlannerItem{}, false, nil
	}
	if err != nil {
		return models.PlannerItem{}, false, apperr.NewLocalIO("Failed to read planner", err)
	}
	return it, true, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, item models.PlannerItem, fields ...string) (models.PlannerItem, error) {
	item, err := prepare(item)
	if err != nil {
		return item, err
	}
	// $7..$11 say which columns an update overwrites; xmax = 0 only for freshly inserted rows.
	var inserted bool
	var out models.PlannerItem
	err = s.DB.QueryRowContext(ctx, `
		INSERT INTO public.planner_items (id, topic, platform, prompt, status, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
		  topic = CASE WHEN $7 THEN EXCLUDED.topic ELSE public.planner_items.topic END,
		  platform = CASE WHEN $8 THEN EXCLUDED.platform ELSE public.planner_items.platform END,
		  prompt = CASE WHEN $9 THEN EXCLUDED.prompt ELSE public.planner_items.prompt END,
		  status = CASE WHEN $10 THEN EXCLUDED.status ELSE public.planner_items.status END,
		  date = CASE WHEN $11 THEN EXCLUDED.date ELSE public.planner_items.date END,
		  updated_at = NOW()
		RETURNING id, topic, platform, prompt, status, date, (xmax = 0)
	`, item.ID, item.Topic, item.Platform, item.Prompt, item.Status, item.Date,
		writes(fields, FieldTopic), writes(fields, FieldPlatform), writes(fields, FieldPrompt),
		writes(fields, FieldStatus), writes(fields, FieldDate)).
		Scan(&out.ID, &out.Topic, &out.Platform, &out.Prompt, &out.Status, &out.Date, &inserted)
	if err != nil {
		log.Printf("[Planner][Postgres][Upsert] error id=%s err=%v", item.ID, err)
		return item, apperr.NewLocalIO("Failed to save planner item", fmt.Errorf("upsert planner item: %w", err))
	}
	log.Printf("[Planner][Postgres][Upsert] ok id=%s inserted=%v", out.ID, inserted)
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM public.planner_items WHERE id = $1`, id)
	if err != nil {
		return false, apperr.NewLocalIO("Failed to delete planner item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.NewLocalIO("Failed to delete planner item", err)
	}
	return n > 0, nil
}
