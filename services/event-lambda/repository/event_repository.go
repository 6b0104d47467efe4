package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/services/event-lambda/models"
)

// ErrDuplicateSlug is returned when another event already owns the slug.
var ErrDuplicateSlug = errors.New("event slug already exists")

// EventRepository handles event data access
type EventRepository struct {
	q db.Querier
}

// NewEventRepository binds the repository to a connection or transaction.
func NewEventRepository(q db.Querier) *EventRepository {
	return &EventRepository{q: q}
}

const eventColumns = `id, slug, title, status, document, total_capacity, total_bookings,
	paid_bookings, paid_tickets, revenue, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e                  models.Event
		status, document   string
		createdAt, updated int64
	)
	err := row.Scan(&e.ID, &e.Slug, &e.Title, &status, &document, &e.TotalCapacity, &e.TotalBookings,
		&e.PaidBookings, &e.PaidTickets, &e.Revenue, &e.Version, &createdAt, &updated)
	if err != nil {
		return nil, err
	}
	e.Status = models.EventStatus(status)
	e.CreatedAt = db.FromMillis(createdAt)
	e.UpdatedAt = db.FromMillis(updated)

	var doc models.Document
	dec := json.NewDecoder(strings.NewReader(document))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("event %s: malformed document: %w", e.ID, err)
	}
	e.SetDocument(doc)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("event %s: invalid stored document: %w", e.ID, err)
	}
	return &e, nil
}

// Create inserts a new event at version 1.
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	document, err := json.Marshal(e.Document())
	if err != nil {
		return fmt.Errorf("encode event document: %w", err)
	}
	if e.Version == 0 {
		e.Version = 1
	}
	_, err = r.q.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Slug, e.Title, string(e.Status), string(document), e.TotalCapacity, e.TotalBookings,
		e.PaidBookings, e.PaidTickets, e.Revenue, e.Version, db.ToMillis(e.CreatedAt), db.ToMillis(e.UpdatedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns db.ErrNotFound when no event has the id.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	return e, err
}

func (r *EventRepository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	return e, err
}

// SlugExists reports whether a slug is taken.
func (r *EventRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE slug = ?`, slug).Scan(&n); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

// List returns events, optionally filtered by status, oldest first.
func (r *EventRepository) List(ctx context.Context, statuses ...models.EventStatus) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (?` + strings.Repeat(", ?", len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Save writes the whole aggregate only if nobody else wrote it since it
// was read; otherwise it returns db.ErrStaleVersion. On success e.Version
// is advanced.
func (r *EventRepository) Save(ctx context.Context, e *models.Event, now time.Time) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid event %s: %w", e.ID, err)
	}
	document, err := json.Marshal(e.Document())
	if err != nil {
		return fmt.Errorf("encode event document: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `UPDATE events SET
			title = ?, status = ?, document = ?, total_capacity = ?, total_bookings = ?,
			paid_bookings = ?, paid_tickets = ?, revenue = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		e.Title, string(e.Status), string(document), e.TotalCapacity, e.TotalBookings,
		e.PaidBookings, e.PaidTickets, e.Revenue, db.ToMillis(now), e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n == 0 {
		return db.ErrStaleVersion
	}
	e.Version++
	e.UpdatedAt = now.UTC()
	return nil
}
