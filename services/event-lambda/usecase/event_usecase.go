package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/glitzfusion/fusionx/common/db"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/validator"
	"github.com/glitzfusion/fusionx/services/event-lambda/models"
	"github.com/glitzfusion/fusionx/services/event-lambda/repository"
)

const maxSlugAttempts = 20

// EventUseCase handles event catalog business logic
type EventUseCase struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

// NewEventUseCase creates a new event use case
func NewEventUseCase(sqlDB *sql.DB, log *logger.Logger) *EventUseCase {
	if log == nil {
		log = logger.Default()
	}
	return &EventUseCase{db: sqlDB, log: log.With("service", "event"), now: time.Now}
}

// ============================================================
// CreateEvent - admin creates an event in draft or published state
// ============================================================
func (uc *EventUseCase) CreateEvent(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	if err := models.ValidateSchedule(req.DateSlots, now); err != nil {
		var se *models.ScheduleError
		if errors.As(err, &se) {
			return nil, apperrors.InvalidInput(se.Field, se.Message)
		}
		return nil, apperrors.ValidationError(err.Error())
	}

	event := &models.Event{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Venue:          req.Venue,
		Currency:       req.Currency,
		Status:         models.StatusDraft,
		DynamicPricing: req.DynamicPricing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if event.Currency == "" {
		event.Currency = "INR"
	}
	if req.Publish {
		event.Status = models.StatusPublished
	}

	for _, ds := range req.DateSlots {
		slot := models.DateSlot{Date: ds.Date}
		for _, ts := range ds.TimeSlots {
			slot.TimeSlots = append(slot.TimeSlots, models.TimeSlot{
				StartTime:   models.FormatClock(ts.StartTime),
				EndTime:     models.FormatClock(ts.EndTime),
				MaxCapacity: ts.MaxCapacity,
				IsAvailable: true,
			})
			event.TotalCapacity += ts.MaxCapacity
		}
		event.DateSlots = append(event.DateSlots, slot)
	}

	seen := map[models.PricingCategory]bool{}
	for i, tier := range req.PricingTiers {
		if seen[tier.Category] {
			return nil, apperrors.InvalidInput(fmt.Sprintf("pricingTiers[%d].category", i),
				fmt.Sprintf("pricing tier %s is listed twice", tier.Category))
		}
		seen[tier.Category] = true
		name := tier.Name
		if name == "" {
			name = strings.ToUpper(string(tier.Category[:1])) + string(tier.Category[1:])
		}
		event.PricingTiers = append(event.PricingTiers, models.PricingTier{
			Category:     tier.Category,
			Name:         name,
			BasePrice:    tier.BasePrice,
			CurrentPrice: tier.BasePrice,
			MaxTickets:   tier.MaxTickets,
			IsActive:     true,
		})
	}
	event.UpdateSoldOutStatus()

	if err := event.Validate(); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}

	err := db.WithTransaction(ctx, uc.db, func(tx *sql.Tx) error {
		repo := repository.NewEventRepository(tx)
		s, err := uniqueSlug(ctx, repo, event.Title)
		if err != nil {
			return err
		}
		event.Slug = s
		return repo.Create(ctx, event)
	})
	if errors.Is(err, repository.ErrDuplicateSlug) {
		return nil, apperrors.AlreadyExists("event slug")
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	uc.log.LogEvent(logger.EventLog{
		Event:    "EVENT_CREATED",
		Actor:    logger.AdminFrom(ctx),
		Entity:   "event",
		EntityID: event.ID,
		Action:   "create",
		Success:  true,
		Metadata: map[string]interface{}{"slug": event.Slug, "status": string(event.Status), "capacity": event.TotalCapacity},
	})
	return event, nil
}

func uniqueSlug(ctx context.Context, repo *repository.EventRepository, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "event"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}

// ============================================================
// GetEvent - by id, falling back to slug
// ============================================================
func (uc *EventUseCase) GetEvent(ctx context.Context, idOrSlug string) (*models.Event, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, apperrors.MissingField("id")
	}
	repo := repository.NewEventRepository(uc.db)
	event, err := repo.GetByID(ctx, idOrSlug)
	if errors.Is(err, db.ErrNotFound) {
		event, err = repo.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, mapRepoError(err, "event")
	}
	return event, nil
}

// ListEvents returns the public catalog for an empty status, every event
// for "all", or the events in one status.
func (uc *EventUseCase) ListEvents(ctx context.Context, status string) ([]models.EventListItem, error) {
	var filter []models.EventStatus
	switch status {
	case "":
		filter = []models.EventStatus{models.StatusPublished, models.StatusSoldOut}
	case "all":
	default:
		s := models.EventStatus(status)
		if !s.Valid() {
			return nil, apperrors.InvalidInput("status", fmt.Sprintf("unknown status %q", status))
		}
		filter = []models.EventStatus{s}
	}

	events, err := repository.NewEventRepository(uc.db).List(ctx, filter...)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	items := make([]models.EventListItem, 0, len(events))
	for i := range events {
		items = append(items, events[i].ListItem())
	}
	return items, nil
}

// ============================================================
// QuotePrice - applies dynamic pricing before quoting
// ============================================================
func (uc *EventUseCase) QuotePrice(ctx context.Context, eventID string, category models.PricingCategory, tickets int) (*models.Quote, error) {
	if tickets <= 0 {
		return nil, apperrors.InvalidInput("tickets", "tickets must be at least 1")
	}

	var quote *models.Quote
	err := db.WithRetry(ctx, uc.db, db.DefaultRetryAttempts, func(tx *sql.Tx) error {
		repo := repository.NewEventRepository(tx)
		event, err := repo.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status != models.StatusPublished && event.Status != models.StatusSoldOut {
			return apperrors.EventNotOpen(string(event.Status))
		}
		tier, err := event.FindTier(category)
		if err != nil {
			return err
		}
		if event.ApplyDynamicPricing() {
			if err := repo.Save(ctx, event, uc.now()); err != nil {
				return err
			}
			uc.log.With("event_id", event.ID).Info("dynamic pricing applied at %.1f%% booked", event.BookingPercentage())
		}
		quote = &models.Quote{
			EventID:           event.ID,
			Category:          tier.Category,
			Tickets:           tickets,
			UnitPrice:         tier.CurrentPrice,
			BasePrice:         tier.BasePrice,
			PriceIncreased:    tier.PriceIncreaseApplied,
			Total:             tier.CurrentPrice * int64(tickets),
			Currency:          event.Currency,
			TierRemaining:     tier.Remaining(),
			AvailableCapacity: event.AvailableCapacity(),
			BookingPercentage: event.BookingPercentage(),
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, "event")
	}
	return quote, nil
}

var allowedTransitions = map[models.EventStatus][]models.EventStatus{
	models.StatusDraft:     {models.StatusPublished},
	models.StatusPublished: {models.StatusCancelled, models.StatusCompleted},
	models.StatusSoldOut:   {models.StatusCancelled, models.StatusCompleted},
}

func canTransition(from, to models.EventStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UpdateEventStatus moves an event along its lifecycle. Setting the
// current status again is a no-op.
func (uc *EventUseCase) UpdateEventStatus(ctx context.Context, eventID string, status models.EventStatus) (*models.Event, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidInput("status", fmt.Sprintf("unknown status %q", status))
	}

	var event *models.Event
	err := db.WithRetry(ctx, uc.db, db.DefaultRetryAttempts, func(tx *sql.Tx) error {
		repo := repository.NewEventRepository(tx)
		e, err := repo.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		event = e
		if e.Status == status {
			return nil
		}
		if !canTransition(e.Status, status) {
			return apperrors.InvalidState(fmt.Sprintf("cannot change event status from %s to %s", e.Status, status))
		}
		e.Status = status
		e.UpdateSoldOutStatus()
		return repo.Save(ctx, e, uc.now())
	})
	if err != nil {
		return nil, mapRepoError(err, "event")
	}

	uc.log.LogEvent(logger.EventLog{
		Event:    "EVENT_STATUS_CHANGED",
		Actor:    logger.AdminFrom(ctx),
		Entity:   "event",
		EntityID: event.ID,
		Action:   "update_status",
		Success:  true,
		Metadata: map[string]interface{}{"status": string(event.Status)},
	})
	return event, nil
}

// AdjustSlotCapacity changes one slot's seat count. It cannot drop below
// the seats already reserved and never clears sold_out.
func (uc *EventUseCase) AdjustSlotCapacity(ctx context.Context, eventID string, req *models.AdjustCapacityRequest) (*models.Event, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	var event *models.Event
	err := db.WithRetry(ctx, uc.db, db.DefaultRetryAttempts, func(tx *sql.Tx) error {
		repo := repository.NewEventRepository(tx)
		e, err := repo.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if e.Status.IsTerminal() {
			return apperrors.InvalidState(fmt.Sprintf("event is %s", e.Status))
		}
		_, ts, err := e.FindSlot(req.Date, req.Time)
		if err != nil {
			return err
		}
		if req.MaxCapacity < ts.CurrentBookings {
			return apperrors.InvalidInput("maxCapacity",
				fmt.Sprintf("capacity cannot be below the %d seats already reserved", ts.CurrentBookings))
		}
		e.TotalCapacity += req.MaxCapacity - ts.MaxCapacity
		ts.MaxCapacity = req.MaxCapacity
		e.UpdateSoldOutStatus()
		event = e
		return repo.Save(ctx, e, uc.now())
	})
	if err != nil {
		return nil, mapRepoError(err, "event")
	}
	return event, nil
}

// mapRepoError turns repository errors into AppErrors, passing AppErrors through.
func mapRepoError(err error, resource string) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, db.ErrNotFound) {
		return apperrors.NotFound(resource)
	}
	if errors.Is(err, db.ErrStaleVersion) {
		return apperrors.Conflict(fmt.Sprintf("%s is being updated, please retry", resource)).WithCause(err)
	}
	return apperrors.DatabaseError(err)
}
