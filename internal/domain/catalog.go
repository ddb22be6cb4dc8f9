package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CatalogStore captures persistence operations for activities.
type CatalogStore interface {
	ListActivities(ctx context.Context) ([]CatalogEntry, error)
	ProviderExists(ctx context.Context, providerID int64) (bool, error)
	TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error)
	CreateActivity(ctx context.Context, activity Activity) (int64, error)
	// GetActivity returns nil, nil when the activity does not exist.
	GetActivity(ctx context.Context, activityID int64) (*Activity, error)
	UpdateActivity(ctx context.Context, activity Activity) (*Activity, error)
	// DeleteActivity removes the activity and every enrollment in it.
	DeleteActivity(ctx context.Context, activityID int64) error
	ListProviderActivities(ctx context.Context, providerID int64) ([]ProviderActivity, error)
}

// ActivityInput is the payload for publishing a new activity.
type ActivityInput struct {
	Title        string
	Description  *string
	Kind         string
	Date         *time.Time
	StartTime    *string
	EndTime      *string
	Availability Availability
	Price        *float64
	Capacity     *int
}

// ActivityPatch carries the fields to change; nil fields keep their value.
// An empty StartTime or EndTime clears it.
type ActivityPatch struct {
	Title        *string
	Description  *string
	Kind         *string
	Date         *time.Time
	StartTime    *string
	EndTime      *string
	Availability *Availability
	Price        *float64
	Capacity     *int
}

// Catalog orchestrates provider-side activity workflows.
type Catalog struct {
	store CatalogStore
	now   func() time.Time
}

// NewCatalog constructs a Catalog.
func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

// List returns every published activity with its provider contact.
func (c *Catalog) List(ctx context.Context) ([]CatalogEntry, error) {
	entries, err := c.store.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []CatalogEntry{}
	}
	return entries, nil
}

// Create publishes a new activity owned by providerID.
func (c *Catalog) Create(ctx context.Context, providerID int64, input ActivityInput) (int64, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return 0, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !IsKnownKind(input.Kind) {
		return 0, fmt.Errorf("%w: kind must be one of the allowed values", ErrInvalidInput)
	}

	activity := Activity{
		ProviderID:   providerID,
		Title:        title,
		Description:  input.Description,
		Kind:         strings.TrimSpace(input.Kind),
		Date:         input.Date,
		StartTime:    normalizeClock(input.StartTime),
		EndTime:      normalizeClock(input.EndTime),
		Availability: input.Availability,
		Price:        input.Price,
		Capacity:     input.Capacity,
	}
	if err := c.validate(activity); err != nil {
		return 0, err
	}
	if err := c.validateDate(activity.Date); err != nil {
		return 0, err
	}

	taken, err := c.store.TitleTaken(ctx, title, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrDuplicateTitle
	}

	exists, err := c.store.ProviderExists(ctx, providerID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrInvalidProvider
	}

	now := c.now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	return c.store.CreateActivity(ctx, activity)
}

// ListByProvider returns the activities of providerID with their enrollees.
// Only the provider may list their own activities.
func (c *Catalog) ListByProvider(ctx context.Context, requesterID, providerID int64) ([]ProviderActivity, error) {
	if requesterID != providerID {
		return nil, ErrForbidden
	}
	items, err := c.store.ListProviderActivities(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []ProviderActivity{}
	}
	return items, nil
}

// Update applies patch to an activity owned by requesterID.
func (c *Catalog) Update(ctx context.Context, requesterID, activityID int64, patch ActivityPatch) (*Activity, error) {
	current, err := c.owned(ctx, requesterID, activityID)
	if err != nil {
		return nil, err
	}

	next := *current
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		next.Title = title
	}
	if patch.Description != nil {
		next.Description = patch.Description
	}
	if patch.Kind != nil {
		if !IsKnownKind(*patch.Kind) {
			return nil, fmt.Errorf("%w: kind must be one of the allowed values", ErrInvalidInput)
		}
		next.Kind = strings.TrimSpace(*patch.Kind)
	}
	if patch.Date != nil {
		next.Date = patch.Date
	}
	if patch.StartTime != nil {
		next.StartTime = normalizeClock(patch.StartTime)
	}
	if patch.EndTime != nil {
		next.EndTime = normalizeClock(patch.EndTime)
	}
	if patch.Availability != nil {
		next.Availability = *patch.Availability
	}
	if patch.Price != nil {
		next.Price = patch.Price
	}
	if patch.Capacity != nil {
		next.Capacity = patch.Capacity
	}
	if err := c.validate(next); err != nil {
		return nil, err
	}
	if err := c.validateDate(patch.Date); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		taken, err := c.store.TitleTaken(ctx, next.Title, activityID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateTitle
		}
	}

	next.UpdatedAt = c.now().UTC()
	return c.store.UpdateActivity(ctx, next)
}

// Delete removes an activity owned by requesterID together with its enrollments.
func (c *Catalog) Delete(ctx context.Context, requesterID, activityID int64) error {
	if _, err := c.owned(ctx, requesterID, activityID); err != nil {
		return err
	}
	return c.store.DeleteActivity(ctx, activityID)
}

func (c *Catalog) owned(ctx context.Context, requesterID, activityID int64) (*Activity, error) {
	activity, err := c.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	if activity.ProviderID != requesterID {
		return nil, ErrForbidden
	}
	return activity, nil
}

func (c *Catalog) validate(a Activity) error {
	if err := ValidateSchedule(a.StartTime, a.EndTime); err != nil {
		return err
	}
	if a.Price != nil && *a.Price < 0 {
		return fmt.Errorf("%w: price must be greater than or equal to 0", ErrInvalidInput)
	}
	if a.Capacity != nil && *a.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrInvalidInput)
	}
	return nil
}

func (c *Catalog) validateDate(date *time.Time) error {
	if date == nil {
		return nil
	}
	year := date.Year()
	current := c.now().Year()
	if year < current || year > current+2 {
		return fmt.Errorf("%w: date must fall within the current year or the next two", ErrInvalidInput)
	}
	return nil
}
