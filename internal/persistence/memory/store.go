// Package memory provides an in-process store for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/booking/internal/domain"
)

type pairKey struct {
	consumerID int64
	activityID int64
}

// Store keeps users, activities and enrollments in memory.
//
// Every unit of work that touches the enrollments of an activity holds that
// activity's lock for its whole duration, so concurrent enrollments into one
// activity are serialized while different activities proceed independently.
// mu guards the maps and is taken after the activity lock, never before it.
type Store struct {
	mu          sync.RWMutex
	users       map[int64]domain.User
	activities  map[int64]domain.Activity
	enrollments map[int64]domain.Enrollment
	pairs       map[pairKey]int64
	lastUserID  int64
	lastActID   int64
	lastEnrolID int64

	locks sync.Map // activity id -> *sync.Mutex
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:       make(map[int64]domain.User),
		activities:  make(map[int64]domain.Activity),
		enrollments: make(map[int64]domain.Enrollment),
		pairs:       make(map[pairKey]int64),
	}
}

func (s *Store) activityLock(activityID int64) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(activityID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Enroll implements domain.EnrollmentStore.
func (s *Store) Enroll(ctx context.Context, enrollment domain.Enrollment) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	consumer, ok := s.users[enrollment.ConsumerID]
	s.mu.RUnlock()
	if !ok || consumer.Role != domain.RoleConsumer {
		return 0, domain.ErrInvalidConsumer
	}

	lock := s.activityLock(enrollment.ActivityID)
	lock.Lock()
	defer lock.Unlock()

	// Checks and insert share one critical section so a cascading delete
	// lands entirely before or after them.
	s.mu.Lock()
	defer s.mu.Unlock()

	if consumer, ok := s.users[enrollment.ConsumerID]; !ok || consumer.Role != domain.RoleConsumer {
		return 0, domain.ErrInvalidConsumer
	}
	activity, found := s.activities[enrollment.ActivityID]
	if !found {
		return 0, domain.ErrActivityNotFound
	}
	if activity.Availability.IsClosed() {
		return 0, domain.ErrActivityClosed
	}
	key := pairKey{enrollment.ConsumerID, enrollment.ActivityID}
	if _, duplicate := s.pairs[key]; duplicate {
		return 0, domain.ErrDuplicateEnrollment
	}
	if activity.Capacity != nil && s.countLocked(enrollment.ActivityID) >= *activity.Capacity {
		return 0, domain.ErrCapacityExceeded
	}

	// A caller that gave up before commit leaves nothing behind.
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.lastEnrolID++
	enrollment.ID = s.lastEnrolID
	s.enrollments[enrollment.ID] = enrollment
	s.pairs[key] = enrollment.ID
	return enrollment.ID, nil
}

// countLocked counts enrollments for activityID. Callers hold mu.
func (s *Store) countLocked(activityID int64) int {
	n := 0
	for _, e := range s.enrollments {
		if e.ActivityID == activityID {
			n++
		}
	}
	return n
}

// Cancel implements domain.EnrollmentStore.
func (s *Store) Cancel(ctx context.Context, enrollmentID, requesterID int64, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	enrollment, ok := s.enrollments[enrollmentID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrEnrollmentNotFound
	}

	lock := s.activityLock(enrollment.ActivityID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok = s.enrollments[enrollmentID]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	if enrollment.ConsumerID != requesterID {
		return domain.ErrForbidden
	}
	delete(s.enrollments, enrollmentID)
	delete(s.pairs, pairKey{enrollment.ConsumerID, enrollment.ActivityID})
	return nil
}

// ListByConsumer implements domain.EnrollmentStore.
func (s *Store) ListByConsumer(ctx context.Context, consumerID int64) ([]domain.EnrollmentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]domain.EnrollmentView, 0)
	for _, e := range s.enrollments {
		if e.ConsumerID != consumerID {
			continue
		}
		activity := s.activities[e.ActivityID]
		views = append(views, domain.EnrollmentView{
			EnrollmentID:  e.ID,
			EnrolledAt:    e.EnrolledAt,
			ActivityID:    e.ActivityID,
			ActivityTitle: activity.Title,
			ActivityDate:  activity.Date,
			ActivityPrice: activity.Price,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].EnrollmentID < views[j].EnrollmentID })
	return views, nil
}

// EnrollmentCount returns the number of seats taken in activityID.
func (s *Store) EnrollmentCount(activityID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(activityID)
}

// ListActivities implements domain.CatalogStore.
func (s *Store) ListActivities(ctx context.Context) ([]domain.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.CatalogEntry, 0, len(s.activities))
	for _, a := range s.activities {
		provider := s.users[a.ProviderID]
		entries = append(entries, domain.CatalogEntry{
			Activity:      a,
			ProviderName:  provider.Name,
			ProviderEmail: provider.Email,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// ProviderExists implements domain.CatalogStore.
func (s *Store) ProviderExists(ctx context.Context, providerID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[providerID]
	return ok && user.Role == domain.RoleProvider, nil
}

// TitleTaken implements domain.CatalogStore.
func (s *Store) TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.titleTakenLocked(title, excludeID), nil
}

func (s *Store) titleTakenLocked(title string, excludeID int64) bool {
	for id, a := range s.activities {
		if id != excludeID && strings.EqualFold(a.Title, title) {
			return true
		}
	}
	return false
}

// CreateActivity implements domain.CatalogStore.
func (s *Store) CreateActivity(ctx context.Context, activity domain.Activity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titleTakenLocked(activity.Title, 0) {
		return 0, domain.ErrDuplicateTitle
	}
	s.lastActID++
	activity.ID = s.lastActID
	s.activities[activity.ID] = activity
	return activity.ID, nil
}

// GetActivity implements domain.CatalogStore.
func (s *Store) GetActivity(ctx context.Context, activityID int64) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activity, ok := s.activities[activityID]
	if !ok {
		return nil, nil
	}
	return &activity, nil
}

// UpdateActivity implements domain.CatalogStore.
func (s *Store) UpdateActivity(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	lock := s.activityLock(activity.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activity.ID]; !ok {
		return nil, domain.ErrActivityNotFound
	}
	if s.titleTakenLocked(activity.Title, activity.ID) {
		return nil, domain.ErrDuplicateTitle
	}
	s.activities[activity.ID] = activity
	return &activity, nil
}

// DeleteActivity implements domain.CatalogStore.
func (s *Store) DeleteActivity(ctx context.Context, activityID int64) error {
	lock := s.activityLock(activityID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activityID]; !ok {
		return domain.ErrActivityNotFound
	}
	delete(s.activities, activityID)
	for id, e := range s.enrollments {
		if e.ActivityID == activityID {
			delete(s.enrollments, id)
			delete(s.pairs, pairKey{e.ConsumerID, e.ActivityID})
		}
	}
	return nil
}

// ListProviderActivities implements domain.CatalogStore.
func (s *Store) ListProviderActivities(ctx context.Context, providerID int64) ([]domain.ProviderActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.ProviderActivity, 0)
	for _, a := range s.activities {
		if a.ProviderID != providerID {
			continue
		}
		item := domain.ProviderActivity{Activity: a, Enrollees: []domain.Enrollee{}}
		for _, e := range s.enrollments {
			if e.ActivityID != a.ID {
				continue
			}
			consumer := s.users[e.ConsumerID]
			item.Enrollees = append(item.Enrollees, domain.Enrollee{
				EnrollmentID: e.ID,
				ConsumerID:   e.ConsumerID,
				Name:         consumer.Name,
				Email:        consumer.Email,
				EnrolledAt:   e.EnrolledAt,
			})
		}
		sort.Slice(item.Enrollees, func(i, j int) bool { return item.Enrollees[i].EnrollmentID < item.Enrollees[j].EnrollmentID })
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// CreateUser implements domain.AccountStore.
func (s *Store) CreateUser(ctx context.Context, user domain.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return 0, domain.ErrEmailTaken
		}
	}
	s.lastUserID++
	user.ID = s.lastUserID
	s.users[user.ID] = user
	return user.ID, nil
}

// FindUserByEmail implements domain.AccountStore.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// RenameUser implements domain.AccountStore.
func (s *Store) RenameUser(ctx context.Context, userID int64, name string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.Name = name
	s.users[userID] = user
	return &user, nil
}

// DeleteUser implements domain.AccountStore.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, userID)
	for id, a := range s.activities {
		if a.ProviderID == userID {
			delete(s.activities, id)
		}
	}
	for id, e := range s.enrollments {
		_, activityAlive := s.activities[e.ActivityID]
		if e.ConsumerID == userID || !activityAlive {
			delete(s.enrollments, id)
			delete(s.pairs, pairKey{e.ConsumerID, e.ActivityID})
		}
	}
	return nil
}
