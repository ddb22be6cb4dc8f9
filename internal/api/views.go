package api

import (
	"time"

	"example.com/booking/internal/domain"
)

// ActivityView exposes the public details of an activity.
type ActivityView struct {
	ActivityID   int64               `json:"activity_id"`
	ProviderID   int64               `json:"provider_id"`
	Title        string              `json:"title"`
	Description  *string             `json:"description,omitempty"`
	Kind         string              `json:"kind"`
	Date         *string             `json:"date,omitempty"`
	StartTime    *string             `json:"start_time,omitempty"`
	EndTime      *string             `json:"end_time,omitempty"`
	Availability domain.Availability `json:"availability"`
	Closed       bool                `json:"closed"`
	Price        *float64            `json:"price,omitempty"`
	Capacity     *int                `json:"capacity,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// CatalogEntryView is an activity with its provider's contact details.
type CatalogEntryView struct {
	ActivityView
	ProviderName  string `json:"provider_name"`
	ProviderEmail string `json:"provider_email"`
}

// EnrolleeView describes a consumer enrolled in a provider's activity.
type EnrolleeView struct {
	EnrollmentID int64     `json:"enrollment_id"`
	ConsumerID   int64     `json:"consumer_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// ProviderActivityView is an activity together with its enrollees.
type ProviderActivityView struct {
	ActivityView
	Enrollees []EnrolleeView `json:"enrollees"`
}

// EnrollmentView is a consumer's enrollment with the activity it refers to.
type EnrollmentView struct {
	EnrollmentID  int64     `json:"enrollment_id"`
	EnrolledAt    time.Time `json:"enrolled_at"`
	ActivityID    int64     `json:"activity_id"`
	ActivityTitle string    `json:"activity_title"`
	ActivityDate  *string   `json:"activity_date,omitempty"`
	ActivityPrice *float64  `json:"activity_price,omitempty"`
}

// UserView is the public profile of an account.
type UserView struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse carries the bearer token and the profile it belongs to.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// ListResponse packages list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

func formatDate(date *time.Time) *string {
	if date == nil {
		return nil
	}
	s := date.Format(dateLayout)
	return &s
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:   a.ID,
		ProviderID:   a.ProviderID,
		Title:        a.Title,
		Description:  a.Description,
		Kind:         a.Kind,
		Date:         formatDate(a.Date),
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Availability: a.Availability,
		Closed:       a.Availability.IsClosed(),
		Price:        a.Price,
		Capacity:     a.Capacity,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func toUserView(u domain.User) UserView {
	return UserView{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toEnrollmentView(v domain.EnrollmentView) EnrollmentView {
	return EnrollmentView{
		EnrollmentID:  v.EnrollmentID,
		EnrolledAt:    v.EnrolledAt,
		ActivityID:    v.ActivityID,
		ActivityTitle: v.ActivityTitle,
		ActivityDate:  formatDate(v.ActivityDate),
		ActivityPrice: v.ActivityPrice,
	}
}

func toProviderActivityView(p domain.ProviderActivity) ProviderActivityView {
	enrollees := make([]EnrolleeView, 0, len(p.Enrollees))
	for _, e := range p.Enrollees {
		enrollees = append(enrollees, EnrolleeView{
			EnrollmentID: e.EnrollmentID,
			ConsumerID:   e.ConsumerID,
			Name:         e.Name,
			Email:        e.Email,
			EnrolledAt:   e.EnrolledAt,
		})
	}
	return ProviderActivityView{ActivityView: toActivityView(p.Activity), Enrollees: enrollees}
}
