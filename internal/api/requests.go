package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"example.com/booking/internal/domain"
)

const dateLayout = "2006-01-02"

// Violation describes one failed validation rule.
type Violation struct {
	Field     string `json:"field"`
	Violation string `json:"violation"`
	Message   string `json:"message"`
}

type validationError struct {
	violations []Violation
}

func (e *validationError) Error() string {
	parts := make([]string, 0, len(e.violations))
	for _, v := range e.violations {
		parts = append(parts, v.Message)
	}
	return strings.Join(parts, "; ")
}

var errMalformedBody = errors.New("unable to parse body")

// RequestValidator validates decoded request payloads and renders readable
// violation messages.
type RequestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a RequestValidator with the booking-specific rules registered.
func NewValidator() *RequestValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("clocktime", clockTime)
	validate.RegisterValidation("kind", activityKind)

	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)
	registerMessage(validate, translator, "clocktime", "{0} must be a time formatted as HH:MM or HH:MM:SS")
	registerMessage(validate, translator, "kind", "{0} must be one of the published activity kinds")

	return &RequestValidator{validate: validate, translator: translator}
}

func registerMessage(validate *validator.Validate, translator ut.Translator, tag, text string) {
	validate.RegisterTranslation(tag, translator, func(t ut.Translator) error {
		return t.Add(tag, text, true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		message, _ := t.T(tag, fe.Field())
		return message
	})
}

func clockTime(fl validator.FieldLevel) bool {
	_, err := domain.ParseClock(fl.Field().String())
	return err == nil
}

func activityKind(fl validator.FieldLevel) bool {
	return domain.IsKnownKind(fl.Field().String())
}

// Struct validates dest and returns a *validationError listing every violation.
func (v *RequestValidator) Struct(dest any) error {
	err := v.validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, Violation{
			Field:     fe.Field(),
			Violation: fe.Tag(),
			Message:   fe.Translate(v.translator),
		})
	}
	return &validationError{violations: violations}
}

// decode reads a JSON body into dest and validates it.
func (v *RequestValidator) decode(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return v.Struct(dest)
}

// RegisterRequest is the payload for POST /v1/users.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=provider consumer"`
}

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RenameRequest is the payload for PUT /v1/users/{id}.
type RenameRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	Title        string              `json:"title" validate:"required"`
	Description  *string             `json:"description"`
	Kind         string              `json:"kind" validate:"required,kind"`
	Date         *string             `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime    string              `json:"start_time" validate:"required,clocktime"`
	EndTime      string              `json:"end_time" validate:"required,clocktime"`
	Availability domain.Availability `json:"availability"`
	Price        *float64            `json:"price" validate:"omitempty,gte=0"`
	Capacity     *int                `json:"capacity" validate:"omitempty,gte=1"`
}

func (r CreateActivityRequest) toInput() (domain.ActivityInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return domain.ActivityInput{}, err
	}
	return domain.ActivityInput{
		Title:        r.Title,
		Description:  r.Description,
		Kind:         r.Kind,
		Date:         date,
		StartTime:    &r.StartTime,
		EndTime:      &r.EndTime,
		Availability: r.Availability,
		Price:        r.Price,
		Capacity:     r.Capacity,
	}, nil
}

// UpdateActivityRequest is the payload for PUT /v1/activities/{id}. Absent
// fields keep their current value.
type UpdateActivityRequest struct {
	Title        *string              `json:"title" validate:"omitempty,min=1"`
	Description  *string              `json:"description"`
	Kind         *string              `json:"kind" validate:"omitempty,kind"`
	Date         *string              `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime    *string              `json:"start_time" validate:"omitempty,clocktime"`
	EndTime      *string              `json:"end_time" validate:"omitempty,clocktime"`
	Availability *domain.Availability `json:"availability"`
	Price        *float64             `json:"price" validate:"omitempty,gte=0"`
	Capacity     *int                 `json:"capacity" validate:"omitempty,gte=1"`
}

func (r UpdateActivityRequest) toPatch() (domain.ActivityPatch, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return domain.ActivityPatch{}, err
	}
	return domain.ActivityPatch{
		Title:        r.Title,
		Description:  r.Description,
		Kind:         r.Kind,
		Date:         date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Availability: r.Availability,
		Price:        r.Price,
		Capacity:     r.Capacity,
	}, nil
}

// EnrollRequest is the payload for POST /v1/enrollments.
type EnrollRequest struct {
	ActivityID int64      `json:"activity_id" validate:"required,gt=0"`
	EnrolledAt *time.Time `json:"enrolled_at"`
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be formatted as YYYY-MM-DD", domain.ErrInvalidInput)
	}
	return &parsed, nil
}
