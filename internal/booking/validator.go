package booking

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"restaurant-booking-backend/internal/parse"
)

const (
	guestPhoneMax = 15
	staffPhoneMax = 20
)

var (
	personNameRegex = regexp.MustCompile(`^\p{L}+(?:\s+\p{L}+)*$`)
	phoneRegex      = regexp.MustCompile(`^[0-9+\- ]+$`)
	emailRegex      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors as a field -> message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		if _, exists := details[err.Field]; !exists {
			details[err.Field] = err.Message
		}
	}
	return details
}

// Validator checks reservation requests. It never touches the network.
type Validator struct {
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewValidator(log zerolog.Logger) (*Validator, error) {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		"personname": validatePersonName,
		"phone":      validatePhone,
		"basicemail": validateEmail,
		"datestr":    validateDate,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("register %q validator: %w", tag, err)
		}
	}

	return &Validator{
		validate: v,
		logger:   log.With().Str("component", "booking_validator").Logger(),
	}, nil
}

func validatePersonName(fl validator.FieldLevel) bool {
	return personNameRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validatePhone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return phoneRegex.MatchString(s) && strings.ContainsAny(s, "0123456789")
}

func validateEmail(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := parse.Date(fl.Field().String())
	return err == nil
}

// Validate checks req for flow against rules and returns ValidationErrors
// listing every failed rule, or nil.
func (v *Validator) Validate(req Request, flow Flow, rules Rules) error {
	var errs ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		errs = append(errs, v.translateValidationErrors(validationErrs)...)
	}

	if req.GuestCount < rules.MinGuests || req.GuestCount > rules.MaxGuests {
		errs = append(errs, ValidationError{
			Field:   "guest_count",
			Message: fmt.Sprintf("guest_count must be between %d and %d", rules.MinGuests, rules.MaxGuests),
		})
	}

	phoneMax := staffPhoneMax
	if flow == FlowGuest {
		phoneMax = guestPhoneMax
		if err := v.validate.Var(req.Email, "required"); err != nil {
			errs = append(errs, ValidationError{Field: "email", Message: "email is required"})
		}
	}
	if len(req.Phone) > phoneMax {
		errs = append(errs, ValidationError{
			Field:   "phone",
			Message: fmt.Sprintf("phone must be at most %d characters", phoneMax),
		})
	}

	hasSlot := req.TimeSlotID != nil
	if hasSlot == req.SpecialHours {
		errs = append(errs, ValidationError{
			Field:   "time_slot_id",
			Message: "exactly one of time_slot_id or special_hours must be set",
		})
	}

	if len(errs) > 0 {
		v.logger.Debug().Str("flow", string(flow)).Int("errors", len(errs)).Msg("reservation request rejected by validator")
		return errs
	}
	return nil
}

func (v *Validator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "personname":
			message = fmt.Sprintf("%s may contain letters and spaces only", err.Field())
		case "phone":
			message = fmt.Sprintf("%s may contain digits, spaces, hyphens and a plus sign only", err.Field())
		case "basicemail":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "datestr":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD form", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
