package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	bookingserrors "campusbook/internal/bookings/errors"
	"campusbook/internal/eligibility"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"

	"github.com/go-playground/validator/v10"
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

// BookingValidator checks the shape of a booking snapshot received from the
// backend before the service acts on it.
type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	for tag, fn := range map[string]validator.Func{
		"booking_date": validateBookingDate,
		"clock_time":   validateClockTime,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register booking validator", "tag", tag, "error", err)
		}
	}

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingDate(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if len(raw) < len(model.DateLayout) {
		return false
	}
	_, err := time.Parse(model.DateLayout, raw[:len(model.DateLayout)])
	return err == nil
}

func validateClockTime(fl validator.FieldLevel) bool {
	_, _, ok := eligibility.ParseClock(fl.Field().String())
	return ok
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if booking == nil {
		return ValidationErrors{{Field: "Booking", Message: "booking is required"}}
	}

	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	sh, sm, _ := eligibility.ParseClock(booking.StartTime)
	eh, em, _ := eligibility.ParseClock(booking.EndTime)
	if eh*60+em <= sh*60+sm {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: bookingserrors.ErrInvalidTimeRange.Error(),
			},
		}
	}

	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "booking_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "clock_time":
			message = fmt.Sprintf("%s must be a time in HH:mm format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
