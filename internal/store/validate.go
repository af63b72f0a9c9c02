package store

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/go-playground/validator/v10"
)

// registrationInput is the shape checked before a registration is considered.
type registrationInput struct {
	Participant string `json:"participant_identifier" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so clients can map errors onto inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the struct tag rules on v and records one error per field.
func (s *Store) checkStruct(verr *ValidationError, v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	for _, fe := range fieldErrs {
		code, msg := describe(fe)
		verr.add(fe.Field(), code, msg)
	}
	return nil
}

func describe(fe validator.FieldError) (code, message string) {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return CodeRequired, field + " is required"
	case "datetime":
		if fe.Param() == model.TimeLayout {
			return CodeInvalidFormat, field + " must be a time of day in HH:MM form"
		}
		return CodeInvalidFormat, field + " must be a date in YYYY-MM-DD form"
	case "http_url":
		return CodeInvalidURL, field + " must start with http:// or https://"
	case "min":
		return CodeOutOfRange, fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return CodeOutOfRange, fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return CodeInvalidFormat, field + " is invalid"
	}
}

// validateFields checks an activity payload: presence and format first,
// then date ordering, then strict time ordering, then numeric ranges.
// The payload is normalized in place.
func (s *Store) validateFields(ownerCode string, f *model.ActivityFields) error {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Location = strings.TrimSpace(f.Location)

	verr := &ValidationError{}
	if strings.TrimSpace(ownerCode) == "" {
		verr.add("owner_code", CodeRequired, "owner_code is required")
	}
	if err := s.checkStruct(verr, f); err != nil {
		return err
	}

	if !verr.Has("date_from") && !verr.Has("date_to") {
		from, _ := time.Parse(model.DateLayout, f.DateFrom)
		to, _ := time.Parse(model.DateLayout, f.DateTo)
		if from.After(to) {
			verr.add("date_to", CodeRangeOrder, "date_to must not be before date_from")
		}
	}
	if !verr.Has("time_from") && !verr.Has("time_to") {
		from, _ := time.Parse(model.TimeLayout, f.TimeFrom)
		to, _ := time.Parse(model.TimeLayout, f.TimeTo)
		if !from.Before(to) {
			verr.add("time_to", CodeRangeOrder, "time_to must be later than time_from")
		}
		f.TimeFrom = from.Format(model.TimeLayout)
		f.TimeTo = to.Format(model.TimeLayout)
	}

	sortFieldErrors(verr.Fields)
	return verr.orNil()
}

// validateSlot checks a registration request against the activity window.
// The chosen date and time are normalized in place.
func (s *Store) validateSlot(a *model.Activity, in *registrationInput) error {
	in.Participant = strings.TrimSpace(in.Participant)

	verr := &ValidationError{}
	if err := s.checkStruct(verr, in); err != nil {
		return err
	}
	if !verr.Has("date") && !dateWithin(in.Date, a.DateFrom, a.DateTo) {
		verr.add("date", CodeDateOutOfWindow,
			fmt.Sprintf("date must be between %s and %s", a.DateFrom, a.DateTo))
	}
	if !verr.Has("time") {
		t, _ := time.Parse(model.TimeLayout, in.Time)
		in.Time = t.Format(model.TimeLayout)
		if !timeWithin(in.Time, a.TimeFrom, a.TimeTo) {
			verr.add("time", CodeTimeOutOfWindow,
				fmt.Sprintf("time must be between %s and %s", a.TimeFrom, a.TimeTo))
		}
	}
	return verr.orNil()
}

// dateWithin reports whether from <= d <= to. All three are YYYY-MM-DD.
func dateWithin(d, from, to string) bool {
	day, err := time.Parse(model.DateLayout, d)
	if err != nil {
		return false
	}
	lo, errLo := time.Parse(model.DateLayout, from)
	hi, errHi := time.Parse(model.DateLayout, to)
	if errLo != nil || errHi != nil {
		return false
	}
	return !day.Before(lo) && !day.After(hi)
}

// timeWithin reports whether from <= t <= to, comparing minutes of the day.
func timeWithin(t, from, to string) bool {
	m, ok := minutes(t)
	lo, okLo := minutes(from)
	hi, okHi := minutes(to)
	return ok && okLo && okHi && m >= lo && m <= hi
}

func minutes(hhmm string) (int, bool) {
	t, err := time.Parse(model.TimeLayout, hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// sortFieldErrors orders errors by rule kind: presence and format, date
// ordering, time ordering, numeric range.
func sortFieldErrors(fields []model.FieldError) {
	rank := func(f model.FieldError) int {
		switch {
		case f.Code == CodeRangeOrder && strings.HasPrefix(f.Field, "date"):
			return 1
		case f.Code == CodeRangeOrder:
			return 2
		case f.Code == CodeOutOfRange:
			return 3
		default:
			return 0
		}
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return rank(fields[i]) < rank(fields[j])
	})
}
