package service

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/noah-isme/masjid-field-reports/internal/models"
)

const (
	msgMosqueRequired    = "يجب اختيار المسجد"
	msgEvaluatorRequired = "يجب إدخال اسم المُقيّم"
	msgDayRequired       = "يجب اختيار اليوم"
	msgRatingRange       = "التقييم يجب أن يكون بين 1 و 5"
	msgWholeNumber       = "يجب إدخال رقم صحيح"
)

var requiredMessages = map[string]string{
	models.FieldMosqueCode: msgMosqueRequired,
	models.FieldEvaluator:  msgEvaluatorRequired,
	models.FieldCodeDay:    msgDayRequired,
}

type fastEvalForm struct {
	MosqueCode string `json:"mosque_code" validate:"notblank"`
	Evaluator  string `json:"الاسم_الكريم" validate:"notblank"`
}

type dayForm struct {
	MosqueCode string `json:"mosque_code" validate:"notblank"`
	CodeDay    string `json:"code_day" validate:"notblank"`
}

// FormValidationError carries the per-field messages of a rejected form.
type FormValidationError struct {
	Fields models.FormErrors
}

func (e *FormValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "form invalid: " + strings.Join(keys, ", ")
}

// FormValidator checks report forms before they are saved.
type FormValidator struct {
	validate *validator.Validate
}

// NewFormValidator registers the form tags on validate (or a fresh validator).
func NewFormValidator(validate *validator.Validate) *FormValidator {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		n, blank, ok := number(fl.Field().Interface())
		if blank {
			return true
		}
		return ok && n == math.Trunc(n) && n >= 0 && n <= 5
	})
	_ = validate.RegisterValidation("count", func(fl validator.FieldLevel) bool {
		n, blank, ok := number(fl.Field().Interface())
		if blank {
			return true
		}
		return ok && n == math.Trunc(n) && n >= 0
	})
	return &FormValidator{validate: validate}
}

var (
	defaultValidatorOnce sync.Once
	defaultValidator     *FormValidator
)

// ValidateForm validates a record with a shared FormValidator.
func ValidateForm(kind models.RecordKind, record models.Record) models.FormErrors {
	defaultValidatorOnce.Do(func() { defaultValidator = NewFormValidator(nil) })
	return defaultValidator.Validate(kind, record)
}

// Validate returns the failing fields of a form; an empty map means the form
// may be submitted. Required fields are checked after trimming. Ratings of a
// fast evaluation must be whole numbers up to 5 (0 means not rated) and
// attendance counts must be non-negative whole numbers.
func (v *FormValidator) Validate(kind models.RecordKind, record models.Record) models.FormErrors {
	errs := models.FormErrors{}

	var form interface{}
	switch kind {
	case models.KindFastEval:
		form = fastEvalForm{MosqueCode: record.MosqueCode, Evaluator: record.Fields.String(models.FieldEvaluator)}
	case models.KindMaintenance, models.KindAttendance:
		form = dayForm{MosqueCode: record.MosqueCode, CodeDay: record.CodeDay}
	default:
		return errs
	}

	if err := v.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs[fe.Field()] = requiredMessages[fe.Field()]
			}
		}
	}

	switch kind {
	case models.KindFastEval:
		for _, c := range models.MealCriteria {
			v.checkVar(errs, record.Fields, c.Key, "rating", msgRatingRange)
		}
	case models.KindAttendance:
		v.checkVar(errs, record.Fields, models.FieldMenCount, "count", msgWholeNumber)
		v.checkVar(errs, record.Fields, models.FieldWomenCount, "count", msgWholeNumber)
	}
	return errs
}

func (v *FormValidator) checkVar(errs models.FormErrors, fields models.Fields, key, tag, message string) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return
	}
	if err := v.validate.Var(raw, tag); err != nil {
		errs[key] = message
	}
}

func number(raw interface{}) (n float64, blank bool, ok bool) {
	if s, isString := raw.(string); isString {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, true, false
		}
		raw = s
	}
	if _, isBool := raw.(bool); isBool {
		return 0, false, false
	}
	n, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false, false
	}
	return n, false, true
}
