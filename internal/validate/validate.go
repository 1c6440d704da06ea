// Package validate wraps go-playground/validator with JSON field names and
// English messages, producing the same field-keyed shape the server returns.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldErrors maps a JSON field name to its messages.
type FieldErrors map[string][]string

func (f FieldErrors) Error() string {
	return "validation failed: " + strings.Join(f.Lines(), ", ")
}

// Lines returns one "field: message; message" line per field, sorted by field.
func (f FieldErrors) Lines() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+strings.Join(f[k], "; "))
	}
	return out
}

// Add appends a message for field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

var (
	keyCodeTag   = "keycode"
	keyCodeText  = "{0} must look like XXXX-XXXX-XXXX"
	keyCodeRegex = regexp.MustCompile(`^[A-Z0-9]{4}(-[A-Z0-9]{4}){2,3}$`)

	requiredTag  = "required"
	requiredText = "this field is required"
)

var (
	once       sync.Once
	instance   *validator.Validate
	translator ut.Translator
)

func get() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		locale := en.New()
		uni := ut.New(locale, locale)
		translator, _ = uni.GetTranslator("en")

		instance = validator.New(validator.WithRequiredStructEnabled())
		_ = en_translations.RegisterDefaultTranslations(instance, translator)

		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = instance.RegisterValidation(keyCodeTag, func(fl validator.FieldLevel) bool {
			return keyCodeRegex.MatchString(fl.Field().String())
		})
		registerTranslation(instance, translator, keyCodeTag, keyCodeText, false)
		registerTranslation(instance, translator, requiredTag, requiredText, true)
	})
	return instance, translator
}

func registerTranslation(v *validator.Validate, t ut.Translator, tag, text string, override bool) {
	_ = v.RegisterTranslation(
		tag, t,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns FieldErrors (or nil).
func Struct(s any) error {
	v, t := get()
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		out.Add(fieldPath(fe), fe.Translate(t))
	}
	return out
}

// Var validates a single value against tag, reporting it under field.
func Var(field string, value any, tag string) error {
	v, t := get()
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		msg := strings.TrimSpace(strings.Replace(fe.Translate(t), fe.Field(), field, 1))
		out.Add(field, msg)
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
