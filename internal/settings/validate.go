package settings

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound is returned when no collection entry has the given id.
	ErrNotFound = errors.New("entry not found")

	// ErrSaveFailed is returned when a collection change could not be persisted.
	ErrSaveFailed = errors.New("failed to save settings")
)

// ValidationError is a user-facing reason for rejecting input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("registering username validation: %v", err))
	}
	return v
}

type fileInput struct {
	Name string `validate:"required,max=100"`
}

type usernameInput struct {
	Name string `validate:"required,max=39,username"`
}

type dropdownInput struct {
	Text     string `validate:"required,max=50"`
	Template string `validate:"required,max=500"`
}

// labels name the fields of each input kind in messages.
var labels = map[string]string{
	"fileInput.Name":         "File name",
	"usernameInput.Name":     "Username",
	"dropdownInput.Text":     "Option text",
	"dropdownInput.Template": "Template",
}

// check runs the struct rules on in and converts the first failure into
// a ValidationError.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	ns := fe.StructNamespace()
	label, ok := labels[ns]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return invalid(ns, "%s cannot be empty", label)
	case "max":
		return invalid(ns, "%s must be %s characters or less", label, fe.Param())
	case "username":
		return invalid(ns, "%s can only contain letters, numbers, hyphens and underscores", label)
	}
	return invalid(ns, "%s is invalid", label)
}

// ValidateFileName trims and checks a files entry.
func ValidateFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	return name, check(fileInput{Name: name})
}

// ValidateUsername trims and checks a usernames entry.
func ValidateUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	return name, check(usernameInput{Name: name})
}

// ValidateDropdownOption trims and checks a dropdown option.
func ValidateDropdownOption(text, tmpl string) (string, string, error) {
	text = strings.TrimSpace(text)
	tmpl = strings.TrimSpace(tmpl)
	return text, tmpl, check(dropdownInput{Text: text, Template: tmpl})
}

// checkCollection applies the entry rules of the collection operations to
// a whole collection value. Names are trimmed in place. Other keys pass.
func checkCollection(key string, v any) error {
	switch key {
	case KeyFiles:
		return checkItems(fileKind, v.([]Item))
	case KeyUsernames:
		return checkItems(usernameKind, v.([]Item))
	case KeyDropdownOptions:
		return checkDropdownOptions(v.([]DropdownOption))
	}
	return nil
}

func checkItems(kind itemKind, items []Item) error {
	ids := map[string]bool{}
	names := map[string]bool{}
	for i := range items {
		name, err := kind.validate(items[i].Name)
		if err != nil {
			return err
		}
		if err := checkID(kind.key, items[i].ID, ids); err != nil {
			return err
		}
		if names[strings.ToLower(name)] {
			return invalid(kind.key, "%s %q already exists", kind.noun, name)
		}
		names[strings.ToLower(name)] = true
		items[i].Name = name
	}
	return nil
}

func checkDropdownOptions(opts []DropdownOption) error {
	ids := map[string]bool{}
	texts := map[string]bool{}
	for i := range opts {
		text, tmpl, err := ValidateDropdownOption(opts[i].Text, opts[i].Template)
		if err != nil {
			return err
		}
		if err := checkID(KeyDropdownOptions, opts[i].ID, ids); err != nil {
			return err
		}
		if texts[strings.ToLower(text)] {
			return invalid(KeyDropdownOptions, "Option %q already exists", text)
		}
		texts[strings.ToLower(text)] = true
		opts[i].Text, opts[i].Template = text, tmpl
	}
	return nil
}

func checkID(field, id string, seen map[string]bool) error {
	if id == "" {
		return invalid(field, "Entry id cannot be empty")
	}
	if seen[id] {
		return invalid(field, "Duplicate entry id %q", id)
	}
	seen[id] = true
	return nil
}
