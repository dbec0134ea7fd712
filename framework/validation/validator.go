package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// ── Types ────────────────────────────────────────────────────────────────────

// Errors holds validation messages keyed by field.
type Errors struct {
	Bag map[string][]string `json:"errors"`
}

func (e *Errors) add(field, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[field] = append(e.Bag[field], msg)
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if msgs, ok := e.Bag[field]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// ErrRuleFailed is matched by every error returned from Value.
var ErrRuleFailed = errors.New("validation failed")

// RuleError reports the first rule a value failed.
type RuleError struct {
	Field   string
	Rule    string
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func (e *RuleError) Is(target error) bool { return target == ErrRuleFailed }

// ── Validator ────────────────────────────────────────────────────────────────

// Rules is a map of field → pipe-separated rule string.
// e.g. Rules{"port": "required|integer|between:1,65535"}
type Rules map[string]string

// Validator validates a flat map of input values.
type Validator struct {
	data   map[string]any
	rules  Rules
	errors *Errors
}

// Make creates a Validator over arbitrary values; each value is compared
// in its string form.
func Make(data map[string]any, rules Rules) *Validator {
	return &Validator{
		data:   data,
		rules:  rules,
		errors: &Errors{},
	}
}

// Fails runs validation and returns true if any rule fails.
func (v *Validator) Fails() bool {
	v.errors = &Errors{}
	for field, ruleStr := range v.rules {
		if _, msg := check(field, v.data[field], ruleStr, v.lookup); msg != "" {
			v.errors.add(field, msg)
		}
	}
	return v.errors.Has()
}

// Passes runs validation and returns true if all rules pass.
func (v *Validator) Passes() bool { return !v.Fails() }

// Errors returns the validation error bag.
func (v *Validator) Errors() *Errors { return v.errors }

func (v *Validator) lookup(field string) string {
	return stringify(v.data[field])
}

// Value validates a single value against a rule string. Rules that compare
// against other fields (same, different, confirmed) see an empty input set.
//
//	err := validation.Value("_port", 8080, "required|integer|between:1,65535")
func Value(field string, value any, rules string) error {
	rule, msg := check(field, value, rules, func(string) string { return "" })
	if msg == "" {
		return nil
	}
	return &RuleError{Field: field, Rule: rule, Message: msg}
}

// ── Core validation loop ─────────────────────────────────────────────────────

// check returns the first failing rule and its message (bail semantics);
// msg is empty when every rule passes.
func check(field string, raw any, ruleStr string, other func(string) string) (rule, msg string) {
	value := stringify(raw)

	for _, r := range strings.Split(ruleStr, "|") {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		name, param, _ := strings.Cut(r, ":")

		if (name == "sometimes" || name == "nullable") && value == "" {
			return "", ""
		}
		if m := applyRule(field, value, name, param, other); m != "" {
			return name, m
		}
	}
	return "", ""
}

// applyRule returns an empty string when the rule passes.
func applyRule(field, value, rule, param string, other func(string) string) string {
	switch rule {
	case "required":
		if strings.TrimSpace(value) == "" {
			return fmt.Sprintf("The %s field is required.", field)
		}

	case "string", "nullable", "sometimes":

	case "numeric":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Sprintf("The %s must be a number.", field)
		}

	case "integer":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Sprintf("The %s must be an integer.", field)
		}

	case "boolean":
		switch strings.ToLower(value) {
		case "true", "false", "1", "0", "yes", "no":
		default:
			return fmt.Sprintf("The %s field must be true or false.", field)
		}

	case "email":
		if _, err := mail.ParseAddress(value); err != nil {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}

	case "url":
		if !urlPattern.MatchString(value) {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}

	case "min":
		n, _ := strconv.Atoi(param)
		if utf8.RuneCountInString(value) < n {
			return fmt.Sprintf("The %s must be at least %d characters.", field, n)
		}

	case "max":
		n, _ := strconv.Atoi(param)
		if utf8.RuneCountInString(value) > n {
			return fmt.Sprintf("The %s may not be greater than %d characters.", field, n)
		}

	case "size":
		n, _ := strconv.Atoi(param)
		if utf8.RuneCountInString(value) != n {
			return fmt.Sprintf("The %s must be %d characters.", field, n)
		}

	case "between":
		lo, hi, ok := strings.Cut(param, ",")
		if !ok {
			break
		}
		min, _ := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		max, _ := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		// numeric values are compared by magnitude, everything else by length
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			n = float64(utf8.RuneCountInString(value))
		}
		if n < min || n > max {
			return fmt.Sprintf("The %s must be between %s and %s.", field, strings.TrimSpace(lo), strings.TrimSpace(hi))
		}

	case "in":
		if !contains(strings.Split(param, ","), value) {
			return fmt.Sprintf("The selected %s is invalid.", field)
		}

	case "not_in":
		if contains(strings.Split(param, ","), value) {
			return fmt.Sprintf("The selected %s is invalid.", field)
		}

	case "confirmed":
		if other(field+"_confirmation") != value {
			return fmt.Sprintf("The %s confirmation does not match.", field)
		}

	case "same":
		if other(param) != value {
			return fmt.Sprintf("The %s and %s must match.", field, param)
		}

	case "different":
		if other(param) == value {
			return fmt.Sprintf("The %s and %s must be different.", field, param)
		}

	case "alpha":
		if !alphaPattern.MatchString(value) {
			return fmt.Sprintf("The %s may only contain letters.", field)
		}

	case "alpha_num":
		if !alphaNumPattern.MatchString(value) {
			return fmt.Sprintf("The %s may only contain letters and numbers.", field)
		}

	case "alpha_dash":
		if !alphaDashPattern.MatchString(value) {
			return fmt.Sprintf("The %s may only contain letters, numbers, dashes and underscores.", field)
		}

	case "regex":
		re, err := regexp.Compile(param)
		if err != nil || !re.MatchString(value) {
			return fmt.Sprintf("The %s format is invalid.", field)
		}

	case "gt", "gte", "lt", "lte":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Sprintf("The %s must be a number.", field)
		}
		t, _ := strconv.ParseFloat(param, 64)
		switch {
		case rule == "gt" && f <= t:
			return fmt.Sprintf("The %s must be greater than %s.", field, param)
		case rule == "gte" && f < t:
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		case rule == "lt" && f >= t:
			return fmt.Sprintf("The %s must be less than %s.", field, param)
		case rule == "lte" && f > t:
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	}

	return ""
}

var (
	urlPattern       = regexp.MustCompile(`^https?://`)
	alphaPattern     = regexp.MustCompile(`^[a-zA-Z]+$`)
	alphaNumPattern  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	alphaDashPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func contains(list []string, value string) bool {
	for _, item := range list {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}

// stringify renders a value the way rules see it; nil is the empty string.
func stringify(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
