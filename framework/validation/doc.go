// Package validation checks configuration values against Laravel-style rule
// strings. The container uses it for declared service parameters; the
// map-based Validator remains available for validating a whole settings set.
//
// # Single values
//
//	err := validation.Value("_retries", 3, "required|integer|between:0,10")
//	if errors.Is(err, validation.ErrRuleFailed) { ... }
//
// Values of any type are compared in their string form (via spf13/cast), so
// 3, int64(3) and "3" are equivalent to every rule.
//
// # Value sets
//
//	v := validation.Make(map[string]any{
//	    "host": "localhost",
//	    "port": 6379,
//	}, validation.Rules{
//	    "host": "required|alpha_dash",
//	    "port": "required|integer|between:1,65535",
//	})
//	if v.Fails() {
//	    // v.Errors().Bag → {"port": ["The port must be between 1 and 65535."]}
//	}
//
// # Available Rules
//
// String rules: required, string, min:n, max:n, size:n, alpha, alpha_num,
// alpha_dash, regex:pattern.
//
// Format rules: email, url.
//
// Numeric rules: numeric, integer, gt:n, gte:n, lt:n, lte:n, and
// between:min,max (numeric values by magnitude, other values by length).
//
// Comparison rules (value sets only): confirmed, same:other, different:other.
//
// Type rules: boolean, in:a,b,c, not_in:a,b,c.
//
// Control rules: nullable and sometimes stop processing an empty value.
//
// Processing stops at the first failing rule of a field.
package validation
