// Package form carries submitted field values and their validation errors
// back and forth between handlers and templates. Errors are collected per
// field in one pass and returned, never raised, so a single submission can
// surface every problem at once.
package form

// Errors maps a field name to its user-facing message. The empty field name
// holds form-wide messages (e.g. a failed login).
type Errors map[string]string

func (e Errors) Add(field, message string) {
	if _, taken := e[field]; taken {
		return // first error per field wins
	}
	e[field] = message
}

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

func (e Errors) Get(field string) string {
	return e[field]
}

// Any reports whether the submission failed validation.
func (e Errors) Any() bool {
	return len(e) > 0
}

// Register holds the registration form state for re-rendering.
type Register struct {
	Username string
	Email    string
	Errors   Errors
}

// Login holds the login form state for re-rendering. Next carries the
// post-login redirect target through the round trip.
type Login struct {
	Email    string
	Remember bool
	Next     string
	Errors   Errors
}

// Account holds the account update form state for re-rendering.
type Account struct {
	Username string
	Email    string
	Errors   Errors
}
