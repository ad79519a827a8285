// Package inputval validates request fields and turns failures into 400
// API errors.
package inputval

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/dalemusser/waffle/toolkit/validate"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Limits.
const (
	MaxNameLen        = 120
	MaxDescriptionLen = 5000
	MinPasswordLen    = 8
)

// dateOnly is the calendar date layout accepted next to RFC 3339.
const dateOnly = "2006-01-02"

// ObjectID parses a hex id; field names the parameter in the error.
func ObjectID(field, hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, apierror.Badf("Invalid %s", field)
	}
	return oid, nil
}

// ObjectIDs parses a list of hex ids, dropping duplicates.
func ObjectIDs(field string, hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	seen := make(map[primitive.ObjectID]bool, len(hexes))
	for _, h := range hexes {
		oid, err := ObjectID(field, h)
		if err != nil {
			return nil, err
		}
		if !seen[oid] {
			seen[oid] = true
			out = append(out, oid)
		}
	}
	return out, nil
}

// Name trims s and checks it is 1..MaxNameLen characters.
func Name(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return "", apierror.Badf("%s is required", field)
	}
	if n > MaxNameLen {
		return "", apierror.Badf("%s must be at most %d characters", field, MaxNameLen)
	}
	return s, nil
}

// Description trims s and caps its length.
func Description(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxDescriptionLen {
		return "", apierror.Badf("Description must be at most %d characters", MaxDescriptionLen)
	}
	return s, nil
}

// Email checks the address shape.
func Email(s string) error {
	if s == "" || !validate.SimpleEmailValid(s) {
		return apierror.BadRequest("A valid email is required")
	}
	return nil
}

// Password checks the minimum length.
func Password(s string) error {
	if utf8.RuneCountInString(s) < MinPasswordLen {
		return apierror.Badf("Password must be at least %d characters", MinPasswordLen)
	}
	return nil
}

// ParseDate accepts RFC 3339 or YYYY-MM-DD and returns the instant in UTC.
// A bare date means the end of that day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t.Add(24*time.Hour - time.Second), true
	}
	return time.Time{}, false
}

// Deadline parses s and rejects dates before today (UTC).
func Deadline(s string, now time.Time) (time.Time, error) {
	t, ok := ParseDate(s)
	if !ok {
		return time.Time{}, apierror.BadRequest("Invalid deadline date")
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if t.Before(today) {
		return time.Time{}, apierror.BadRequest("Deadline cannot be in the past")
	}
	return t, nil
}

// Priority defaults an empty value to medium and rejects unknown values.
func Priority(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return models.PriorityMedium, nil
	}
	if !models.ValidPriority(p) {
		return "", apierror.BadRequest("Priority must be low, medium or high")
	}
	return p, nil
}

// Progress checks 0..100.
func Progress(p int) error {
	if p < 0 || p > 100 {
		return apierror.BadRequest("Progress must be between 0 and 100")
	}
	return nil
}

// Link trims s and requires an absolute http(s) URL. Empty is allowed.
func Link(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s != "" && !urlutil.IsValidAbsHTTPURL(s) {
		return "", apierror.BadRequest("Link must be an http or https URL")
	}
	return s, nil
}

// Time parses an RFC 3339 instant for field.
func Time(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apierror.Badf("%s must be an RFC 3339 timestamp", field)
	}
	return t.UTC(), nil
}

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// DecodeJSON reads the request body into v. Malformed or oversized bodies
// are a 400.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("Request body is required")
		}
		return apierror.BadRequest("Malformed JSON body")
	}
	return nil
}
