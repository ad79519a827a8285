// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Limit reads an integer query parameter, clamped to [1, max]; missing or
// invalid values give def.
func Limit(r *http.Request, key string, def, max int) int {
	s := query.Get(r, key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Before reads an ObjectID cursor ("before" = older than this id). An absent
// parameter gives NilObjectID; a malformed one is a 400.
func Before(r *http.Request, key string) (primitive.ObjectID, error) {
	s := query.Get(r, key)
	if s == "" {
		return primitive.NilObjectID, nil
	}
	return inputval.ObjectID(key, s)
}

// TrimPage trims rows fetched with limit+1 look-ahead and reports whether
// more rows exist.
func TrimPage[T any](rows *[]T, limit int) (hasMore bool) {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

// Reverse flips rows in place (newest-first query, oldest-first response).
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
