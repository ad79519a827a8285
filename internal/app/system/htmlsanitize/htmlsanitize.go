// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// PlainText strips every tag; used for chat bodies.
func PlainText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// Rich keeps safe formatting (links, lists, emphasis); used for project,
// task and meeting descriptions.
func Rich(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(ugc.Sanitize(s))
}
