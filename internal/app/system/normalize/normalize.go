// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and case-folds an address so lookups and the unique index
// agree.
func Email(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// Name trims and collapses inner whitespace; case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
