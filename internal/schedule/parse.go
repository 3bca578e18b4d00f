package schedule

import (
	"strings"
	"time"

	apperr "github.com/edgard/remindbot/internal/errors"
)

// DisplayLayout is how dates are shown to users in confirmations and lists.
const DisplayLayout = "Monday, Jan 02, 2006"

// inputLayouts are tried in order. Month names match case-insensitively, so
// "jul 31 2025" and "Jul 31 2025" both parse.
var inputLayouts = []string{
	"Jan 2 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	ISOLayout,
}

// ParseUserDate resolves a user-supplied due date such as "jul 31 2025" or
// "2025-07-31". Failures are reported as invalid input.
func ParseUserDate(s string) (Date, error) {
	value := strings.Join(strings.Fields(s), " ")
	if value == "" {
		return Date{}, apperr.InvalidInputf("due date is required")
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, apperr.InvalidInputf("cannot understand due date %q, use a date like \"Jul 31 2025\"", s)
}
