package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/devdiary/internal/model"
)

const dateOnly = "2006-01-02"

// parseEntryFilter reads list filters from query parameters. Date-only
// values are interpreted in loc; a date-only endDate covers the whole day.
func parseEntryFilter(q url.Values, loc *time.Location) (model.EntryFilter, error) {
	f := model.EntryFilter{
		Search:       strings.TrimSpace(q.Get("search")),
		PinnedOnly:   parseFlag(q.Get("pinnedOnly")),
		FavoriteOnly: parseFlag(q.Get("favoriteOnly")),
	}

	var err error
	if f.CategoryID, err = parseOptionalInt(q, "categoryId"); err != nil {
		return f, err
	}
	if f.TagID, err = parseOptionalInt(q, "tagId"); err != nil {
		return f, err
	}
	if f.StartDate, err = parseDateParam(q, "startDate", loc, false); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDateParam(q, "endDate", loc, true); err != nil {
		return f, err
	}
	return f, nil
}

func parseFlag(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// parseOptionalInt reads an id filter. Empty and 0 both mean unset.
func parseOptionalInt(q url.Values, key string) (int64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func parseDateParam(q url.Values, key string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateOnly, v, loc)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD or RFC 3339", key)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
	}
	return &t, nil
}
