package model

import "time"

// Entry is a diary entry enriched with its category display fields and tags.
type Entry struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	CategoryID    *int64    `json:"category_id"`
	IsPinned      bool      `json:"is_pinned"`
	IsFavorite    bool      `json:"is_favorite"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CategoryName  *string   `json:"category_name,omitempty"`
	CategoryColor *string   `json:"category_color,omitempty"`
	Tags          []Tag     `json:"tags"`
}

// TagNames returns the names of the entry's tags in order.
func (e Entry) TagNames() []string {
	names := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		names = append(names, t.Name)
	}
	return names
}

// NewEntry holds the fields accepted when creating an entry.
type NewEntry struct {
	Title      string
	Content    string
	CategoryID *int64
	IsPinned   bool
	IsFavorite bool
	TagIDs     []int64
}

// EntryPatch is a partial update. Nil pointers leave the stored value
// unchanged. CategoryID only applies when SetCategory is true, so that a
// nil CategoryID can clear the category. TagIDs replaces the whole tag set
// when non-nil.
type EntryPatch struct {
	Title       *string
	Content     *string
	SetCategory bool
	CategoryID  *int64
	IsPinned    *bool
	IsFavorite  *bool
	TagIDs      *[]int64
}

// EntryFilter narrows an entry listing. Zero values disable a filter.
type EntryFilter struct {
	Search       string
	CategoryID   int64
	TagID        int64
	StartDate    *time.Time
	EndDate      *time.Time
	PinnedOnly   bool
	FavoriteOnly bool
}

// DayCount is the number of entries created on a calendar day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}
