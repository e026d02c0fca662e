package model

// Stats is a point-in-time aggregate over all entries.
type Stats struct {
	TotalEntries      int          `json:"totalEntries"`
	ThisMonthEntries  int          `json:"thisMonthEntries"`
	PinnedEntries     int          `json:"pinnedEntries"`
	FavoriteEntries   int          `json:"favoriteEntries"`
	EntriesByCategory []GroupCount `json:"entriesByCategory"`
	EntriesByTag      []GroupCount `json:"entriesByTag"`
}

// GroupCount is the entry count for one category or tag.
type GroupCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color"`
}
