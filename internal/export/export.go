// Package export renders the full entry set as a downloadable document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dukerupert/devdiary/internal/model"
)

// Format identifies an export document type.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat maps a query value to a Format. An empty value means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the rendered document.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json; charset=utf-8"
	}
}

// Filename returns the suggested download name.
func (f Format) Filename() string {
	switch f {
	case FormatMarkdown:
		return "dev-diary-export.md"
	case FormatXLSX:
		return "dev-diary-export.xlsx"
	default:
		return "dev-diary-export.json"
	}
}

// Document is the JSON export layout.
type Document struct {
	ExportedAt   time.Time `json:"exportedAt"`
	TotalEntries int       `json:"totalEntries"`
	Entries      []Record  `json:"entries"`
}

// Record is one entry with its category and tags flattened to names.
type Record struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   *string   `json:"category,omitempty"`
	Tags       []string  `json:"tags"`
	IsPinned   bool      `json:"isPinned"`
	IsFavorite bool      `json:"isFavorite"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Write renders entries in the given format to w.
func Write(w io.Writer, f Format, entries []model.Entry, exportedAt time.Time) error {
	switch f {
	case FormatMarkdown:
		return WriteMarkdown(w, entries, exportedAt)
	case FormatXLSX:
		return WriteXLSX(w, entries)
	default:
		return WriteJSON(w, entries, exportedAt)
	}
}

func NewDocument(entries []model.Entry, exportedAt time.Time) Document {
	doc := Document{
		ExportedAt:   exportedAt.UTC(),
		TotalEntries: len(entries),
		Entries:      make([]Record, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, Record{
			ID:         e.ID,
			Title:      e.Title,
			Content:    e.Content,
			Category:   e.CategoryName,
			Tags:       e.TagNames(),
			IsPinned:   e.IsPinned,
			IsFavorite: e.IsFavorite,
			CreatedAt:  e.CreatedAt,
			UpdatedAt:  e.UpdatedAt,
		})
	}
	return doc
}

func WriteJSON(w io.Writer, entries []model.Entry, exportedAt time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(entries, exportedAt)); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}

const markdownTimeLayout = "2006-01-02 15:04"

func WriteMarkdown(w io.Writer, entries []model.Entry, exportedAt time.Time) error {
	var b strings.Builder
	b.WriteString("# Dev Diary Export\n\n")
	fmt.Fprintf(&b, "Exported at: %s\n\n", exportedAt.Format(markdownTimeLayout))
	b.WriteString("---\n\n")

	for _, e := range entries {
		fmt.Fprintf(&b, "## %s\n\n", e.Title)
		fmt.Fprintf(&b, "**Created**: %s\n\n", e.CreatedAt.In(exportedAt.Location()).Format(markdownTimeLayout))
		if e.CategoryName != nil {
			fmt.Fprintf(&b, "**Category**: %s\n\n", *e.CategoryName)
		}
		if len(e.Tags) > 0 {
			fmt.Fprintf(&b, "**Tags**: %s\n\n", strings.Join(e.TagNames(), ", "))
		}
		if e.IsPinned {
			b.WriteString("📌 Pinned\n\n")
		}
		if e.IsFavorite {
			b.WriteString("⭐ Favorite\n\n")
		}
		b.WriteString(e.Content)
		b.WriteString("\n\n---\n\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write markdown export: %w", err)
	}
	return nil
}

const sheetName = "Entries"

var sheetHeaders = []string{"ID", "Title", "Category", "Tags", "Pinned", "Favorite", "Created", "Updated", "Content"}

func WriteXLSX(w io.Writer, entries []model.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	// A new workbook starts with "Sheet1"; rename it rather than adding one.
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &sheetHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		category := ""
		if e.CategoryName != nil {
			category = *e.CategoryName
		}
		row := []any{
			e.ID,
			e.Title,
			category,
			strings.Join(e.TagNames(), ", "),
			e.IsPinned,
			e.IsFavorite,
			e.CreatedAt.Format(time.RFC3339),
			e.UpdatedAt.Format(time.RFC3339),
			e.Content,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	f.SetColWidth(sheetName, "B", "B", 40)
	f.SetColWidth(sheetName, "C", "D", 20)
	f.SetColWidth(sheetName, "G", "H", 22)
	f.SetColWidth(sheetName, "I", "I", 60)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx export: %w", err)
	}
	return nil
}
