package export

import (
	"context"
	"fmt"
	"html/template"
	"time"
)

// NoteSource loads the note content to export, either the current
// version or a named revision.
type NoteSource interface {
	GetNoteForExport(ctx context.Context, noteID, revision string) (NoteInfo, error)
}

// NoteInfo holds the note data needed to render an export.
type NoteInfo struct {
	ID         string
	Title      string
	Body       string
	Tags       []string
	Author     string
	FolderName string
	UpdatedAt  time.Time
}

// Service provides note export functionality
type Service struct {
	source NoteSource
}

// NewService creates a new export service
func NewService(source NoteSource) *Service {
	return &Service{source: source}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	note, err := s.source.GetNoteForExport(ctx, req.NoteID, req.Revision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	if req.Format == FormatMarkdown {
		return &Result{
			Data:     []byte(note.Body),
			Filename: sanitizeFilename(note.Title) + ".md",
			MimeType: "text/markdown; charset=utf-8",
		}, nil
	}

	contentHTML, err := MarkdownToHTML(note.Body)
	if err != nil {
		return nil, err
	}

	html, err := RenderNoteHTML(TemplateData{
		Title:       note.Title,
		ContentHTML: template.HTML(contentHTML),
		Author:      note.Author,
		Tags:        note.Tags,
		FolderName:  note.FolderName,
		UpdatedAt:   note.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(note.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, note.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
