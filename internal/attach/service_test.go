package attach

import "testing"

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name         string
		noteID       string
		attachmentID string
		filename     string
		want         string
	}{
		{"simple", "note-1", "att-1", "report.pdf", "note-1/att-1-report.pdf"},
		{"spaces replaced", "note-1", "att-2", "my file.txt", "note-1/att-2-my_file.txt"},
		{"path stripped", "note-1", "att-3", "../../etc/passwd", "note-1/att-3-passwd"},
		{"empty filename", "note-1", "att-4", "", "note-1/att-4-file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectKey(tt.noteID, tt.attachmentID, tt.filename)
			if got != tt.want {
				t.Errorf("objectKey(%q, %q, %q) = %q, want %q", tt.noteID, tt.attachmentID, tt.filename, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("nested/dir/photo.png"); got != "photo.png" {
		t.Errorf("expected photo.png, got %q", got)
	}
	if got := sanitizeFilename("/"); got != "file" {
		t.Errorf("expected fallback name, got %q", got)
	}
}
