package links

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
)

type stubResolver struct {
	name string
	err  error
}

func (s stubResolver) ResolveName(context.Context, *Link) (string, error) {
	return s.name, s.err
}

func TestValidate(t *testing.T) {
	valid := []struct {
		name     string
		url      string
		fileType models.FileType
		id       string
	}{
		{"file", "https://drive.google.com/file/d/abc123", models.FileTypeFile, "abc123"},
		{"file with view suffix", "https://drive.google.com/file/d/1A-b_C/view?usp=sharing", models.FileTypeFile, "1A-b_C"},
		{"folder", "https://drive.google.com/drive/folders/xyz789", models.FileTypeFolder, "xyz789"},
		{"surrounding whitespace", "  https://drive.google.com/drive/folders/f1  ", models.FileTypeFolder, "f1"},
	}

	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			link, err := Validate(tt.url)
			if err != nil {
				t.Fatalf("Validate(%q) error = %v", tt.url, err)
			}
			if link.FileType != tt.fileType {
				t.Errorf("expected %s, got %s", tt.fileType, link.FileType)
			}
			if link.ResourceID != tt.id {
				t.Errorf("expected resource id %s, got %s", tt.id, link.ResourceID)
			}
		})
	}

	invalid := []string{
		"",
		"   ",
		"https://example.com/not-drive",
		"http://drive.google.com/file/d/abc123",
		"https://drive.google.com/file/d/",
		"https://docs.google.com/document/d/abc123",
		"drive.google.com/drive/folders/abc",
	}

	for _, raw := range invalid {
		t.Run("rejects "+raw, func(t *testing.T) {
			link, err := Validate(raw)
			if link != nil {
				t.Errorf("expected nil link, got %+v", link)
			}
			if !errors.Is(err, shared.ErrInvalidLink) {
				t.Errorf("expected ErrInvalidLink, got %v", err)
			}
			var verr *shared.ValidationError
			if !errors.As(err, &verr) || verr.Field != "link" {
				t.Errorf("expected link ValidationError, got %v", err)
			}
		})
	}
}

func TestName(t *testing.T) {
	ctx := context.Background()
	file := &Link{FileType: models.FileTypeFile}
	folder := &Link{FileType: models.FileTypeFolder}

	tc := []struct {
		name     string
		link     *Link
		resolver Resolver
		want     string
	}{
		{"nil resolver file", file, nil, "Document"},
		{"nil resolver folder", folder, nil, "Folder"},
		{"resolved", file, stubResolver{name: "report.pdf"}, "report.pdf"},
		{"resolver error", folder, stubResolver{err: errors.New("401")}, "Folder"},
		{"blank name", file, stubResolver{name: " "}, "Document"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(ctx, tt.link, tt.resolver); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}
