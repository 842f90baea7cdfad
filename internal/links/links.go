// Package links classifies Google Drive URLs as file or folder links.
package links

import (
	"context"
	"regexp"
	"strings"

	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
)

var (
	filePattern   = regexp.MustCompile(`^https://drive\.google\.com/file/d/([A-Za-z0-9_-]+)`)
	folderPattern = regexp.MustCompile(`^https://drive\.google\.com/drive/folders/([A-Za-z0-9_-]+)`)
)

// Link is a validated Drive link.
type Link struct {
	URL        string
	FileType   models.FileType
	ResourceID string
}

// Resolver looks up a display name for a link, typically through the Drive API.
type Resolver interface {
	ResolveName(ctx context.Context, link *Link) (string, error)
}

// Validate trims raw and classifies it. No network access is performed.
//
// Anything other than a Drive file or folder URL returns a [shared.ValidationError] wrapping [shared.ErrInvalidLink].
func Validate(raw string) (*Link, error) {
	url := strings.TrimSpace(raw)
	if url == "" {
		return nil, &shared.ValidationError{Field: "link", Message: "no link provided", Err: shared.ErrInvalidLink}
	}

	if m := filePattern.FindStringSubmatch(url); m != nil {
		return &Link{URL: url, FileType: models.FileTypeFile, ResourceID: m[1]}, nil
	}
	if m := folderPattern.FindStringSubmatch(url); m != nil {
		return &Link{URL: url, FileType: models.FileTypeFolder, ResourceID: m[1]}, nil
	}

	return nil, &shared.ValidationError{
		Field:   "link",
		Message: "please enter a valid Google Drive URL",
		Err:     shared.ErrInvalidLink,
	}
}

// DefaultName is the display label used when no resolver is available.
func DefaultName(t models.FileType) string {
	if t == models.FileTypeFolder {
		return "Folder"
	}
	return "Document"
}

// Name resolves the display label for l, falling back to [DefaultName] when resolver is nil or fails.
func Name(ctx context.Context, l *Link, resolver Resolver) string {
	if resolver == nil {
		return DefaultName(l.FileType)
	}
	name, err := resolver.ResolveName(ctx, l)
	if err != nil || strings.TrimSpace(name) == "" {
		return DefaultName(l.FileType)
	}
	return name
}
