package policies

import (
	"context"
	"io"
)

// CalendarArchive stores exported calendar files and returns where they can
// be fetched from.
type CalendarArchive interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (publicURL string, err error)
}
