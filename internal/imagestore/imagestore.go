package imagestore

import (
	"context"
	"io"
)

// Asset is a hosted image: a public URL plus the key needed to delete the
// underlying object later.
type Asset struct {
	URL string
	ID  string
}

type Store interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (*Asset, error)
	Delete(ctx context.Context, assetID string) error
}
