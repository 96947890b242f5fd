package testing

import (
	"time"

	"github.com/marmos91/dittodocs/pkg/catalog"
)

// NewEntry builds an entry rooted at /data/<name>.
func NewEntry(name, hash string, updated time.Time) *catalog.Entry {
	return &catalog.Entry{
		Name:       name,
		SchemaHash: hash,
		Root:       "/data/" + name,
		UpdatedAt:  updated,
	}
}
