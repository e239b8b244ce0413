package cache

import (
	"time"

	"github.com/matheuskafuri/phnews/internal/model"
)

// List names a cached listing.
const (
	ListFrontpage = "frontpage"
	ListTrending  = "trending"
)

// Entry is a product as stored in one listing.
type Entry struct {
	Product   model.Product
	List      string
	Position  int
	FetchedAt time.Time
	Summary   string
	Tags      string
}

type QueryOpts struct {
	List   string
	Since  time.Time
	Topics []string // topic slugs, any match
	Search string
	Limit  int
}
