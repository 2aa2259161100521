package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrEmptyCatalog  = errors.New("catalog has no categories")
	ErrEmptyCategory = errors.New("catalog category has no players")
)

// Item is a single lot put up for auction.
type Item struct {
	Name      string `json:"name"`
	BasePrice int    `json:"basePrice"`
}

// Category groups items that are auctioned back to back.
type Category struct {
	Name    string `json:"category"`
	Players []Item `json:"players"`
}

// Catalog is the immutable, ordered list of categories driving an auction.
// Traversal order is the order in which items go under the hammer.
type Catalog struct {
	categories []Category
}

// Cursor points at one item of a catalog.
type Cursor struct {
	Category int `json:"category"`
	Item     int `json:"item"`
}

// Lot is an item together with the label of the category it belongs to.
type Lot struct {
	Item
	Category string
}

// fileCategory is the on-disk shape. Older data files label categories with
// "name" instead of "category"; both are accepted and "category" wins.
type fileCategory struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Players  []Item `json:"players"`
}

type file struct {
	Categories []fileCategory `json:"categories"`
}

// New validates categories and returns a catalog that owns a copy of them.
func New(categories []Category) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyCatalog
	}

	owned := make([]Category, len(categories))
	for i, c := range categories {
		if len(c.Players) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrEmptyCategory, c.Name)
		}
		owned[i] = Category{
			Name:    c.Name,
			Players: append([]Item(nil), c.Players...),
		}
	}
	return &Catalog{categories: owned}, nil
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	categories := make([]Category, 0, len(f.Categories))
	for _, fc := range f.Categories {
		label := strings.TrimSpace(fc.Category)
		if label == "" {
			label = strings.TrimSpace(fc.Name)
		}
		categories = append(categories, Category{Name: label, Players: fc.Players})
	}
	return New(categories)
}

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// First returns the cursor of the first item.
func (c *Catalog) First() Cursor {
	return Cursor{}
}

// Next returns the cursor following cur, rolling into the next category when
// the current one is exhausted. ok is false once the catalog is exhausted.
func (c *Catalog) Next(cur Cursor) (Cursor, bool) {
	next := Cursor{Category: cur.Category, Item: cur.Item + 1}
	if next.Item >= len(c.categories[cur.Category].Players) {
		next = Cursor{Category: cur.Category + 1}
	}
	if next.Category >= len(c.categories) {
		return Cursor{}, false
	}
	return next, true
}

// Lot returns the item at cur.
func (c *Catalog) Lot(cur Cursor) (Lot, bool) {
	if cur.Category < 0 || cur.Category >= len(c.categories) {
		return Lot{}, false
	}
	category := c.categories[cur.Category]
	if cur.Item < 0 || cur.Item >= len(category.Players) {
		return Lot{}, false
	}
	return Lot{Item: category.Players[cur.Item], Category: category.Name}, true
}

// Len returns the total number of items.
func (c *Catalog) Len() int {
	n := 0
	for _, category := range c.categories {
		n += len(category.Players)
	}
	return n
}

// Categories returns a copy of the categories in auction order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, category := range c.categories {
		out[i] = Category{Name: category.Name, Players: append([]Item(nil), category.Players...)}
	}
	return out
}
