package content

import "sort"

// OpaqueData holds extension data keyed by name. Keys are unique and their
// order carries no meaning.
type OpaqueData map[string]any

// Get returns the value stored under key.
func (d OpaqueData) Get(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

// Keys returns the stored keys in sorted order.
func (d OpaqueData) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Item is the common base of every content object. Content types embed it.
type Item struct {
	Name       string
	Identity   Identity `content:"-"`
	OpaqueData OpaqueData
}

// SetOpaque stores value under key, allocating the map on first use.
func (it *Item) SetOpaque(key string, value any) {
	if it.OpaqueData == nil {
		it.OpaqueData = make(OpaqueData)
	}
	it.OpaqueData[key] = value
}

// ContentItem returns the embedded base item. It lets the pipeline reach the
// identity of any content type without knowing its concrete shape.
func (it *Item) ContentItem() *Item {
	return it
}

// Carrier is implemented by every type that embeds Item.
type Carrier interface {
	ContentItem() *Item
}
