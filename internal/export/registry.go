package export

import "strings"

// Registry assigns class indices to label names in first-seen order.
// COCO uses base 1, YOLO base 0.
type Registry struct {
	base       int
	index      map[string]int
	names      []string
	colors     map[string]string
	categories map[string]string
}

func NewRegistry(base int) *Registry {
	return &Registry{
		base:       base,
		index:      make(map[string]int),
		colors:     make(map[string]string),
		categories: make(map[string]string),
	}
}

// BuildRegistry registers every annotation of s in traversal order. Running it
// twice over the same snapshot yields identical indices.
func BuildRegistry(s Snapshot, base int) *Registry {
	r := NewRegistry(base)
	s.Visit(func(_ int, _ Image, a Annotation) {
		r.Register(a.Name)
		name := canonicalName(a.Name)
		if _, ok := r.colors[name]; !ok {
			r.colors[name] = colorOf(a)
		}
		if _, ok := r.categories[name]; !ok {
			cat := DefaultCategory
			if l, ok := s.label(a.LabelID); ok {
				cat = categoryOf(l)
			}
			r.categories[name] = cat
		}
	})
	return r
}

// Register returns the class index of n, assigning the next one on first sight.
// Blank names share the "unlabeled" class.
func (r *Registry) Register(n string) int {
	name := canonicalName(n)
	if i, ok := r.index[name]; ok {
		return i
	}
	i := r.base + len(r.names)
	r.index[name] = i
	r.names = append(r.names, name)
	return i
}

func (r *Registry) Index(n string) (int, bool) {
	i, ok := r.index[canonicalName(n)]
	return i, ok
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Len() int { return len(r.names) }

func (r *Registry) Color(n string) string {
	if c, ok := r.colors[canonicalName(n)]; ok {
		return c
	}
	return DefaultColor
}

func (r *Registry) Category(n string) string {
	if c, ok := r.categories[canonicalName(n)]; ok {
		return c
	}
	return DefaultCategory
}

func canonicalName(n string) string {
	n = strings.TrimSpace(n)
	if n == "" {
		return unlabeled
	}
	return n
}
