package topic

import (
	"strings"
)

// Builder constructs MQTT topic strings under a common root namespace.
type Builder struct {
	// root is the base namespace for all topics (e.g., "dronecontrol/v1").
	root string
}

// NewBuilder creates a new Builder with the specified root namespace.
// Leading and trailing slashes of root are dropped.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, "/")}
}

// Build returns {root}/{segment}/{id}.
func (b *Builder) Build(segment, id string) string {
	return b.root + "/" + segment + "/" + id
}

// BuildWildcard returns {root}/{segment}/+, matching every vehicle.
func (b *Builder) BuildWildcard(segment string) string {
	return b.Build(segment, Wildcard)
}

// Parse splits a topic built by Build back into its segment and id.
// ok is false when topic is outside the root namespace.
func (b *Builder) Parse(topic string) (segment, id string, ok bool) {
	rest, found := strings.CutPrefix(topic, b.root+"/")
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
