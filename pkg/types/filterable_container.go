package types

// FilterableContainer defines an interface for container filtering.
type FilterableContainer interface {
	Name() string              // Container name.
	Labels() map[string]string // Container labels.
	ImageName() string         // Image name with tag.
}
