package jsonapi

// ResourceBuilder provides a fluent API for building Resource objects.
type ResourceBuilder struct {
	resource Resource
}

// NewResource creates a new ResourceBuilder with the given type and ID.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{Type: resourceType, ID: id},
	}
}

// Attr adds an attribute to the resource.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	if b.resource.Attributes == nil {
		b.resource.Attributes = make(map[string]any)
	}
	b.resource.Attributes[key] = value
	return b
}

// Relationship adds a relationship to the resource.
func (b *ResourceBuilder) Relationship(name string, rel Relationship) *ResourceBuilder {
	if b.resource.Relationships == nil {
		b.resource.Relationships = make(map[string]Relationship)
	}
	b.resource.Relationships[name] = rel
	return b
}

// BelongsTo adds a to-one relationship. Empty IDs are skipped.
func (b *ResourceBuilder) BelongsTo(name, relType, relID string) *ResourceBuilder {
	if relID == "" {
		return b
	}
	return b.Relationship(name, Relationship{
		Data: ResourceIdentifier{Type: relType, ID: relID},
	})
}

// HasManyIDs adds a to-many relationship.
func (b *ResourceBuilder) HasManyIDs(name, relType string, ids []string) *ResourceBuilder {
	identifiers := make([]ResourceIdentifier, len(ids))
	for i, id := range ids {
		identifiers[i] = ResourceIdentifier{Type: relType, ID: id}
	}
	return b.Relationship(name, Relationship{Data: identifiers})
}

// Meta adds metadata to the resource.
func (b *ResourceBuilder) Meta(key string, value any) *ResourceBuilder {
	if b.resource.Meta == nil {
		b.resource.Meta = make(Meta)
	}
	b.resource.Meta[key] = value
	return b
}

// Link sets the self link for the resource.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.resource.Links = &Links{Self: self}
	return b
}

// Build returns the constructed Resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}
