package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/artpar/simpleschema/app"
	"github.com/artpar/simpleschema/core/adapter"
	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/core/field"
	"github.com/artpar/simpleschema/core/formatter"
	"github.com/artpar/simpleschema/core/schema"
	"github.com/artpar/simpleschema/pkg/jsonapi"
)

// Resource types.
const (
	TypeCollection = "collections"
	TypeRef        = "refs"
	TypeUnresolved = "unresolved-joins"
)

// maxSchemaBytes bounds POST /compile bodies.
const maxSchemaBytes = 4 << 20

// Catalog is the part of app.Catalog the handlers need.
type Catalog interface {
	Current() *app.Snapshot
	Build(source string, s schema.Schema) (*app.Snapshot, error)
	Reload() error
	Adapter() adapter.Adapter
}

// Handler serves the compiled schema.
type Handler struct {
	catalog Catalog
	logger  zerolog.Logger
	version string
}

// NewHandler creates a handler over catalog.
func NewHandler(catalog Catalog, logger zerolog.Logger, version string) *Handler {
	if version == "" {
		version = "dev"
	}
	return &Handler{catalog: catalog, logger: logger, version: version}
}

// Health reports ok once a schema has been compiled.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.Current()
	if snap == nil {
		jsonapi.WriteError(w, jsonapi.ErrServiceUnavailable("no schema compiled yet"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "ok",
		"revision": snap.Revision,
	})
}

// Version returns the service version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version": h.version,
		"service": "simpleschema",
	})
}

// ListCollections returns every compiled collection. With ?format=table|yaml|json
// the response is rendered by the named formatter instead of JSON:API.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	if name := r.URL.Query().Get("format"); name != "" {
		h.writeFormatted(w, name, snap.Docs())
		return
	}

	resources := make([]jsonapi.Resource, len(snap.Result.Collections))
	for i, c := range snap.Result.Collections {
		resources[i] = collectionResource(c)
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, snapshotMeta(snap))
}

// GetCollection returns one compiled collection by slug.
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	slug := chi.URLParam(r, "slug")
	c, found := snap.Collection(slug)
	if !found {
		jsonapi.WriteNotFound(w, "collection", slug)
		return
	}

	if name := r.URL.Query().Get("format"); name != "" {
		h.writeFormatted(w, name, []compiler.CollectionDoc{compiler.ExportCollection(c)})
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, collectionResource(c), snapshotMeta(snap))
}

// ListRefs returns the collection reference handles.
func (h *Handler) ListRefs(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	// Declaration order, not map order.
	resources := make([]jsonapi.Resource, 0, len(snap.Bundle.Collections))
	for _, name := range snap.Schema.Names() {
		ref, ok := snap.Bundle.Collections[name]
		if !ok {
			continue
		}
		resources = append(resources, jsonapi.NewResource(TypeRef, name).
			Attr("collectionName", ref.CollectionName).
			Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, snapshotMeta(snap))
}

// ListUnresolved returns the joins dropped by the last compilation.
func (h *Handler) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	jsonapi.WriteCollection(w, http.StatusOK, unresolvedResources(snap.Result.Unresolved), snapshotMeta(snap))
}

// GetAdapter returns the database adapter configuration.
func (h *Handler) GetAdapter(w http.ResponseWriter, r *http.Request) {
	db := h.catalog.Adapter()
	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("adapters", db.Adapter).
		Attr("adapter", db.Adapter).
		Attr("url", db.URL).
		Build(), nil)
}

// Compile compiles the YAML or JSON schema in the request body without
// installing it.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !acceptedMediaType(ct) {
		jsonapi.WriteError(w, jsonapi.ErrUnsupportedMediaType(ct))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSchemaBytes+1))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read request body")
		jsonapi.WriteBadRequest(w, "Failed to read request body")
		return
	}
	if len(body) > maxSchemaBytes {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusRequestEntityTooLarge, "too_large", "Request Entity Too Large").
			Detailf("Schema exceeds %d bytes", maxSchemaBytes).
			Build())
		return
	}

	// Shape errors are 400; Build reports validation errors as 422.
	s, err := schema.Decode(body)
	if err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}

	snap, err := h.catalog.Build("request", s)
	if err != nil {
		jsonapi.WriteError(w, validationErrors(err)...)
		return
	}

	resources := make([]jsonapi.Resource, len(snap.Result.Collections))
	for i, c := range snap.Result.Collections {
		resources[i] = collectionResource(c)
	}

	meta := snapshotMeta(snap)
	meta["unresolved"] = unresolvedResources(snap.Result.Unresolved)
	jsonapi.WriteCollection(w, http.StatusOK, resources, meta)
}

// Reload recompiles the schema file.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(); err != nil {
		if errors.Is(err, app.ErrNoSchema) {
			jsonapi.WriteError(w, jsonapi.ErrServiceUnavailable(err.Error()))
			return
		}
		jsonapi.WriteError(w, validationErrors(err)...)
		return
	}

	snap := h.catalog.Current()
	jsonapi.WriteMeta(w, http.StatusOK, snapshotMeta(snap))
}

func (h *Handler) snapshot(w http.ResponseWriter) (*app.Snapshot, bool) {
	snap := h.catalog.Current()
	if snap == nil {
		jsonapi.WriteError(w, jsonapi.ErrServiceUnavailable("no schema compiled yet"))
		return nil, false
	}
	return snap, true
}

func (h *Handler) writeFormatted(w http.ResponseWriter, name string, docs []compiler.CollectionDoc) {
	f, ok := formatter.Get(name)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter("format", "unknown format "+name))
		return
	}

	switch name {
	case "json":
		w.Header().Set("Content-Type", "application/json")
	case "yaml":
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}

	if err := f.FormatCollections(w, docs, formatter.FormatOptions{}); err != nil {
		h.logger.Error().Err(err).Str("format", name).Msg("failed to format collections")
	}
}

func collectionResource(c compiler.Collection) jsonapi.Resource {
	doc := compiler.ExportCollection(c)

	b := jsonapi.NewResource(TypeCollection, c.Slug).
		Attr("slug", doc.Slug).
		Attr("fields", doc.Fields).
		Link("/collections/" + c.Slug)

	for _, f := range c.Fields {
		target, ok := field.RelationTarget(f)
		if !ok {
			continue
		}
		if field.CardinalityOf(f) == field.Many {
			b.HasManyIDs(f.FieldName(), TypeCollection, []string{target})
		} else {
			b.BelongsTo(f.FieldName(), TypeCollection, target)
		}
	}

	return b.Build()
}

func unresolvedResources(unresolved []compiler.Unresolved) []jsonapi.Resource {
	resources := make([]jsonapi.Resource, len(unresolved))
	for i, u := range unresolved {
		resources[i] = jsonapi.NewResource(TypeUnresolved, u.Collection+"."+u.Join).
			Attr("collection", u.Collection).
			Attr("join", u.Join).
			Attr("target", u.Target).
			Attr("sourceField", u.SourceField).
			Attr("reason", string(u.Reason)).
			Build()
	}
	return resources
}

func snapshotMeta(snap *app.Snapshot) jsonapi.Meta {
	return jsonapi.Meta{
		"revision":   snap.Revision,
		"compiledAt": snap.CompiledAt.Format(time.RFC3339),
	}
}

// validationErrors expands an aggregated schema error into one entry per cause.
func validationErrors(err error) []jsonapi.Error {
	var merr *multierror.Error
	if errors.As(err, &merr) && len(merr.Errors) > 0 {
		out := make([]jsonapi.Error, len(merr.Errors))
		for i, e := range merr.Errors {
			out[i] = jsonapi.ErrInvalidSchema(e.Error())
		}
		return out
	}
	return []jsonapi.Error{jsonapi.ErrInvalidSchema(err.Error())}
}

func acceptedMediaType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mt {
	case "application/json", "application/yaml", "application/x-yaml",
		"text/yaml", "text/x-yaml", "text/plain", jsonapi.ContentType:
		return true
	}
	return false
}
