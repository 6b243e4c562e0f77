// Package formdef parses dynamic form definitions: the ordered field
// descriptors, validation rules and conditional logic a form renderer
// receives once per render.
//
// Definitions are JSON or YAML documents, optionally checked against an
// embedded JSON Schema, loaded from files, fs.FS entries or HTTP endpoints, or
// derived from an OpenAPI request body. A parsed Definition is read-only and
// indexes which fields depend on which rule sources.
package formdef
