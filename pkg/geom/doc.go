// Package geom provides the small value types shared by every mesh stage:
// vectors, axis-aligned bounds and tolerance-keyed vertex identity.
package geom
