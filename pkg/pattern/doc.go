// Package pattern defines the inputs of mesh generation: the boolean dot
// grid supplied by the pattern editor and the parameter set supplied by the
// parameter form. Both are validated here, before any geometry work starts.
package pattern
