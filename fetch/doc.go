// Package fetch retrieves raw feed payloads over HTTP, one attempt per
// call, classifying failures into the engine's error kinds.
package fetch
