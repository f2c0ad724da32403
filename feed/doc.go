// Package feed defines the vocabulary shared across the collection engine:
// feed kinds, feed descriptors, and the typed ingestion error.
package feed
