// Package config handles collector configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// The package supports multiple GTFS feeds, derives the feed descriptors
// the collection pipeline runs on, and folds a small set of environment
// toggles over the file.
package config
