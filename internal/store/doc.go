// Package store defines interfaces for palace persistence.
// These interfaces keep the palace service independent of whether the palace
// lives in a JSON document on disk or in a relational database.
package store
