// Package jsonfile persists a palace as a single JSON document on disk.
//
// Field names follow the established save format (palaceId,
// cards[].dueIsoUtc, ...) so existing save files load unchanged.
package jsonfile
