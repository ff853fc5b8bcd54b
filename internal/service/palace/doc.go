// Package palace implements the application service for a memory palace:
// locus queries, card editing, review grading and the review streak.
//
// The service keeps the whole palace in memory, guarded by a single mutex,
// and writes it back through a store.PalaceStore after every mutation. A
// mutation whose save fails is undone in memory before the error is returned,
// so the in-memory palace always matches the last successful save.
package palace
