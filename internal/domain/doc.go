// Package domain contains the core entities of the memory palace: review cards
// anchored to loci, the palace document that owns them, and the grades a
// reviewer assigns. It is independent of any storage or transport.
package domain
