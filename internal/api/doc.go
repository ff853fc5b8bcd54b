// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the palace service, translating HTTP concerns to palace operations.
package api
