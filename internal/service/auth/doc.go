// Package auth issues and validates the HMAC-signed bearer tokens that
// protect the palace API.
package auth
