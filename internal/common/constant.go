// Package common contains shared constants and sentinel errors used across
// docvault components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry a bearer
// token on inbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is the standard metadata key accepted as an
// alternative to AccessTokenHeaderName ("Bearer <token>").
const AuthorizationHeaderName = "authorization"
