// Package client talks to the docvault gRPC endpoint on behalf of the CLI.
//
// GRPCClient keeps the caller's tokens in memory, attaches the current one
// to every call and transparently rotates an expired access token using the
// refresh token. Transport failures are reported as ErrUnavailable and
// rejected credentials as ErrUnauthorized; other server errors keep the
// server's message.
package client
