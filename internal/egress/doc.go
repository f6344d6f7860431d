// Package egress builds the HTTP clients used for every outbound lookup.
//
// Lookups can leave the host directly, through a SOCKS5 proxy, or through an
// embedded Tor daemon started with tornago. The STUN leak probe never uses
// these clients; it always leaves directly.
package egress
