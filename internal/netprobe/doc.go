// Package netprobe discovers the addresses a host exposes to the outside.
//
// AddressResolver asks a fixed list of public IP echo services for the
// address they observe and returns the first well-formed answer. LeakProbe
// opens a short-lived STUN negotiation session and collects every IPv4
// candidate it surfaces within a bounded window: host interface addresses
// and server-reflexive addresses that bypass any HTTP proxy or VPN route.
//
// Neither component returns errors. Failures are logged and produce an
// absent result.
package netprobe
