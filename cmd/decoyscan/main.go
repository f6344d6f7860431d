// Package main provides the entry point for the decoyscan CLI.
//
// decoyscan pretends to run a security scan. While the progress bar moves
// it collects what any untrusted binary could learn about the host, then
// shows the visitor everything it found.
//
// Usage:
//
//	decoyscan run
//	decoyscan history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
