// Package shell drives the fake scan shown to the visitor.
//
// The animation runs on its own ticker and never waits for collection.
// When it reaches 100% the shell renders whatever report the pipeline has
// published to the Holder so far. The two only share that holder; if
// nothing has been published yet the caller renders after collection.
package shell
