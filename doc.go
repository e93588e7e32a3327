// Package rpools provides a fixed-size pool of persistent worker goroutines
// fed by an unbounded dispatch queue, together with a reusable WaitGroup
// primitive for synchronizing with submitted work.
package rpools
