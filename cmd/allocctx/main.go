// Package main implements the allocctx CLI.
//
// The allocctx tool exercises the allocation context tracker end to end:
// it starts goroutines that enter nested traced scopes, reports synthetic
// allocations to a heap-profile recorder and prints the allocations
// attributed to each context.
//
// Usage:
//
//	allocctx demo --workers 8 --depth 3 --allocs 100
//	allocctx demo --json
//	allocctx version
package main

func main() {
	execute()
}
