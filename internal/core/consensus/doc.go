// Package consensus turns a poll snapshot into a decision.
//
// Dedupe and Tally form the vote aggregator: raw votes are collapsed to one
// per voter identity (last in storage order wins) and counted per slot.
// Resolve applies quorum, the poll mode and the deadline to those counts.
// Nothing here performs I/O; every function is deterministic for its input.
package consensus
