// Package attempt drives one worker's pass over its shard.
//
// A Runner takes a ledger snapshot once, walks the shard's records in input
// order, asks the resume gate what to do with each, hands fresh records to a
// Processor and appends the outcome to the ledger. Processing failures stay
// local to the record. Malformed input and ledger failures end the attempt
// with an error. An optional wall-clock budget is checked after every
// processed record and ends the attempt cleanly.
package attempt
