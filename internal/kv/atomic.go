package kv

import "time"

// MutationKind is what a Mutation does to its key.
type MutationKind string

const (
	MutationSet    MutationKind = "set"
	MutationSum    MutationKind = "sum"
	MutationDelete MutationKind = "delete"
)

// Check asserts the current versionstamp of Key. "" asserts absence.
type Check struct {
	Key          Key
	Versionstamp string
}

type Mutation struct {
	Kind  MutationKind
	Key   Key
	Value []byte        // set
	Delta uint64        // sum
	TTL   time.Duration // set, 0 = no expiry
}

// AtomicOp collects checks and mutations for one Commit.
//
//	op := kv.NewAtomic().
//		Check(key, "").
//		Set(key, value, 0).
//		Sum(countKey, 1)
type AtomicOp struct {
	Checks    []Check
	Mutations []Mutation
}

func NewAtomic() *AtomicOp { return &AtomicOp{} }

func (op *AtomicOp) Check(key Key, versionstamp string) *AtomicOp {
	op.Checks = append(op.Checks, Check{Key: key, Versionstamp: versionstamp})
	return op
}

func (op *AtomicOp) Set(key Key, value []byte, ttl time.Duration) *AtomicOp {
	op.Mutations = append(op.Mutations, Mutation{Kind: MutationSet, Key: key, Value: value, TTL: ttl})
	return op
}

// Sum adds n to the unsigned counter at key, creating it at 0 when absent.
func (op *AtomicOp) Sum(key Key, n uint64) *AtomicOp {
	op.Mutations = append(op.Mutations, Mutation{Kind: MutationSum, Key: key, Delta: n})
	return op
}

func (op *AtomicOp) Delete(key Key) *AtomicOp {
	op.Mutations = append(op.Mutations, Mutation{Kind: MutationDelete, Key: key})
	return op
}
