// Package drptest provides fixture DRPs and test helpers shared across
// this module's own test suites. It is a test-only package: Counter and
// Register exist to exercise the engine end-to-end (spec §8 scenarios 1
// and 2), the same way babble's own "dummy" app exists purely to drive
// hashgraph/node tests and is never shipped as a product.
package drptest

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/drp/drp"
	"github.com/mosaicnetworks/drp/op"
)

// NewTestLogger adapts logrus output to t.Log, so only failed tests show
// log noise. Grounded directly on common.NewTestLogger.
func NewTestLogger(t testing.TB) *logrus.Entry {
	logger := logrus.New()
	logger.Out = &testLoggerAdapter{t: t}
	logger.Level = logrus.DebugLevel
	return logrus.NewEntry(logger)
}

type testLoggerAdapter struct {
	t testing.TB
}

func (a *testLoggerAdapter) Write(p []byte) (int, error) {
	if len(p) > 0 && p[len(p)-1] == '\n' {
		p = p[:len(p)-1]
	}
	a.t.Log(string(p))
	return len(p), nil
}

/*******************************************************************************
Counter: a MULTIPLE-semantics grow-only counter DRP.
*******************************************************************************/

// Counter is a MULTIPLE-semantics DRP whose only mutation is Increment.
// Concurrent increments never conflict, so its resolver accepts the
// whole concurrent batch unordered-sum-wise (order doesn't matter for a
// commutative add).
type Counter struct {
	Value int
}

var _ drp.DRP = (*Counter)(nil)
var _ drp.QueryDRP = (*Counter)(nil)

// NewCounter returns a Counter starting at zero.
func NewCounter() *Counter { return &Counter{} }

// Increment is the mutating operation (spec §8 scenario 1).
func (c *Counter) Increment(by int) (int, error) {
	c.Value += by
	return c.Value, nil
}

// QueryRead is a pure read: never produces a vertex.
func (c *Counter) QueryRead() int { return c.Value }

func (c *Counter) Descriptors() map[string]drp.Descriptor {
	return map[string]drp.Descriptor{
		"counter.increment": {
			OpType: "counter.increment",
			Fn: func(target drp.DRP, args []interface{}) (interface{}, error) {
				self, ok := target.(*Counter)
				if !ok {
					return nil, fmt.Errorf("drptest: Counter descriptor invoked on %T", target)
				}
				if len(args) != 1 {
					return nil, fmt.Errorf("drptest: counter.increment expects 1 arg, got %d", len(args))
				}
				by, ok := args[0].(int)
				if !ok {
					return nil, fmt.Errorf("drptest: counter.increment expects an int arg, got %T", args[0])
				}
				return self.Increment(by)
			},
		},
	}
}

func (c *Counter) IsQuery(methodName string) bool {
	return methodName == "query_read"
}

func (c *Counter) Clone() drp.DRP {
	return &Counter{Value: c.Value}
}

func (c *Counter) Equal(other drp.DRP) bool {
	o, ok := other.(*Counter)
	return ok && o.Value == c.Value
}

func (c *Counter) ResolveConflicts() drp.Resolver {
	return drp.Resolver{
		Multi: func(ops []op.Operation) ([]op.Operation, error) {
			return ops, nil
		},
	}
}

func (c *Counter) SemanticsType() op.Semantics { return op.Multiple }

/*******************************************************************************
Register: a PAIRWISE-semantics last-writer-wins register DRP.
*******************************************************************************/

// Register is a PAIRWISE-semantics last-writer-wins register. Its
// resolver has no access to vertex timestamps (those live on the
// vertex, not the operation), so "last write wins" here means whichever
// of the two concurrent writes the embedder's own tie-break rule
// prefers; Set wraps the value plus an embedder-supplied priority so the
// resolver can compare two concurrent writes deterministically (spec §8
// scenario 2 uses this to make peer p2's write win).
type Register struct {
	Value    string
	Priority int
}

var _ drp.DRP = (*Register)(nil)
var _ drp.QueryDRP = (*Register)(nil)

// NewRegister returns an empty Register.
func NewRegister() *Register { return &Register{} }

// Set is the mutating operation.
func (r *Register) Set(value string, priority int) (string, error) {
	r.Value = value
	r.Priority = priority
	return r.Value, nil
}

// QueryValue is a pure read.
func (r *Register) QueryValue() string { return r.Value }

func (r *Register) Descriptors() map[string]drp.Descriptor {
	return map[string]drp.Descriptor{
		"register.set": {
			OpType: "register.set",
			Fn: func(target drp.DRP, args []interface{}) (interface{}, error) {
				self, ok := target.(*Register)
				if !ok {
					return nil, fmt.Errorf("drptest: Register descriptor invoked on %T", target)
				}
				if len(args) != 2 {
					return nil, fmt.Errorf("drptest: register.set expects 2 args, got %d", len(args))
				}
				value, ok := args[0].(string)
				if !ok {
					return nil, fmt.Errorf("drptest: register.set expects a string value")
				}
				priority, ok := args[1].(int)
				if !ok {
					return nil, fmt.Errorf("drptest: register.set expects an int priority")
				}
				return self.Set(value, priority)
			},
		},
	}
}

func (r *Register) IsQuery(methodName string) bool {
	return methodName == "query_value"
}

func (r *Register) Clone() drp.DRP {
	return &Register{Value: r.Value, Priority: r.Priority}
}

func (r *Register) Equal(other drp.DRP) bool {
	o, ok := other.(*Register)
	return ok && o.Value == r.Value && o.Priority == r.Priority
}

// ResolveConflicts drops the lower-priority write of each concurrent
// pair. Equal priorities return NoConflict: both writes are kept in the
// pair's deterministic hash order as supplied by the graph package, so
// the one later in hash order is replayed last and its value wins.
func (r *Register) ResolveConflicts() drp.Resolver {
	return drp.Resolver{
		Pair: func(a, b op.Operation) (op.Verdict, error) {
			pa, _ := a.Value[1].(int)
			pb, _ := b.Value[1].(int)
			switch {
			case pa < pb:
				return op.Verdict{Action: op.DropLeft}, nil
			case pb < pa:
				return op.Verdict{Action: op.DropRight}, nil
			default:
				return op.Verdict{Action: op.NoConflict}, nil
			}
		},
	}
}

func (r *Register) SemanticsType() op.Semantics { return op.Pairwise }
