// Package host defines what the typed memory packages need from the language
// runtime that embeds them: the generic property protocol, callable
// invocation and the value coercions. Any of these may run user code, so
// callers re-validate views after every call into a Host.
package host

import "math/big"

// Value is a value owned by the embedding runtime. Typed elements cross this
// boundary as float64 (number kinds) or *big.Int (bigint kinds), and a Host
// must accept both wherever it accepts a Value.
type Value interface{}

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the value of reads that find no element.
var Undefined Value = undefined{} //nolint:gochecknoglobals

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v Value) bool {
	_, ok := v.(undefined)
	return ok
}

// Host is the runtime collaborator the typed memory packages consume.
type Host interface {
	// Get reads obj[index]. Accessors and proxy traps may run.
	Get(obj Value, index int64) (Value, error)
	// Set performs obj[index] = v.
	Set(obj Value, index int64, v Value) error
	// Has reports whether index is a property of obj, including inherited ones.
	Has(obj Value, index int64) (bool, error)
	// Delete removes obj[index].
	Delete(obj Value, index int64) error
	// Length returns ToLength(obj.length).
	Length(obj Value) (int64, error)

	// IsCallable reports whether fn can be passed to Call.
	IsCallable(fn Value) bool
	// Call invokes fn with the given receiver and arguments.
	Call(fn Value, this Value, args ...Value) (Value, error)

	ToNumber(v Value) (float64, error)
	ToBigInt(v Value) (*big.Int, error)
	ToBoolean(v Value) bool
	ToString(v Value) (string, error)

	// StrictEquals is the === comparison, SameValueZero the one used by
	// includes.
	StrictEquals(a, b Value) bool
	SameValueZero(a, b Value) bool
}
