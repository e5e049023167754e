package table

import "github.com/hupe1980/svmap/internal/aliasing"

// OpKind identifies the mutation an Operation carries.
type OpKind uint8

const (
	OpInsert OpKind = iota
	OpRemove
	OpClear
	OpMutate
	OpMarkReady
	OpSetMeta
)

// String returns the lower-case name of the kind.
func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpClear:
		return "clear"
	case OpMutate:
		return "mutate"
	case OpMarkReady:
		return "mark_ready"
	case OpSetMeta:
		return "set_meta"
	default:
		return "unknown"
	}
}

// Operation is one logged mutation. Only the fields relevant to Kind are set.
type Operation[K comparable, V, R, M, O any] struct {
	Kind OpKind
	Key  K
	Mut  V
	Ref  aliasing.Aliased[R]
	Op   O
	Meta M
}

// Insert stores mut and a fresh handle over ref under key.
func Insert[K comparable, V, R, M, O any](key K, mut V, ref R) Operation[K, V, R, M, O] {
	return Operation[K, V, R, M, O]{Kind: OpInsert, Key: key, Mut: mut, Ref: aliasing.New(ref)}
}

// Remove deletes key.
func Remove[K comparable, V, R, M, O any](key K) Operation[K, V, R, M, O] {
	return Operation[K, V, R, M, O]{Kind: OpRemove, Key: key}
}

// Clear deletes every entry.
func Clear[K comparable, V, R, M, O any]() Operation[K, V, R, M, O] {
	return Operation[K, V, R, M, O]{Kind: OpClear}
}

// Mutate applies op to the mutable part stored under key.
func Mutate[K comparable, V, R, M, O any](key K, op O) Operation[K, V, R, M, O] {
	return Operation[K, V, R, M, O]{Kind: OpMutate, Key: key, Op: op}
}

// MarkReady makes the table visible to readers.
func MarkReady[K comparable, V, R, M, O any]() Operation[K, V, R, M, O] {
	return Operation[K, V, R, M, O]{Kind: OpMarkReady}
}

// SetMeta replaces the metadata.
func SetMeta[K comparable, V, R, M, O any](meta M) Operation[K, V, R, M, O] {
	return Operation[K, V, R, M, O]{Kind: OpSetMeta, Meta: meta}
}
