// Package cache implements the checksum-verified LRU that binds
// resolved outputs to their inputs. Keys are BLAKE2b-128 digests of a
// canonical, type-tagged encoding of the format call; values carry a
// checksum over their own content so corruption is detected on read.
package cache

import (
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ftllex/ftllex/core/canon"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/value"
)

// Bounds on canonical key construction. Hash depth stops recursive
// structures; the node budget stops shared-subtree DAGs that are
// shallow but explode when walked.
const (
	maxKeyDepth = 100
	maxKeyNodes = 1 << 15
)

// Key computes the cache key digest for one format call. The argument
// tree is lowered to tagged tuples so that values which collide under
// Go's loose equality stay distinct: bool vs int, int vs decimal, list
// vs map. NaN normalizes to one representative so it cannot mint
// unbounded distinct keys.
func Key(messageID, attribute, localeCode string, useIsolating bool, args map[string]any) (canon.Digest, error) {
	b := &keyBuilder{seen: map[uintptr]struct{}{}}
	canonicalArgs, err := b.lowerMapAny(args)
	if err != nil {
		return canon.Digest{}, err
	}
	return canon.Hash([]any{
		"fmtkey", messageID, attribute, localeCode, useIsolating, canonicalArgs,
	})
}

type keyBuilder struct {
	nodes int
	seen  map[uintptr]struct{} // identity of containers on the current path
}

func (b *keyBuilder) spend() error {
	b.nodes++
	if b.nodes > maxKeyNodes {
		return &diag.UnhashableError{Reason: "argument node budget exceeded"}
	}
	return nil
}

func (b *keyBuilder) lowerMapAny(m map[string]any) (any, error) {
	if m == nil {
		return []any{"map"}, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := []any{"map"}
	for _, k := range keys {
		child, err := b.lower(m[k], 1)
		if err != nil {
			return nil, err
		}
		out = append(out, []any{k, child})
	}
	return out, nil
}

// lower converts one argument value into its tagged canonical form.
func (b *keyBuilder) lower(v any, depth int) (any, error) {
	if err := b.spend(); err != nil {
		return nil, err
	}
	if depth > maxKeyDepth {
		return nil, &diag.UnhashableError{Reason: "argument nesting exceeds depth limit"}
	}

	switch t := v.(type) {
	case nil:
		return []any{"nil"}, nil
	case bool:
		return []any{"bool", t}, nil
	case int:
		return []any{"int", int64(t)}, nil
	case int8:
		return []any{"int", int64(t)}, nil
	case int16:
		return []any{"int", int64(t)}, nil
	case int32:
		return []any{"int", int64(t)}, nil
	case int64:
		return []any{"int", t}, nil
	case uint:
		return []any{"uint", uint64(t)}, nil
	case uint8:
		return []any{"uint", uint64(t)}, nil
	case uint16:
		return []any{"uint", uint64(t)}, nil
	case uint32:
		return []any{"uint", uint64(t)}, nil
	case uint64:
		return []any{"uint", t}, nil
	case float32:
		return lowerFloat(float64(t)), nil
	case float64:
		return lowerFloat(t), nil
	case string:
		return []any{"str", t}, nil
	case decimal.Decimal:
		// Numerically equal int and decimal arguments are semantically
		// distinct; the tag keeps their keys apart.
		return []any{"dec", t.String()}, nil
	case time.Time:
		return []any{"time", t.UnixNano(), t.Location().String()}, nil
	case value.String:
		return []any{"str", t.Val}, nil
	case value.Number:
		if t.IsInt {
			return []any{"int", t.Dec.IntPart()}, nil
		}
		return []any{"dec", t.Dec.String()}, nil
	case value.Datetime:
		return []any{"time", t.Val.UnixNano(), t.Val.Location().String()}, nil
	}

	return b.lowerReflect(reflect.ValueOf(v), depth)
}

// lowerReflect handles container types and rejects everything else.
// Containers are identity-tracked along the current path so circular
// structures fail with a typed error instead of recursing forever.
func (b *keyBuilder) lowerReflect(rv reflect.Value, depth int) (any, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return []any{"nil"}, nil
		}
		return b.lower(rv.Elem().Interface(), depth)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return []any{"list"}, nil
			}
			if err := b.enter(rv.Pointer()); err != nil {
				return nil, err
			}
			defer b.leave(rv.Pointer())
		}
		out := []any{"list"}
		for i := 0; i < rv.Len(); i++ {
			child, err := b.lower(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil

	case reflect.Map:
		if rv.IsNil() {
			return []any{"map"}, nil
		}
		if err := b.enter(rv.Pointer()); err != nil {
			return nil, err
		}
		defer b.leave(rv.Pointer())

		type pair struct {
			key  string
			form any
		}
		pairs := make([]pair, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keyForm, err := b.lower(iter.Key().Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			keyBytes, err := canon.Encode(keyForm)
			if err != nil {
				return nil, &diag.UnhashableError{Reason: err.Error()}
			}
			valForm, err := b.lower(iter.Value().Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair{key: string(keyBytes), form: []any{keyForm, valForm}})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
		out := []any{"map"}
		for _, p := range pairs {
			out = append(out, p.form)
		}
		return out, nil

	default:
		return nil, &diag.UnhashableError{Reason: "unsupported argument type " + rv.Type().String()}
	}
}

func (b *keyBuilder) enter(ptr uintptr) error {
	if _, onPath := b.seen[ptr]; onPath {
		return &diag.UnhashableError{Reason: "circular reference in arguments"}
	}
	b.seen[ptr] = struct{}{}
	return nil
}

func (b *keyBuilder) leave(ptr uintptr) {
	delete(b.seen, ptr)
}

func lowerFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		// One representative for every NaN bit pattern, so NaN != NaN
		// cannot mint unbounded distinct keys.
		return []any{"float", "nan"}
	case math.IsInf(f, 1):
		return []any{"float", "+inf"}
	case math.IsInf(f, -1):
		return []any{"float", "-inf"}
	default:
		return []any{"float", f}
	}
}
