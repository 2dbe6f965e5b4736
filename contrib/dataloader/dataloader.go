// Package dataloader provides generic helpers for batch loading objects by
// key.
//
// Databases return batch results in no particular order. OrderByKeys puts
// them back in the order of the requested keys:
//
//	docs, err := coll.GetMany(ctx, ids)
//	if err != nil {
//	    return nil, err
//	}
//	ordered, errs := dataloader.OrderByKeys(ids, docs, func(d *document.Node) string {
//	    id, _ := document.ID(d)
//	    return id
//	})
package dataloader

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no value in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads the values of a batch of keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// OrderByKeys reorders values to match the order of keys. Missing values
// are represented as zero values with ErrNotFound at their position.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// Chunk splits keys into batches of at most size keys.
func Chunk[K any](keys []K, size int) [][]K {
	if size < 1 {
		size = len(keys)
	}
	var chunks [][]K
	for len(keys) > 0 {
		n := min(size, len(keys))
		chunks = append(chunks, keys[:n:n])
		keys = keys[n:]
	}
	return chunks
}

// LoadAll loads keys in batches of at most size keys and returns the
// values in the order of keys.
func LoadAll[K comparable, V any](ctx context.Context, keys []K, size int, batch BatchFunc[K, V], keyFn KeyFunc[K, V]) ([]V, []error, error) {
	var values []V
	for _, chunk := range Chunk(keys, size) {
		vs, err := batch(ctx, chunk)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, vs...)
	}
	ordered, errs := OrderByKeys(keys, values, keyFn)
	return ordered, errs, nil
}
