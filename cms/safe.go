package cms

import (
	"context"
	"encoding/json"
	"fmt"
)

// SafeCall runs a collection query and normalizes its outcome: the objects
// in remote order on success, an empty slice on not-found, ErrFetchFailed
// (after logging the cause once) on anything else.
func SafeCall[T any](logger Logger, call func() (*ListResponse[T], error)) ([]T, error) {
	resp, err := call()
	switch Classify(err) {
	case OutcomeNotFound:
		return []T{}, nil
	case OutcomeFailure:
		logger.Errorf("Cosmic API error: %v", err)
		return nil, ErrFetchFailed
	}
	if resp == nil || resp.Objects == nil {
		return []T{}, nil
	}
	return resp.Objects, nil
}

// SafeCallSingle is SafeCall for single-object queries. Not-found yields
// found == false with a nil error, so callers can answer 404 only when the
// object does not exist.
func SafeCallSingle[T any](logger Logger, call func() (*ObjectResponse[T], error)) (v T, found bool, err error) {
	resp, err := call()
	switch Classify(err) {
	case OutcomeNotFound:
		return v, false, nil
	case OutcomeFailure:
		logger.Errorf("Cosmic API error: %v", err)
		return v, false, ErrFetchFailed
	}
	if resp == nil {
		return v, false, nil
	}
	return resp.Object, true, nil
}

// Fetch returns every object of T's kind matching q. q.Type is set from T.
func Fetch[T Entity](ctx context.Context, c *Client, q Query) ([]T, error) {
	var zero T
	q.Type = zero.Kind()
	return SafeCall(c.logger, func() (*ListResponse[T], error) {
		raw, err := c.Find(ctx, q)
		if err != nil {
			return nil, err
		}
		out := &ListResponse[T]{Objects: make([]T, 0, len(raw.Objects)), Total: raw.Total}
		for i, r := range raw.Objects {
			var v T
			if err := json.Unmarshal(r, &v); err != nil {
				return nil, fmt.Errorf("cms: %s[%d]: %w", q.Type, i, err)
			}
			out.Objects = append(out.Objects, v)
		}
		return out, nil
	})
}

// FetchOne returns the first object of T's kind matching q.
func FetchOne[T Entity](ctx context.Context, c *Client, q Query) (T, bool, error) {
	var zero T
	q.Type = zero.Kind()
	return SafeCallSingle(c.logger, func() (*ObjectResponse[T], error) {
		raw, err := c.FindOne(ctx, q)
		if err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw.Object, &v); err != nil {
			return nil, fmt.Errorf("cms: %s: %w", q.Type, err)
		}
		return &ObjectResponse[T]{Object: v}, nil
	})
}

// FetchAny is Fetch for a type chosen at run time. Each object is decoded
// by its own type tag.
func FetchAny(ctx context.Context, c *Client, q Query) ([]Entity, error) {
	return SafeCall(c.logger, func() (*ListResponse[Entity], error) {
		raw, err := c.Find(ctx, q)
		if err != nil {
			return nil, err
		}
		out := &ListResponse[Entity]{Objects: make([]Entity, 0, len(raw.Objects)), Total: raw.Total}
		for i, r := range raw.Objects {
			e, err := DecodeEntity(r)
			if err != nil {
				return nil, fmt.Errorf("cms: %s[%d]: %w", q.Type, i, err)
			}
			if e.Kind() != q.Type {
				return nil, fmt.Errorf("%w: %s[%d] tagged %q", ErrMalformed, q.Type, i, e.Kind())
			}
			out.Objects = append(out.Objects, e)
		}
		return out, nil
	})
}
