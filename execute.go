package astradoc

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Callback receives the outcome of an operation. When one is given the operation reports its
// error to the callback only, and returns a nil error.
type Callback[T any] func(T, error)

func callbackOf[T any](done []Callback[T]) Callback[T] {
	for _, cb := range done {
		if cb != nil {
			return cb
		}
	}
	return nil
}

// optionsOf returns the options or their zero value
func optionsOf[O any](opts *O) O {
	if opts == nil {
		var zero O
		return zero
	}
	return *opts
}

// execute runs op, logs its failure and hands the outcome to the callback if any
func execute[T any](ctx context.Context, logger hclog.Logger, op func(context.Context) (T, error), done []Callback[T]) (T, error) {

	res, err := op(ctx)
	if err != nil {
		logger.Error(err.Error())
	}

	if cb := callbackOf(done); cb != nil {
		cb(res, err)
		return res, nil
	}

	return res, err
}
