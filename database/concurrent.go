package database

import (
	"cmp"
	"slices"

	"github.com/sqldef/dbevolve/util"
	"golang.org/x/sync/errgroup"
)

type orderedOutput[T any] struct {
	order  int
	output T
}

// ConcurrentMapFuncWithError maps f over inputs keeping the input order in the result.
// concurrency == 0 runs sequentially, a negative value means no limit.
func ConcurrentMapFuncWithError[Tin any, Tout any](inputs []Tin, concurrency int, f func(Tin) (Tout, error)) ([]Tout, error) {
	eg := errgroup.Group{}
	switch {
	case concurrency == 0:
		eg.SetLimit(1)
	case concurrency > 0:
		eg.SetLimit(concurrency)
	}

	ch := make(chan orderedOutput[Tout], len(inputs))
	for i, in := range inputs {
		eg.Go(func() error {
			out, err := f(in)
			if err != nil {
				return err
			}
			ch <- orderedOutput[Tout]{order: i, output: out}
			return nil
		})
	}

	err := eg.Wait()
	close(ch)
	if err != nil {
		return nil, err
	}

	collected := make([]orderedOutput[Tout], 0, len(inputs))
	for out := range ch {
		collected = append(collected, out)
	}
	slices.SortFunc(collected, func(a, b orderedOutput[Tout]) int {
		return cmp.Compare(a.order, b.order)
	})

	return util.TransformSlice(collected, func(o orderedOutput[Tout]) Tout {
		return o.output
	}), nil
}
