package fetch

import (
	"context"
)

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Parser[T any] interface {
	Parse(url string, b []byte) (T, error)
}

type ParserFunc[T any] func(url string, b []byte) (T, error)

func (f ParserFunc[T]) Parse(url string, b []byte) (T, error) {
	return f(url, b)
}

type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

func Get[T any](ctx context.Context, f Fetcher, url string, p Parser[T]) (T, error) {
	b, err := f.Fetch(ctx, url)
	if nil != err {
		var zero T
		return zero, err
	}

	return p.Parse(url, b)
}
