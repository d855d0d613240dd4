package fetch

import (
	"context"
	"sync"
)

// Request is one unit of work for the pool. ID is an opaque caller key
// carried through to the matching Result.
type Request struct {
	ID           string
	URL          string
	ETag         string
	LastModified string
}

// Result pairs a completed request with its response or error. Results
// arrive in completion order, not submission order.
type Result struct {
	Request  Request
	Response *Response
	Err      error
}

// Pool fans fetch requests out over a bounded number of workers sharing
// one Client. The global in-flight bound equals the worker count.
type Pool struct {
	client      *Client
	concurrency int
}

func NewPool(client *Client, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{client: client, concurrency: concurrency}
}

// Run consumes requests until the channel is closed or the context is
// cancelled, and closes the returned channel once all workers have
// drained. In-flight fetches finish (or time out) before shutdown.
func (p *Pool) Run(ctx context.Context, requests <-chan Request) <-chan Result {
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case req, ok := <-requests:
					if !ok {
						return
					}
					resp, err := p.client.GetConditional(ctx, req.URL, req.ETag, req.LastModified)
					select {
					case results <- Result{Request: req, Response: resp, Err: err}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// FetchAll is a convenience wrapper around Run for a fixed slice of
// requests.
func (p *Pool) FetchAll(ctx context.Context, reqs []Request) <-chan Result {
	requests := make(chan Request)
	go func() {
		defer close(requests)
		for _, req := range reqs {
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
		}
	}()
	return p.Run(ctx, requests)
}
