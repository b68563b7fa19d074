package xenocanto

import (
	"context"
	"strings"
)

// Iterator walks catalog result pages lazily in ascending page order, so a
// given query always yields the same descriptor sequence. It follows the
// bufio.Scanner idiom:
//
//	it := client.Search(query)
//	for it.Next(ctx) {
//	    rec := it.Recording()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	client *Client
	query  Query

	page     int
	numPages int
	buf      []Recording
	pos      int
	yielded  int
	seen     map[string]struct{}
	current  *Recording
	err      error
	done     bool
}

// Next advances to the next descriptor, fetching pages on demand. It returns
// false when the sequence is exhausted or a fatal error occurred.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}
	if it.seen == nil {
		it.seen = make(map[string]struct{})
	}

	for {
		if it.query.MaxResults > 0 && it.yielded >= it.query.MaxResults {
			it.done = true
			return false
		}

		for it.pos < len(it.buf) {
			rec := it.buf[it.pos]
			it.pos++
			id := strings.TrimSpace(rec.ID)
			if id == "" {
				continue
			}
			if _, dup := it.seen[id]; dup {
				continue
			}
			it.seen[id] = struct{}{}
			it.current = &rec
			it.yielded++
			return true
		}

		if !it.fetchNextPage(ctx) {
			return false
		}
	}
}

// fetchNextPage loads the next result page into the buffer. It reports false
// when paging is finished or failed.
func (it *Iterator) fetchNextPage(ctx context.Context) bool {
	if it.numPages > 0 && it.page > it.numPages {
		it.done = true
		return false
	}

	// Courtesy pause between pages; never before the first.
	if it.page > 1 && it.client.cfg.PagePause > 0 {
		if err := it.client.sleeper(ctx, it.client.cfg.PagePause); err != nil {
			it.err = err
			return false
		}
	}

	resp, err := it.client.fetchPage(ctx, it.query, it.page)
	if err != nil {
		it.err = err
		return false
	}

	if len(resp.Recordings) == 0 {
		it.done = true
		return false
	}

	it.buf = resp.Recordings
	it.pos = 0
	it.numPages = int(resp.NumPages)
	it.page++
	return true
}

// Recording returns the descriptor produced by the last successful Next call.
func (it *Iterator) Recording() *Recording {
	return it.current
}

// Err returns the fatal error that terminated iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}
