package api

import (
	"context"

	"github.com/apimgr/idealista/src/model"
)

// Pager pulls successive pages of a search as a single logical stream,
// starting at the query's page number. A Pager is not restartable. Pages
// already returned by Next stand even when a later page fails.
type Pager struct {
	// MaxPages bounds the number of pages fetched when iterating all
	// pages; 0 means no limit.
	MaxPages int

	client     *Client
	query      model.SearchQuery
	allPages   bool
	page       int
	totalPages int
	fetched    int
	started    bool
	done       bool
}

// Pages creates a page iterator for the query, starting at query.NumPage.
// With allPages false, exactly that one page is fetched regardless of the
// result's total.
func (c *Client) Pages(query model.SearchQuery, allPages bool) *Pager {
	start := query.NumPage
	if start < 1 {
		start = 1
	}
	return &Pager{
		client:   c,
		query:    query,
		allPages: allPages,
		page:     start,
	}
}

// HasMore reports whether another page can be fetched.
func (p *Pager) HasMore() bool {
	if p.done {
		return false
	}
	if !p.started {
		return true
	}
	if p.MaxPages > 0 && p.fetched >= p.MaxPages {
		return false
	}
	return p.page <= p.totalPages
}

// Next fetches the next page. It ensures token validity before each call,
// since a long run may outlive the token. Returns (nil, nil) once the
// stream is exhausted. A page with zero listings terminates the stream
// even when the reported totalPages disagrees.
func (p *Pager) Next(ctx context.Context) (*model.SearchPage, error) {
	if !p.HasMore() {
		return nil, nil
	}

	page, err := p.client.Search(ctx, p.query.WithPage(p.page))
	if err != nil {
		p.done = true
		return nil, err
	}

	p.started = true
	p.totalPages = page.TotalPages
	p.fetched++
	p.page++

	if !p.allPages || len(page.ElementList) == 0 {
		p.done = true
	}
	return page, nil
}

// Collect drains the pager into one listing slice. The returned page is the
// last one fetched, carrying the totals. On a mid-run failure the listings
// gathered so far are returned alongside the error; prior output stands.
func (c *Client) Collect(ctx context.Context, query model.SearchQuery, allPages bool, maxPages int) ([]model.Listing, *model.SearchPage, error) {
	pager := c.Pages(query, allPages)
	pager.MaxPages = maxPages

	var listings []model.Listing
	var last *model.SearchPage

	for pager.HasMore() {
		page, err := pager.Next(ctx)
		if err != nil {
			return listings, last, err
		}
		if page == nil {
			break
		}
		listings = append(listings, page.ElementList...)
		last = page
	}
	return listings, last, nil
}
