package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apimgr/idealista/src/model"
)

// fakeAPI serves the token endpoint and a search endpoint whose per-page
// behavior is supplied by the test.
type fakeAPI struct {
	tokenHits  int
	searchHits int
	search     func(w http.ResponseWriter, r *http.Request, hit int)
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == TokenPath:
			f.tokenHits++
			w.Write([]byte(tokenJSON))
		case strings.HasSuffix(r.URL.Path, "/search"):
			f.searchHits++
			f.search(w, r, f.searchHits)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})
}

// pageBody builds a search response with count listings.
func pageBody(actual, totalPages, total, count int) []byte {
	listings := make([]map[string]any, count)
	for i := range listings {
		listings[i] = map[string]any{
			"propertyType": "homes",
			"price":        float64(100000 + i),
		}
	}
	body, _ := json.Marshal(map[string]any{
		"elementList":  listings,
		"total":        total,
		"totalPages":   totalPages,
		"actualPage":   actual,
		"itemsPerPage": 50,
	})
	return body
}

// requestedPage extracts numPage from the multipart search request.
func requestedPage(t *testing.T, r *http.Request) int {
	t.Helper()
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse multipart form: %v", err)
	}
	var page int
	fmt.Sscanf(r.FormValue("numPage"), "%d", &page)
	return page
}

func testQuery() model.SearchQuery {
	return model.SearchQuery{
		Country:      model.CountrySpain,
		Operation:    model.OperationSale,
		PropertyType: model.PropertyHomes,
		Center:       "40.4167,-3.7033",
		Distance:     1500,
	}
}

func TestCollectAllPages(t *testing.T) {
	counts := map[int]int{1: 50, 2: 50, 3: 7}
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		page := requestedPage(t, r)
		w.Write(pageBody(page, 3, 107, counts[page]))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	listings, last, err := c.Collect(context.Background(), testQuery(), true, 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(listings) != 107 {
		t.Errorf("len(listings) = %d, want 107", len(listings))
	}
	if last == nil || last.Total != 107 || last.ActualPage != 3 {
		t.Errorf("last page = %+v, want totals from page 3", last)
	}
	if api.searchHits != 3 {
		t.Errorf("search hits = %d, want 3", api.searchHits)
	}
	if api.tokenHits != 1 {
		t.Errorf("token hits = %d, want a single acquisition", api.tokenHits)
	}
}

func TestCollectSinglePage(t *testing.T) {
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		w.Write(pageBody(1, 3, 107, 50))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	listings, _, err := c.Collect(context.Background(), testQuery(), false, 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(listings) != 50 {
		t.Errorf("len(listings) = %d, want 50 from a single page", len(listings))
	}
	if api.searchHits != 1 {
		t.Errorf("search hits = %d, want 1 when allPages is off", api.searchHits)
	}
}

func TestCollectEmptyResult(t *testing.T) {
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		w.Write(pageBody(1, 0, 0, 0))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	listings, last, err := c.Collect(context.Background(), testQuery(), true, 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("len(listings) = %d, want 0", len(listings))
	}
	if last == nil || last.Total != 0 {
		t.Errorf("last = %+v, want the empty page with its totals", last)
	}
	if api.searchHits != 1 {
		t.Errorf("search hits = %d, want 1", api.searchHits)
	}
}

func TestCollectStopsOnEmptyPage(t *testing.T) {
	// totalPages claims 5 but page 2 comes back empty; the stream must end.
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		page := requestedPage(t, r)
		count := 50
		if page > 1 {
			count = 0
		}
		w.Write(pageBody(page, 5, 250, count))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	listings, _, err := c.Collect(context.Background(), testQuery(), true, 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(listings) != 50 {
		t.Errorf("len(listings) = %d, want 50", len(listings))
	}
	if api.searchHits != 2 {
		t.Errorf("search hits = %d, want 2 (stop after the empty page)", api.searchHits)
	}
}

func TestCollectSinglePageHonorsNumPage(t *testing.T) {
	var gotPage int
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		gotPage = requestedPage(t, r)
		w.Write(pageBody(gotPage, 5, 250, 50))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	q := testQuery()
	q.NumPage = 3
	listings, last, err := c.Collect(context.Background(), q, false, 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if gotPage != 3 {
		t.Errorf("server saw numPage = %d, want the requested page 3", gotPage)
	}
	if len(listings) != 50 || last == nil || last.ActualPage != 3 {
		t.Errorf("got %d listings from page %v, want 50 from page 3", len(listings), last)
	}
	if api.searchHits != 1 {
		t.Errorf("search hits = %d, want 1", api.searchHits)
	}
}

func TestCollectAllPagesStartsAtNumPage(t *testing.T) {
	var pages []int
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		page := requestedPage(t, r)
		pages = append(pages, page)
		w.Write(pageBody(page, 3, 107, 50))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	q := testQuery()
	q.NumPage = 2
	if _, _, err := c.Collect(context.Background(), q, true, 0); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(pages) != 2 || pages[0] != 2 || pages[1] != 3 {
		t.Errorf("fetched pages %v, want [2 3]", pages)
	}
}

func TestCollectMaxPages(t *testing.T) {
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		page := requestedPage(t, r)
		w.Write(pageBody(page, 10, 500, 50))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	listings, _, err := c.Collect(context.Background(), testQuery(), true, 2)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(listings) != 100 {
		t.Errorf("len(listings) = %d, want 100 with the page cap", len(listings))
	}
	if api.searchHits != 2 {
		t.Errorf("search hits = %d, want 2", api.searchHits)
	}
}

func TestCollectPartialResultsOnFailure(t *testing.T) {
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		page := requestedPage(t, r)
		if page == 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write(pageBody(page, 3, 107, 50))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(2, &sleepRecorder{}))

	listings, _, err := c.Collect(context.Background(), testQuery(), true, 0)
	if !errors.Is(err, model.ErrTransient) {
		t.Fatalf("err = %v, want transient failure from page 2", err)
	}
	if len(listings) != 50 {
		t.Errorf("len(listings) = %d, want the 50 listings from page 1 to stand", len(listings))
	}
}

func TestSearchReplaysOnceAfterAuthError(t *testing.T) {
	// The first search is rejected with a 401; the client must refresh the
	// token once and replay, without burning retry attempts.
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		if hit == 1 {
			http.Error(w, "token expired", http.StatusUnauthorized)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer fresh-token" {
			t.Errorf("Authorization = %q after refresh", auth)
		}
		w.Write(pageBody(1, 1, 5, 5))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	page, err := c.Search(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.ElementList) != 5 {
		t.Errorf("len(ElementList) = %d, want 5", len(page.ElementList))
	}
	if api.searchHits != 2 {
		t.Errorf("search hits = %d, want the original call plus one replay", api.searchHits)
	}
	if api.tokenHits != 2 {
		t.Errorf("token hits = %d, want the initial acquisition plus the forced refresh", api.tokenHits)
	}
}

func TestSearchPersistentAuthFailure(t *testing.T) {
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))

	_, err := c.Search(context.Background(), testQuery())
	if !errors.Is(err, model.ErrAuth) {
		t.Fatalf("err = %v, want auth", err)
	}
	if api.searchHits != 2 {
		t.Errorf("search hits = %d, want exactly one replay before giving up", api.searchHits)
	}
}

func TestSearchValidatesQuery(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid", nil, testPolicy(1, &sleepRecorder{}))

	_, err := c.Search(context.Background(), model.SearchQuery{Country: "es"})
	if !errors.Is(err, model.ErrInvalidQuery) {
		t.Errorf("err = %v, want invalid-query before any network call", err)
	}
}

func TestPagerNextAfterExhaustion(t *testing.T) {
	api := &fakeAPI{}
	api.search = func(w http.ResponseWriter, r *http.Request, hit int) {
		w.Write(pageBody(1, 1, 3, 3))
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, testPolicy(3, &sleepRecorder{}))
	pager := c.Pages(testQuery(), true)

	ctx := context.Background()
	page, err := pager.Next(ctx)
	if err != nil || page == nil {
		t.Fatalf("Next = %v, %v", page, err)
	}
	if pager.HasMore() {
		t.Error("HasMore = true after the final page")
	}
	page, err = pager.Next(ctx)
	if page != nil || err != nil {
		t.Errorf("Next after exhaustion = %v, %v, want nil, nil", page, err)
	}
}
