package xclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tnega/internal/model"
)

// pageJSON builds a success envelope holding count tweets with ids starting
// at firstID.
func pageJSON(firstID, count int, hasNext bool, nextCursor string) string {
	items := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id := firstID + i
		items = append(items, fmt.Sprintf(`{
			"id": "%d",
			"text": "tweet %d",
			"createdAt": "Mon Oct 13 06:27:38 +0000 2025",
			"author": {"id": "u%d", "userName": "user%d", "name": "User %d", "followers": 10}
		}`, id, id, id, id, id))
	}
	return fmt.Sprintf(`{"tweets": [%s], "has_next_page": %t, "next_cursor": %q}`,
		strings.Join(items, ","), hasNext, nextCursor)
}

// pageServer serves a scripted cursor -> body map and counts requests.
func pageServer(t *testing.T, pages map[string]string, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests++
		body, ok := pages[r.URL.Query().Get("cursor")]
		if !ok {
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestPaginationStopsOnStalePage(t *testing.T) {
	requests := 0
	ts := pageServer(t, map[string]string{
		"":   pageJSON(1, 10, true, "c1"),
		"c1": pageJSON(11, 10, true, "c2"),
		"c2": pageJSON(21, 10, true, "c3"),
		"c3": pageJSON(1, 10, true, "c4"), // all already seen
	}, &requests)
	defer ts.Close()

	c := newTestClient(ts.URL)
	tweets, authors, err := c.SearchTweets(context.Background(), "golang", model.QueryLatest, 0)
	if err != nil {
		t.Fatalf("SearchTweets: %v", err)
	}
	if len(tweets) != 30 {
		t.Fatalf("expected 30 tweets, got %d", len(tweets))
	}
	if requests != 4 {
		t.Fatalf("expected 4 requests, got %d", requests)
	}
	if len(authors) != 30 {
		t.Fatalf("expected 30 authors, got %d", len(authors))
	}
	// order is preserved across pages
	if tweets[0].ID != "1" || tweets[29].ID != "30" {
		t.Fatalf("unexpected tweet order: first=%s last=%s", tweets[0].ID, tweets[29].ID)
	}
}

func TestPaginationTruncatesAtItemCap(t *testing.T) {
	requests := 0
	ts := pageServer(t, map[string]string{
		"":   pageJSON(1, 10, true, "c1"),
		"c1": pageJSON(11, 10, true, "c2"),
		"c2": pageJSON(21, 10, true, "c3"),
		"c3": pageJSON(31, 10, true, "c4"),
	}, &requests)
	defer ts.Close()

	c := newTestClient(ts.URL)
	tweets, _, err := c.SearchTweets(context.Background(), "golang", model.QueryLatest, 25)
	if err != nil {
		t.Fatalf("SearchTweets: %v", err)
	}
	if len(tweets) != 25 {
		t.Fatalf("expected 25 tweets, got %d", len(tweets))
	}
	if requests != 3 {
		t.Fatalf("cap reached on page 3, expected 3 requests, got %d", requests)
	}
	if tweets[24].ID != "25" {
		t.Fatalf("expected truncation at id 25, got %s", tweets[24].ID)
	}
}

func TestPaginationStopsWithoutCursor(t *testing.T) {
	requests := 0
	ts := pageServer(t, map[string]string{
		"": pageJSON(1, 5, true, ""), // claims more pages but gives no cursor
	}, &requests)
	defer ts.Close()

	c := newTestClient(ts.URL)
	tweets, err := c.GetReplies(context.Background(), "42", 0)
	if err != nil {
		t.Fatalf("GetReplies: %v", err)
	}
	if len(tweets) != 5 {
		t.Fatalf("expected 5 tweets, got %d", len(tweets))
	}
	if requests != 1 {
		t.Fatalf("expected 1 request, got %d", requests)
	}
}

func TestPaginationStopsWhenNoNextPage(t *testing.T) {
	requests := 0
	ts := pageServer(t, map[string]string{
		"":   pageJSON(1, 5, true, "c1"),
		"c1": pageJSON(6, 5, false, "c2"),
	}, &requests)
	defer ts.Close()

	c := newTestClient(ts.URL)
	tweets, err := c.GetThreadContext(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetThreadContext: %v", err)
	}
	if len(tweets) != 10 {
		t.Fatalf("expected 10 tweets, got %d", len(tweets))
	}
	if requests != 2 {
		t.Fatalf("expected 2 requests, got %d", requests)
	}
}

func TestErrorEnvelopeStopsQuietly(t *testing.T) {
	requests := 0
	ts := pageServer(t, map[string]string{
		"":   pageJSON(1, 5, true, "c1"),
		"c1": `{"status": "error", "msg": "query too complex"}`,
	}, &requests)
	defer ts.Close()

	c := newTestClient(ts.URL)
	tweets, _, err := c.SearchTweets(context.Background(), "golang", model.QueryLatest, 0)
	if err != nil {
		t.Fatalf("error envelope must not surface as an error, got %v", err)
	}
	if len(tweets) != 5 {
		t.Fatalf("expected the 5 tweets collected before the error, got %d", len(tweets))
	}
}

func TestMalformedBodyIsStructural(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	if _, _, err := c.SearchTweets(context.Background(), "golang", model.QueryLatest, 0); err == nil {
		t.Fatal("expected decode error")
	}
}
