package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	collyfetcher "github.com/JakeFAU/pagequery/internal/fetcher/colly"
	"github.com/JakeFAU/pagequery/internal/fetcher/headless"
	"github.com/JakeFAU/pagequery/internal/storage"
	"github.com/JakeFAU/pagequery/internal/storage/local"
)

type fakeRenderer struct {
	pages map[string]string
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("%w: no page for %s", headless.ErrNavigation, url)
	}
	return page, nil
}

type fakeFetcher struct {
	resp  collyfetcher.Response
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (collyfetcher.Response, error) {
	f.calls++
	return f.resp, f.err
}

type failingStore struct{}

func (failingStore) Save(context.Context, storage.ScrapeRecord) error {
	return errors.New("disk full")
}

func (failingStore) Load(context.Context) (storage.ScrapeRecord, error) {
	return storage.ScrapeRecord{}, storage.ErrNotFound
}

func newStore(t *testing.T) *local.RecordStore {
	t.Helper()
	store, err := local.New(local.Config{Path: filepath.Join(t.TempDir(), "scraped_data.json")})
	require.NoError(t, err)
	return store
}

func TestRenderStoresVisibleText(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Save(context.Background(), storage.ScrapeRecord{URL: "https://old.example", Content: "old"}))
	renderer := &fakeRenderer{pages: map[string]string{
		"https://new.example": `<html><body><h1>Title</h1><script>x()</script><p>Body text</p></body></html>`,
	}}
	svc := New(renderer, &fakeFetcher{}, store, zap.NewNop())

	record, err := svc.Render(context.Background(), "https://new.example")
	require.NoError(t, err)
	want := storage.ScrapeRecord{URL: "https://new.example", Content: "Title\nBody text"}
	assert.Equal(t, want, record)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, stored)
}

func TestRenderFailureKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "timeout", err: fmt.Errorf("%w: slow", headless.ErrTimeout), want: FailureTimeout},
		{name: "bare deadline", err: context.DeadlineExceeded, want: FailureTimeout},
		{name: "launch", err: fmt.Errorf("%w: no chrome", headless.ErrLaunch), want: FailureLaunch},
		{name: "navigation", err: fmt.Errorf("%w: dns", headless.ErrNavigation), want: FailureNavigation},
		{name: "unknown", err: errors.New("mystery"), want: FailureNavigation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			prior := storage.ScrapeRecord{URL: "https://prior.example", Content: "prior"}
			require.NoError(t, store.Save(context.Background(), prior))
			svc := New(&fakeRenderer{err: tt.err}, &fakeFetcher{}, store, nil)

			_, err := svc.Render(context.Background(), "https://target.example")
			re, ok := AsRenderError(err)
			require.True(t, ok, "expected *RenderError, got %v", err)
			assert.Equal(t, tt.want, re.Kind)
			assert.Equal(t, "https://target.example", re.URL)
			assert.ErrorIs(t, err, tt.err)

			stored, err := store.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, prior, stored, "failed render must not touch the store")
		})
	}
}

func TestRenderStoreFailure(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{pages: map[string]string{"https://a.example": "<p>a</p>"}}
	svc := New(renderer, &fakeFetcher{}, failingStore{}, nil)

	_, err := svc.Render(context.Background(), "https://a.example")
	re, ok := AsRenderError(err)
	require.True(t, ok)
	assert.Equal(t, FailureStore, re.Kind)
	assert.Contains(t, err.Error(), "disk full")
}

func TestConcurrentRendersStoreOneWholeRecord(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	renderer := &fakeRenderer{pages: map[string]string{
		"https://a.example": "<p>page A</p>",
		"https://b.example": "<p>page B</p>",
	}}
	svc := New(renderer, &fakeFetcher{}, store, nil)

	var wg sync.WaitGroup
	for _, u := range []string{"https://a.example", "https://b.example"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, err := svc.Render(context.Background(), u)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	switch stored.URL {
	case "https://a.example":
		assert.Equal(t, "page A", stored.Content)
	case "https://b.example":
		assert.Equal(t, "page B", stored.Content)
	default:
		t.Fatalf("unexpected stored url %q", stored.URL)
	}
}

func TestDirectReturnsRawText(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	fetcher := &fakeFetcher{resp: collyfetcher.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`<html><head><style>p{}</style></head><body><p>Hello</p></body></html>`),
	}}
	svc := New(&fakeRenderer{}, fetcher, store, nil)

	text, err := svc.Direct(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "p{}Hello", text)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound, "direct fetch must not persist")
}

func TestDirectNonOKStatus(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	prior := storage.ScrapeRecord{URL: "https://prior.example", Content: "prior"}
	require.NoError(t, store.Save(context.Background(), prior))
	fetcher := &fakeFetcher{resp: collyfetcher.Response{StatusCode: http.StatusNotFound}}
	svc := New(&fakeRenderer{}, fetcher, store, nil)

	_, err := svc.Direct(context.Background(), "https://a.example/missing")
	se, ok := AsStatusError(err)
	require.True(t, ok, "expected *StatusError, got %v", err)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "Failed to scrape. Status code: 404", se.Error())

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prior, stored)
}

func TestDirectTreatsOtherSuccessCodesAsFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{resp: collyfetcher.Response{StatusCode: http.StatusNoContent}}
	svc := New(&fakeRenderer{}, fetcher, newStore(t), nil)

	_, err := svc.Direct(context.Background(), "https://a.example")
	se, ok := AsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNoContent, se.Code)
}

func TestDirectTransportError(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	svc := New(&fakeRenderer{}, fetcher, newStore(t), nil)

	_, err := svc.Direct(context.Background(), "https://a.example")
	require.Error(t, err)
	_, isStatus := AsStatusError(err)
	assert.False(t, isStatus)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, fetcher.calls)
}
