package content

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"readaloud/internal/config"
	"readaloud/internal/domain/book"
	"readaloud/internal/domain/chapter"
	"readaloud/internal/storage"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newStore(t *testing.T) storage.Adapter {
	t.Helper()
	store, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create local adapter: %v", err)
	}
	return store
}

func TestHTTPProvider(t *testing.T) {
	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book/detail" {
			http.NotFound(w, r)
			return
		}
		gotQuery.Store(r.URL.Query())
		if r.URL.Query().Get("chapter_id") == "9" {
			http.Error(w, "no such chapter", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":"Hello world. How are you?"}`)
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL+"/", "1", time.Second, quietLogger())

	t.Run("success", func(t *testing.T) {
		ch, err := p.FetchChapter(context.Background(), "42", 3)
		if err != nil {
			t.Fatalf("FetchChapter() failed: %v", err)
		}
		if ch.Content != "Hello world. How are you?" || ch.Index != 3 || ch.BookID != "42" {
			t.Errorf("unexpected chapter: %+v", ch)
		}
		q := gotQuery.Load().(url.Values)
		for key, want := range map[string]string{"device_id": "1", "book_id": "42", "chapter_id": "3"} {
			if got := q[key]; len(got) != 1 || got[0] != want {
				t.Errorf("query %s = %v, want %s", key, got, want)
			}
		}
	})

	t.Run("status error", func(t *testing.T) {
		_, err := p.FetchChapter(context.Background(), "42", 9)
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected FetchError, got %v", err)
		}
		if fe.BookID != "42" || fe.Chapter != 9 {
			t.Errorf("unexpected FetchError fields: %+v", fe)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.FetchChapter(ctx, "42", 1)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled in chain, got %v", err)
		}
	})
}

func TestHTTPProviderBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>oops</html>`)
	}))
	defer server.Close()

	_, err := NewHTTPProvider(server.URL, "1", time.Second, quietLogger()).FetchChapter(context.Background(), "1", 1)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestStoreProvider(t *testing.T) {
	ctx := context.Background()
	p := NewStoreProvider(newStore(t), quietLogger())

	text := `Chapter 1 The Start
It was dark. The wind blew!

Chapter 2 The End
Morning came; we left.`

	b, err := p.Import(ctx, book.Book{ID: "demo", Title: "Demo"}, text)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if b.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", b.Count())
	}

	loaded, err := p.Book(ctx, "demo")
	if err != nil {
		t.Fatalf("Book() failed: %v", err)
	}
	if loaded.Title != "Demo" || loaded.Count() != 2 || loaded.ChapterTitle(2) != "Chapter 2 The End" {
		t.Errorf("unexpected manifest: %+v", loaded)
	}

	ch, err := p.FetchChapter(ctx, "demo", 2)
	if err != nil {
		t.Fatalf("FetchChapter() failed: %v", err)
	}
	if ch.Content != "Morning came; we left." {
		t.Errorf("Content = %q", ch.Content)
	}

	_, err = p.FetchChapter(ctx, "demo", 3)
	var fe *FetchError
	if !errors.As(err, &fe) || !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected FetchError wrapping ErrNotFound, got %v", err)
	}

	ids, err := p.Books(ctx)
	if err != nil {
		t.Fatalf("Books() failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "demo" {
		t.Errorf("Books() = %v, want [demo]", ids)
	}
}

func TestStoreProviderBookWithoutManifest(t *testing.T) {
	ctx := context.Background()
	p := NewStoreProvider(newStore(t), quietLogger())

	for i := 1; i <= 3; i++ {
		if err := p.PutChapter(ctx, chapter.Chapter{BookID: "raw", Index: i, Content: "x."}); err != nil {
			t.Fatal(err)
		}
	}
	b, err := p.Book(ctx, "raw")
	if err != nil {
		t.Fatalf("Book() failed: %v", err)
	}
	if b.Count() != 3 {
		t.Errorf("Count() = %d, want 3", b.Count())
	}

	if _, err := p.Book(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing book, got %v", err)
	}
}

func TestSplitChapters(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		titles []string
	}{
		{name: "empty", text: "  \n", titles: nil},
		{name: "no headings", text: "Just prose. More prose.", titles: []string{""}},
		{name: "english", text: "Chapter 1\nA.\nChapter 2\nB.", titles: []string{"Chapter 1", "Chapter 2"}},
		{name: "vietnamese roman", text: "Chương I\nMột.\nCHƯƠNG II\nHai.", titles: []string{"Chương I", "CHƯƠNG II"}},
		{name: "preface kept", text: "Foreword.\nPart 1\nBody.", titles: []string{"", "Part 1"}},
		{name: "mid-line mention ignored", text: "See chapter 2 later.", titles: []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chapters := SplitChapters(tt.text)
			if len(chapters) != len(tt.titles) {
				t.Fatalf("got %d chapters, want %d: %+v", len(chapters), len(tt.titles), chapters)
			}
			for i, c := range chapters {
				if c.Title != tt.titles[i] {
					t.Errorf("chapter %d title = %q, want %q", i, c.Title, tt.titles[i])
				}
				if strings.TrimSpace(c.Content) == "" {
					t.Errorf("chapter %d has no content", i)
				}
			}
		})
	}
}

type countingProvider struct {
	calls int
	err   error
}

func (c *countingProvider) FetchChapter(ctx context.Context, bookID string, index int) (chapter.Chapter, error) {
	c.calls++
	if c.err != nil {
		return chapter.Chapter{}, &FetchError{BookID: bookID, Chapter: index, Err: c.err}
	}
	return chapter.Chapter{BookID: bookID, Index: index, Content: "Fetched text."}, nil
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	next := &countingProvider{}
	cache := NewCachedProvider(next, newStore(t), time.Hour, quietLogger())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ch, err := cache.FetchChapter(ctx, "b", 1)
		if err != nil {
			t.Fatalf("FetchChapter() failed: %v", err)
		}
		if ch.Content != "Fetched text." {
			t.Errorf("Content = %q", ch.Content)
		}
	}
	if next.calls != 1 {
		t.Errorf("fresh cache hits fetched %d times, want 1", next.calls)
	}

	infos, err := cache.Info(ctx)
	if err != nil {
		t.Fatalf("Info() failed: %v", err)
	}
	if len(infos) != 1 || !infos[0].Fresh || infos[0].BookID != "b" || infos[0].Chapter != 1 {
		t.Errorf("unexpected cache info: %+v", infos)
	}

	// stale entries are refetched
	now = now.Add(2 * time.Hour)
	if _, err := cache.FetchChapter(ctx, "b", 1); err != nil {
		t.Fatalf("FetchChapter() failed: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("stale entry fetched %d times in total, want 2", next.calls)
	}

	// failures are not masked by a stale entry
	now = now.Add(2 * time.Hour)
	next.err = errors.New("offline")
	_, err = cache.FetchChapter(ctx, "b", 1)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Errorf("expected FetchError, got %v", err)
	}

	n, err := cache.Clear(ctx, "")
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Clear() removed %d entries, want 1", n)
	}
}

func TestHTMLText(t *testing.T) {
	doc := `<html><head><title>ignored</title><style>p{}</style></head>
<body><h1>Chapter One</h1><p>It was   a dark night.</p><p>Then <em>dawn</em> came!</p></body></html>`
	want := "Chapter One\nIt was a dark night.\nThen dawn came!"
	if got := htmlText(doc); got != want {
		t.Errorf("htmlText() = %q, want %q", got, want)
	}
}

func writeEPUB(t *testing.T, pages map[string]string, order []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	write := func(name, body string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, body)
	}

	write("mimetype", "application/epub+zip")
	write("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`)

	var manifest, spine strings.Builder
	for _, id := range order {
		manifest.WriteString(`<item id="` + id + `" href="` + id + `.xhtml" media-type="application/xhtml+xml"/>`)
		spine.WriteString(`<itemref idref="` + id + `"/>`)
		write("OEBPS/"+id+".xhtml", pages[id])
	}
	write("OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Test</dc:title></metadata>
  <manifest>`+manifest.String()+`</manifest>
  <spine>`+spine.String()+`</spine>
</package>`)

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEPUBProvider(t *testing.T) {
	path := writeEPUB(t, map[string]string{
		"cover": `<html><body><img src="cover.png"/></body></html>`,
		"c1":    `<html><body><p>First chapter. Short.</p></body></html>`,
		"c2":    `<html><body><p>Second chapter!</p></body></html>`,
	}, []string{"cover", "c1", "c2"})

	p := NewEPUBProvider(path)
	count, err := p.ChapterCount()
	if err != nil {
		t.Fatalf("ChapterCount() failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("ChapterCount() = %d, want 2 (cover has no text)", count)
	}

	ch, err := p.FetchChapter(context.Background(), "epub", 2)
	if err != nil {
		t.Fatalf("FetchChapter() failed: %v", err)
	}
	if ch.Content != "Second chapter!" {
		t.Errorf("Content = %q", ch.Content)
	}

	var fe *FetchError
	if _, err := p.FetchChapter(context.Background(), "epub", 3); !errors.As(err, &fe) {
		t.Errorf("expected FetchError past the last chapter, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	store := newStore(t)
	tests := []struct {
		cfg     config.ContentConfig
		want    string
		wantErr bool
	}{
		{cfg: config.ContentConfig{Source: config.SourceHTTP, BaseURL: "http://x"}, want: "*content.HTTPProvider"},
		{cfg: config.ContentConfig{Source: config.SourceStore}, want: "*content.StoreProvider"},
		{cfg: config.ContentConfig{Source: config.SourceEPUB, EPUBPath: "x.epub"}, want: "*content.EPUBProvider"},
		{
			cfg:  config.ContentConfig{Source: config.SourceStore, Cache: config.CacheConfig{Enabled: true, MaxAge: time.Hour}},
			want: "*content.CachedProvider",
		},
		{cfg: config.ContentConfig{Source: "ftp"}, wantErr: true},
	}
	for _, tt := range tests {
		p, err := NewProvider(tt.cfg, store, quietLogger())
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewProvider(%s) expected error", tt.cfg.Source)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewProvider(%s) failed: %v", tt.cfg.Source, err)
		}
		if got := typeName(p); got != tt.want {
			t.Errorf("NewProvider(%s) = %s, want %s", tt.cfg.Source, got, tt.want)
		}
	}
}

func typeName(p Provider) string {
	switch p.(type) {
	case *HTTPProvider:
		return "*content.HTTPProvider"
	case *StoreProvider:
		return "*content.StoreProvider"
	case *EPUBProvider:
		return "*content.EPUBProvider"
	case *CachedProvider:
		return "*content.CachedProvider"
	}
	return "unknown"
}
