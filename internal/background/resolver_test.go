package background

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type stubFetcher struct {
	path  string
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

// copyTranscode replaces the ffmpeg cover-fit with a plain file copy.
func copyTranscode(ctx context.Context, in, out string, w, h int) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0644)
}

func newTestResolver(dir string, fetcher Fetcher) *Resolver {
	r := NewResolver(dir, "ffmpeg", "ffprobe", fetcher)
	r.transcode = copyTranscode
	r.probe = func(ctx context.Context, path string) (float64, error) {
		return 8, nil
	}
	return r
}

func TestResolve_EmptySpec(t *testing.T) {
	r := newTestResolver(t.TempDir(), nil)

	asset, err := r.Resolve(context.Background(), "", 1080, 1920)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset != nil {
		t.Errorf("expected nil asset for empty spec, got %+v", asset)
	}
}

func TestResolve_LocalAsset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rain.mp4"), []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(dir, nil)

	asset, err := r.Resolve(context.Background(), "rain.mp4", 1080, 1920)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Path != filepath.Join(dir, "rain.mp4") {
		t.Errorf("asset path = %q", asset.Path)
	}
	if asset.Fetched {
		t.Error("local asset must not be marked fetched")
	}
	if asset.DurationSec != 8 {
		t.Errorf("asset duration = %v, want probed 8", asset.DurationSec)
	}
}

func TestResolve_LocalAssetMissing(t *testing.T) {
	r := newTestResolver(t.TempDir(), nil)

	if _, err := r.Resolve(context.Background(), "nope.mp4", 1080, 1920); err == nil {
		t.Error("expected error for missing local asset")
	}
}

func TestResolve_LocalAssetIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(dir, nil)

	// Path components are stripped, only the base name is looked up.
	asset, err := r.Resolve(context.Background(), "../../etc/clip.mp4", 1080, 1920)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Path != filepath.Join(dir, "clip.mp4") {
		t.Errorf("asset path = %q, traversal must be stripped", asset.Path)
	}
}

func TestResolve_FetchAndScale(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.mp4")
	if err := os.WriteFile(raw, []byte("raw video"), 0644); err != nil {
		t.Fatal(err)
	}

	fetcher := &stubFetcher{path: raw}
	r := newTestResolver(dir, fetcher)

	asset, err := r.Resolve(context.Background(), "https://example.com/bg.mp4", 720, 1280)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !asset.Fetched {
		t.Error("fetched asset must be marked fetched")
	}
	if filepath.Dir(asset.Path) != dir {
		t.Errorf("asset must land in the assets dir, got %q", asset.Path)
	}
	name := filepath.Base(asset.Path)
	if filepath.Ext(name) != ".mp4" || name[:3] != "bg_" {
		t.Errorf("unexpected derived asset name %q", name)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}

	// The raw download is removed once the derived asset exists.
	if _, err := os.Stat(raw); !os.IsNotExist(err) {
		t.Errorf("raw download %s should be removed after transcode", raw)
	}
}

func TestResolve_CacheHitSkipsFetch(t *testing.T) {
	dir := t.TempDir()
	fetcher := &stubFetcher{err: errors.New("network down")}
	r := newTestResolver(dir, fetcher)

	url := "https://example.com/bg.mp4"
	cached := filepath.Join(dir, fmt.Sprintf("bg_%s_720x1280.mp4", sourceID(url)))
	if err := os.WriteFile(cached, []byte("cached"), 0644); err != nil {
		t.Fatal(err)
	}

	asset, err := r.Resolve(context.Background(), url, 720, 1280)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Path != cached {
		t.Errorf("asset path = %q, want cached %q", asset.Path, cached)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times on cache hit", fetcher.calls)
	}
}

func TestResolve_FetchError(t *testing.T) {
	r := newTestResolver(t.TempDir(), &stubFetcher{err: errors.New("timeout")})

	if _, err := r.Resolve(context.Background(), "https://example.com/bg.mp4", 720, 1280); err == nil {
		t.Error("expected fetch error to surface")
	}
}

func TestResolve_NoFetcher(t *testing.T) {
	r := newTestResolver(t.TempDir(), nil)

	if _, err := r.Resolve(context.Background(), "https://example.com/bg.mp4", 720, 1280); err == nil {
		t.Error("expected error when no fetcher is configured")
	}
}

func TestResolve_ProbeFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.mp4"), []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(dir, nil)
	r.probe = func(ctx context.Context, path string) (float64, error) {
		return 0, errors.New("moov atom not found")
	}

	if _, err := r.Resolve(context.Background(), "broken.mp4", 720, 1280); err == nil {
		t.Error("expected unreadable asset to fail resolution")
	}
}

func TestResolve_ZeroDuration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(dir, nil)
	r.probe = func(ctx context.Context, path string) (float64, error) {
		return 0, nil
	}

	if _, err := r.Resolve(context.Background(), "empty.mp4", 720, 1280); err == nil {
		t.Error("expected zero-duration asset to fail resolution")
	}
}

func TestCoverFilter(t *testing.T) {
	got := CoverFilter(1080, 1920)
	want := "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920"
	if got != want {
		t.Errorf("CoverFilter = %q, want %q", got, want)
	}
}

func TestSourceID_Stable(t *testing.T) {
	a := sourceID("https://example.com/a.mp4")
	b := sourceID("https://example.com/a.mp4")
	c := sourceID("https://example.com/b.mp4")

	if a != b {
		t.Error("same url must give same id")
	}
	if a == c {
		t.Error("different urls must give different ids")
	}
	if len(a) != 16 {
		t.Errorf("id length = %d, want 16 hex chars", len(a))
	}
}
