package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fera765/chatstory/internal/background"
	"github.com/fera765/chatstory/internal/config"
	"github.com/fera765/chatstory/internal/encoder"
	"github.com/fera765/chatstory/internal/handler"
	"github.com/fera765/chatstory/internal/registry"
	"github.com/fera765/chatstory/internal/service"
	"github.com/fera765/chatstory/internal/worker"
)

// fakeEncoder stands in for ffmpeg: it writes the output file directly
// so the full pipeline completes without external binaries.
type fakeEncoder struct{}

func (fakeEncoder) Encode(ctx context.Context, opts encoder.Options, onProgress func(frac float64)) error {
	if onProgress != nil {
		onProgress(0.5)
		onProgress(1)
	}
	return os.WriteFile(opts.OutputPath, []byte("fake mp4"), 0644)
}

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
	cfg *config.Config
}

// setupApp creates a Fiber app wired like main.go, with per-test
// storage directories and the encoder replaced by a fake.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			VideosDir: root + "/videos",
			FramesDir: root + "/frames",
			AssetsDir: root + "/assets",
		},
		Render: config.RenderConfig{
			Width:         64,
			Height:        128,
			FPS:           5,
			DurationSec:   1,
			Decimation:    1,
			HoldWindowSec: 0.2,
			HookWindowSec: 0.2,
			Theme:         "dark",
		},
		FFmpeg: config.FFmpegConfig{
			Bin:      "ffmpeg",
			ProbeBin: "ffprobe",
			Encoder:  "libx264",
			Quality:  23,
			Preset:   "ultrafast",
		},
	}

	validate := validator.New()

	jobRegistry := registry.New()
	resolver := background.NewResolver(cfg.Storage.AssetsDir, cfg.FFmpeg.Bin, cfg.FFmpeg.ProbeBin, nil)
	renderWorker := worker.NewRenderWorker(jobRegistry, resolver, fakeEncoder{}, nil, cfg)

	renderService := service.NewRenderService(jobRegistry, renderWorker, cfg.Render)
	libraryService := service.NewLibraryService(cfg.Storage.VideosDir)

	renderHandler := handler.NewRenderHandler(renderService, validate)
	videoHandler := handler.NewVideoHandler(libraryService)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Post("/generate", renderHandler.Generate)
	api.Get("/status/:jobId", renderHandler.Status)
	api.Get("/videos", videoHandler.List)
	api.Get("/videos/:name", videoHandler.Download)

	return &testApp{app: app, cfg: cfg}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// waitForTerminal polls the status endpoint until the job reaches done
// or error, failing the test on timeout.
func waitForTerminal(t *testing.T, ta *testApp, jobID string) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doRequest(ta.app, http.MethodGet, "/api/status/"+jobID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		assertStatus(t, resp, http.StatusOK)

		result := parseJSON(t, resp)
		switch result["status"] {
		case "done", "error":
			return result
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("job %s did not finish in time", jobID)
	return nil
}

func validGenerateBody() string {
	return `{
		"title": "Midnight Texts",
		"episode": 1,
		"totalEpisodes": 3,
		"durationSec": 1,
		"fps": 5,
		"width": 64,
		"height": 128,
		"messages": [
			{"kind": "text", "sender": "other", "displayName": "Ava", "body": "are you awake?"},
			{"kind": "text", "sender": "self", "body": "yeah. what's wrong?"},
			{"kind": "system", "body": "Ava is typing..."}
		]
	}`
}
