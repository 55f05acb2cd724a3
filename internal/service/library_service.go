package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fera765/chatstory/internal/model"
)

// ErrVideoNotFound marks an unknown output file request.
var ErrVideoNotFound = errors.New("video not found")

// LibraryService lists and resolves finished output files. The videos
// directory is append-only: one file per completed job, never updated
// in place.
type LibraryService struct {
	videosDir string
}

func NewLibraryService(videosDir string) *LibraryService {
	return &LibraryService{videosDir: videosDir}
}

// ListVideos returns finished videos newest-first by modification time.
func (s *LibraryService) ListVideos() ([]model.VideoInfo, error) {
	entries, err := os.ReadDir(s.videosDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.VideoInfo{}, nil
		}
		return nil, fmt.Errorf("read videos directory: %w", err)
	}

	videos := make([]model.VideoInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		videos = append(videos, model.VideoInfo{
			Name:       entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			URL:        "/api/videos/" + entry.Name(),
		})
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].ModifiedAt.After(videos[j].ModifiedAt)
	})
	return videos, nil
}

// VideoPath resolves a video name to its on-disk path. Names with path
// separators are rejected outright.
func (s *LibraryService) VideoPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrVideoNotFound
	}

	path := filepath.Join(s.videosDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrVideoNotFound
	}
	return path, nil
}
