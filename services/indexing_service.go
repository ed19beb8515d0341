package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"secondbrain/models"
	"secondbrain/vectorindex"
)

// scrollStateLimit bounds how many stored chunks the scan reads to rebuild
// its source-file state.
const scrollStateLimit = 10000

// FileIndexingService keeps a notes directory in sync with the store:
// supported files are extracted, pushed through the normal ingestion
// pipeline and re-ingested whenever their content hash changes.
type FileIndexingService struct {
	rag   RAGService
	index vectorindex.Index
	dir   string
}

// NewFileIndexingService creates a new indexing service for a directory.
func NewFileIndexingService(rag RAGService, index vectorindex.Index, dir string) *FileIndexingService {
	return &FileIndexingService{rag: rag, index: index, dir: dir}
}

// ScanAndIndexDirectory is the main function to sync the directory with the
// vector store.
func (s *FileIndexingService) ScanAndIndexDirectory(ctx context.Context) {
	logrus.Infof("INDEXER: starting directory scan for: %s", s.dir)

	indexed, err := s.currentState(ctx)
	if err != nil {
		logrus.Errorf("INDEXER: could not read current index state: %v", err)
		return
	}
	logrus.Infof("INDEXER: found %d files currently in the index", len(indexed))

	local := make(map[string]bool)
	err = filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}
		local[path] = true

		text, err := ExtractTextFromFile(path)
		if err != nil {
			logrus.Warnf("INDEXER: could not extract %s: %v", path, err)
			return nil
		}
		hash := ContentHash(text, fileMetadata(path))

		if prev, ok := indexed[path]; ok {
			if prev == hash {
				return nil
			}
			logrus.Infof("INDEXER: file has changed: %s, re-indexing", path)
			if err := s.index.DeleteBySource(ctx, path); err != nil {
				logrus.Errorf("INDEXER: failed to delete old version of %s: %v", path, err)
				return nil
			}
		}

		if err := s.ingestFile(ctx, path, text); err != nil {
			logrus.Errorf("INDEXER: failed to ingest file %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		logrus.Errorf("INDEXER: error walking %s: %v", s.dir, err)
	}

	for path := range indexed {
		if !local[path] {
			logrus.Infof("INDEXER: file deleted: %s, removing from index", path)
			if err := s.index.DeleteBySource(ctx, path); err != nil {
				logrus.Errorf("INDEXER: failed to delete records for %s: %v", path, err)
			}
		}
	}
	logrus.Info("INDEXER: directory scan finished")
}

// WatchDirectory blocks watching for file changes until ctx is cancelled.
func (s *FileIndexingService) WatchDirectory(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Errorf("WATCHER: failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isSupportedFile(event.Name) {
					continue
				}
				// Editors often write via a temp file plus rename, which
				// fires several events; Create and Write are handled the
				// same way.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					logrus.Infof("WATCHER: file modified/created: %s, re-indexing", event.Name)
					text, err := ExtractTextFromFile(event.Name)
					if err != nil {
						logrus.Warnf("WATCHER: could not extract %s: %v", event.Name, err)
						continue
					}
					if err := s.index.DeleteBySource(ctx, event.Name); err != nil {
						logrus.Errorf("WATCHER: failed to delete records for %s: %v", event.Name, err)
					}
					if err := s.ingestFile(ctx, event.Name, text); err != nil {
						logrus.Errorf("WATCHER: failed to ingest %s: %v", event.Name, err)
					}
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					logrus.Infof("WATCHER: file removed/renamed: %s, removing from index", event.Name)
					if err := s.index.DeleteBySource(ctx, event.Name); err != nil {
						logrus.Errorf("WATCHER: failed to delete records for %s: %v", event.Name, err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Errorf("WATCHER: %v", err)
			case <-ctx.Done():
				logrus.Info("WATCHER: context cancelled, shutting down watcher")
				return
			}
		}
	}()

	logrus.Infof("WATCHER: watching directory: %s", s.dir)
	if err := watcher.Add(s.dir); err != nil {
		logrus.Errorf("WATCHER: failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}

// currentState maps each indexed source file to its stored content hash.
func (s *FileIndexingService) currentState(ctx context.Context) (map[string]string, error) {
	points, err := s.index.Scroll(ctx, scrollStateLimit)
	if err != nil {
		return nil, &IndexError{Op: "scroll", Err: err}
	}
	state := make(map[string]string)
	for _, p := range points {
		source, ok := p.Payload.Metadata["source_file"].(string)
		if !ok || source == "" {
			continue
		}
		if _, exists := state[source]; !exists {
			state[source] = p.Payload.ContentHash
		}
	}
	return state, nil
}

func (s *FileIndexingService) ingestFile(ctx context.Context, path, text string) error {
	if strings.TrimSpace(text) == "" {
		logrus.Warnf("INDEXER: skipping empty file: %s", path)
		return nil
	}
	title := filepath.Base(path)
	resp, err := s.rag.IngestNote(ctx, models.IngestRequest{
		Text:     text,
		Title:    &title,
		Metadata: fileMetadata(path),
	})
	if err != nil {
		return err
	}
	logrus.Infof("INDEXER: ingested %s as item %s (%d chunks)", path, resp.ItemID, resp.ChunkCount)
	return nil
}

func fileMetadata(path string) map[string]any {
	return map[string]any{"source_file": path}
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	default:
		return false
	}
}
