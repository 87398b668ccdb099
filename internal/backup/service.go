// Package backup copies the shared database and documents to an
// S3-compatible bucket.
package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/tripkeeper/internal/analytics"
	"github.com/nhle/tripkeeper/internal/documents"
)

// Snapshotter writes a consistent copy of the database to a file.
type Snapshotter interface {
	Snapshot(ctx context.Context, dst string) error
}

// Result describes one backup run.
type Result struct {
	DatabaseKey       string
	DocumentsUploaded int
	DocumentsSkipped  int
}

// Service performs backups.
type Service struct {
	DB     Snapshotter
	Docs   *documents.Storage
	Up     Uploader
	Prefix string
	Log    logrus.FieldLogger
	Sink   analytics.Sink

	// TempDir holds the snapshot while it uploads. Empty means os.TempDir.
	TempDir string
	Now     func() time.Time
}

// Run uploads a fresh database snapshot and every document not yet in
// the bucket. Documents are immutable once stored, so a present key is
// not uploaded again.
func (s *Service) Run(ctx context.Context) (Result, error) {
	res, err := s.run(ctx)
	log := s.logger()
	if err != nil {
		log.WithError(err).Error("Backup failed")
		s.sink().Track(analytics.EventBackupFailed, nil)
		return res, err
	}
	log.WithFields(logrus.Fields{
		"key":       res.DatabaseKey,
		"uploaded":  res.DocumentsUploaded,
		"unchanged": res.DocumentsSkipped,
	}).Info("Backup completed")
	s.sink().Track(analytics.EventBackupCompleted, map[string]string{
		"documents": fmt.Sprint(res.DocumentsUploaded),
	})
	return res, nil
}

func (s *Service) run(ctx context.Context) (Result, error) {
	var res Result

	tmp, err := os.MkdirTemp(s.TempDir, "tripkeeper-backup-")
	if err != nil {
		return res, fmt.Errorf("creating snapshot directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	snapshot := filepath.Join(tmp, "snapshot.sqlite")
	if err := s.DB.Snapshot(ctx, snapshot); err != nil {
		return res, err
	}
	key := s.databaseKey()
	if err := s.uploadFile(ctx, snapshot, key); err != nil {
		return res, err
	}
	res.DatabaseKey = key

	if s.Docs == nil {
		return res, nil
	}
	names, err := s.Docs.List("")
	if err != nil {
		return res, err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		key := path.Join(s.Prefix, "documents", name)
		exists, err := s.Up.Exists(ctx, key)
		if err != nil {
			return res, err
		}
		if exists {
			res.DocumentsSkipped++
			continue
		}
		if err := s.uploadDocument(ctx, name, key); err != nil {
			return res, err
		}
		res.DocumentsUploaded++
	}
	return res, nil
}

func (s *Service) databaseKey() string {
	return path.Join(s.Prefix, "db", s.now().UTC().Format("20060102T150405Z")+".sqlite")
}

func (s *Service) uploadFile(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}
	return s.Up.Upload(ctx, key, f, info.Size(), "application/vnd.sqlite3")
}

func (s *Service) uploadDocument(ctx context.Context, name, key string) error {
	size, err := s.Docs.Size(name)
	if err != nil {
		return err
	}
	rc, err := s.Docs.Read(name)
	if err != nil {
		return err
	}
	defer rc.Close()
	return s.Up.Upload(ctx, key, rc, size, "application/octet-stream")
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Service) sink() analytics.Sink {
	if s.Sink == nil {
		return analytics.Nop{}
	}
	return s.Sink
}
