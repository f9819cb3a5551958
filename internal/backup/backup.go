// Package backup snapshots the canonical store before a sync rewrites it.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	filePrefix = "pitwall-"
	fileSuffix = ".db"
	timeLayout = "20060102-150405"
)

// backupPattern matches backup filenames: pitwall-YYYYMMDD-HHMMSS.db
var backupPattern = regexp.MustCompile(`^pitwall-\d{8}-\d{6}\.db$`)

// BackupInfo describes a backup file.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures where backups go and how many are kept. A zero
// MaxAgeDays disables age-based pruning.
type Options struct {
	Dir        string
	Retention  int
	MaxAgeDays int
}

// Service manages database backups.
type Service struct {
	db     *sql.DB
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a backup service.
func NewService(db *sql.DB, opts Options, logger *slog.Logger) *Service {
	if opts.Retention <= 0 {
		opts.Retention = 7
	}
	return &Service{
		db:     db,
		opts:   opts,
		logger: logger.With(slog.String("component", "backup")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Backup creates a snapshot of the database using VACUUM INTO.
func (s *Service) Backup(ctx context.Context) (*BackupInfo, error) {
	if err := os.MkdirAll(s.opts.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.now()
	filename := filePrefix + now.Format(timeLayout) + fileSuffix
	dest := filepath.Join(s.opts.Dir, filename)
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("backup %s already exists", filename)
	}

	s.logger.Info("starting backup", slog.String("dest", dest))

	_, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest)
	if err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	s.logger.Info("backup complete",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()))

	return &BackupInfo{
		Filename:  filename,
		Size:      info.Size(),
		CreatedAt: now,
	}, nil
}

// BeforeSync takes a backup and prunes old ones. A prune failure is logged,
// not returned: the fresh snapshot is what the sync needs.
func (s *Service) BeforeSync(ctx context.Context) (*BackupInfo, error) {
	info, err := s.Backup(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Prune(); err != nil {
		s.logger.Warn("backup prune failed", slog.Any("error", err))
	}
	return info, nil
}

// ListBackups returns all backup files sorted by date descending.
func (s *Service) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !backupPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		name := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), filePrefix), fileSuffix)
		ts, err := time.Parse(timeLayout, name)
		if err != nil {
			ts = info.ModTime()
		}

		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: ts,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Delete removes a single backup file by filename.
func (s *Service) Delete(filename string) error {
	if !IsValidBackupFilename(filename) {
		return fmt.Errorf("invalid backup filename")
	}
	path := filepath.Join(s.opts.Dir, filename)
	if err := os.Remove(path); err != nil { //nolint:gosec // filename validated by IsValidBackupFilename above
		return fmt.Errorf("removing backup: %w", err)
	}
	s.logger.Info("backup deleted", slog.String("filename", filename))
	return nil
}

// Prune deletes backups exceeding the retention count and older than max age.
func (s *Service) Prune() error {
	backups, err := s.ListBackups()
	if err != nil {
		return err
	}

	cutoff := time.Time{}
	if s.opts.MaxAgeDays > 0 {
		cutoff = s.now().AddDate(0, 0, -s.opts.MaxAgeDays)
	}

	for i, b := range backups {
		reason := ""
		switch {
		case i >= s.opts.Retention:
			reason = "retention"
		case !cutoff.IsZero() && b.CreatedAt.Before(cutoff):
			reason = "max_age"
		default:
			continue
		}
		if err := os.Remove(filepath.Join(s.opts.Dir, b.Filename)); err != nil {
			s.logger.Warn("failed to remove old backup",
				slog.String("filename", b.Filename),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("pruned backup",
			slog.String("filename", b.Filename),
			slog.String("reason", reason))
	}
	return nil
}

// Dir returns the configured backup directory path.
func (s *Service) Dir() string {
	return s.opts.Dir
}

// IsValidBackupFilename checks if a filename matches the expected backup pattern
// and does not contain path traversal characters.
func IsValidBackupFilename(filename string) bool {
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") || strings.Contains(filename, "..") {
		return false
	}
	return backupPattern.MatchString(filename)
}
