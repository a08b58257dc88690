package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
)

// RenameStage applies the task's rename rule to the destination folder via
// the provider. Files the source regex does not match are left alone.
type RenameStage struct {
	providers services.ProviderFactory
	logger    *log.Logger
}

// NewRenameStage creates the rename stage.
func NewRenameStage(providers services.ProviderFactory, logger *log.Logger) *RenameStage {
	return &RenameStage{providers: providers, logger: logger}
}

func (s *RenameStage) Name() string { return "rename" }

func (s *RenameStage) Run(ctx context.Context, task *models.Task, account *models.Account, files []services.RemoteFile, firstRun bool) error {
	if task.RenameSource == "" || task.RenameTarget == "" {
		return nil
	}

	re, err := regexp.Compile(task.RenameSource)
	if err != nil {
		return fmt.Errorf("invalid rename pattern: %w", err)
	}

	// The saved copies carry new provider ids, so rename works off the
	// destination listing rather than the submitted file list.
	provider := s.providers(account.Credential)
	listing, err := provider.ListFolder(ctx, task.DestFolderID)
	if err != nil {
		return fmt.Errorf("failed to list destination: %w", err)
	}

	saved := make(map[string]struct{}, len(files))
	for _, file := range files {
		saved[shared.NormalizeFileName(file.Name)] = struct{}{}
	}

	for _, file := range listing.Files {
		if _, ok := saved[shared.NormalizeFileName(file.Name)]; !ok {
			continue
		}
		if !re.MatchString(file.Name) {
			continue
		}
		newName := re.ReplaceAllString(file.Name, task.RenameTarget)
		if newName == file.Name {
			continue
		}
		if err := provider.Rename(ctx, file.ID, newName); err != nil {
			s.logger.Warn("rename failed", "file", file.Name, "error", err)
			continue
		}
		s.logger.Info("renamed file", "from", file.Name, "to", newName)
	}

	return nil
}

// PointerWriter writes one pointer file. The playlist-pointer file writer is
// an external collaborator; FSPointerWriter is the plain filesystem binding.
type PointerWriter interface {
	Write(path, url string) error
}

// FSPointerWriter writes pointer files to the local filesystem.
type FSPointerWriter struct{}

func (FSPointerWriter) Write(p, url string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(url+"\n"), 0644)
}

// PointerStage generates one pointer file per saved media file: a small file
// under the account's pointer root whose contents are the cloud URL of the
// saved file.
type PointerStage struct {
	writer PointerWriter
	logger *log.Logger
}

// NewPointerStage creates the pointer-file stage.
func NewPointerStage(writer PointerWriter, logger *log.Logger) *PointerStage {
	if writer == nil {
		writer = FSPointerWriter{}
	}
	return &PointerStage{writer: writer, logger: logger}
}

func (s *PointerStage) Name() string { return "pointer" }

func (s *PointerStage) Run(ctx context.Context, task *models.Task, account *models.Account, files []services.RemoteFile, firstRun bool) error {
	if account.PointerRoot == "" || account.CloudRoot == "" {
		return nil
	}

	for _, file := range files {
		base := strings.TrimSuffix(file.Name, path.Ext(file.Name))
		pointerPath := filepath.Join(account.PointerRoot, task.DestFolderPath, base+".strm")
		url := strings.TrimRight(account.CloudRoot, "/") + path.Join("/", task.DestFolderPath, file.Name)

		if err := s.writer.Write(pointerPath, url); err != nil {
			s.logger.Warn("pointer file write failed", "path", pointerPath, "error", err)
			continue
		}
	}

	return nil
}

// CacheInvalidator refreshes a directory cache for a library path. External
// collaborator contract.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, dir string) error
}

// CacheStage invalidates the directory cache for the task's library path so
// the new entries become visible.
type CacheStage struct {
	invalidator CacheInvalidator
	logger      *log.Logger
}

// NewCacheStage creates the cache invalidation stage.
func NewCacheStage(invalidator CacheInvalidator, logger *log.Logger) *CacheStage {
	return &CacheStage{invalidator: invalidator, logger: logger}
}

func (s *CacheStage) Name() string { return "cache" }

func (s *CacheStage) Run(ctx context.Context, task *models.Task, account *models.Account, files []services.RemoteFile, firstRun bool) error {
	if s.invalidator == nil {
		return nil
	}
	return s.invalidator.Invalidate(ctx, filepath.Join(account.PointerRoot, task.DestFolderPath))
}

// Scraper fetches metadata for a library directory. External collaborator
// contract.
type Scraper interface {
	Scrape(ctx context.Context, dir string, firstRun bool) error
}

// ScrapeStage triggers metadata scraping for the task's library path.
type ScrapeStage struct {
	scraper Scraper
	logger  *log.Logger
}

// NewScrapeStage creates the scrape stage.
func NewScrapeStage(scraper Scraper, logger *log.Logger) *ScrapeStage {
	return &ScrapeStage{scraper: scraper, logger: logger}
}

func (s *ScrapeStage) Name() string { return "scrape" }

func (s *ScrapeStage) Run(ctx context.Context, task *models.Task, account *models.Account, files []services.RemoteFile, firstRun bool) error {
	if s.scraper == nil {
		return nil
	}
	return s.scraper.Scrape(ctx, filepath.Join(account.PointerRoot, task.DestFolderPath), firstRun)
}

// Notifier tells the media server a library path changed. External
// collaborator contract.
type Notifier interface {
	Notify(ctx context.Context, dir string) error
}

// NotifyStage notifies the media server about the updated library path.
type NotifyStage struct {
	notifier Notifier
	logger   *log.Logger
}

// NewNotifyStage creates the notify stage.
func NewNotifyStage(notifier Notifier, logger *log.Logger) *NotifyStage {
	return &NotifyStage{notifier: notifier, logger: logger}
}

func (s *NotifyStage) Name() string { return "notify" }

func (s *NotifyStage) Run(ctx context.Context, task *models.Task, account *models.Account, files []services.RemoteFile, firstRun bool) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(ctx, filepath.Join(account.PointerRoot, task.DestFolderPath))
}
