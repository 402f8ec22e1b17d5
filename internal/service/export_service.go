package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
	"github.com/noah-isme/sma-adp-admin/pkg/export"
	"github.com/noah-isme/sma-adp-admin/pkg/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var knownExtensions = map[string]string{
	"text/csv":        ".csv",
	"application/pdf": ".pdf",
	xlsxContentType:   ".xlsx",
}

type studentExporter interface {
	Export(ctx context.Context, req models.ExportRequest) (*models.ExportFile, error)
}

type fileStorage interface {
	SaveStream(filename string, r io.Reader) (string, int64, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	DownloadPrefix string
	ResultTTL      time.Duration
}

// Download is an opened export ready to be streamed. Callers close File.
type Download struct {
	File        *os.File
	Filename    string
	ContentType string
	Size        int64
}

// ExportService stores upstream exports behind signed links and renders
// local snapshots.
type ExportService struct {
	upstream  studentExporter
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers *export.Registry
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(upstream studentExporter, store fileStorage, signer *storage.SignedURLSigner, renderers *export.Registry, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderers == nil {
		renderers = export.NewRegistry()
	}
	if cfg.DownloadPrefix == "" {
		cfg.DownloadPrefix = "/exports"
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = signer.TTL()
	}
	return &ExportService{
		upstream:  upstream,
		storage:   store,
		signer:    signer,
		renderers: renderers,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// FromUpstream asks the student API for an export of req.IDs, stores the
// returned file and signs a download link for it.
func (s *ExportService) FromUpstream(ctx context.Context, req models.ExportRequest) (link *models.ExportLink, err error) {
	defer func() { s.metrics.RecordExport("upstream", err) }()

	file, err := s.upstream.Export(ctx, req)
	if err != nil {
		return nil, err
	}
	defer file.Body.Close() //nolint:errcheck

	id := uuid.NewString()
	name := s.buildFilename(file.Filename, file.ContentType)
	relPath, size, err := s.storage.SaveStream(path.Join(id, name), file.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.logger.Info("export stored",
		zap.String("export_id", id),
		zap.Int("students", len(req.IDs)),
		zap.Int64("bytes", size),
	)

	return &models.ExportLink{
		ID:        id,
		URL:       strings.TrimRight(s.cfg.DownloadPrefix, "/") + "/" + token,
		Filename:  name,
		Size:      size,
		Count:     len(req.IDs),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// Open validates token and opens the stored file.
func (s *ExportService) Open(token string) (*Download, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportExpired.Code, appErrors.ErrExportExpired.Status, appErrors.ErrExportExpired.Message)
	}
	f, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrExportExpired.Code, appErrors.ErrExportExpired.Status, appErrors.ErrExportExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	name := filepath.Base(relPath)
	return &Download{File: f, Filename: name, ContentType: contentTypeFor(name), Size: info.Size()}, nil
}

// Cleanup removes stored exports older than ttl (the configured result TTL
// when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// Snapshot renders data locally in the requested format.
func (s *ExportService) Snapshot(format string, basename string, data export.Dataset) (file *models.RenderedFile, err error) {
	renderer, err := s.renderers.Lookup(format)
	if err != nil {
		s.metrics.RecordExport("snapshot", err)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	defer func() { s.metrics.RecordExport(renderer.Extension(), err) }()

	payload, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &models.RenderedFile{
		Filename:    fmt.Sprintf("%s_%s.%s", sanitizeFilename(basename), s.now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}

func (s *ExportService) buildFilename(upstreamName, contentType string) string {
	name := sanitizeFilename(filepath.Base(upstreamName))
	if upstreamName == "" || name == "." {
		name = "students_" + s.now().UTC().Format("20060102_150405")
	}
	if filepath.Ext(name) == "" {
		name += extensionFor(contentType)
	}
	return name
}

const maxFilenameBytes = 100

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "students"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := strings.ToValidUTF8(replacer.Replace(raw), "_")
	if len(result) <= maxFilenameBytes {
		return result
	}
	cut := maxFilenameBytes
	for cut > 0 && !utf8.RuneStart(result[cut]) {
		cut--
	}
	return result[:cut]
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for mediaType, known := range knownExtensions {
		if known == ext {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
