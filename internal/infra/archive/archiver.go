package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/infra/report"
)

const keyPrefix = "assessments/"

// Archiver writes each bundle as JSON plus its PDF report.
type Archiver struct {
	storage ObjectStorage
	logger  *slog.Logger
}

// NewArchiver wraps storage.
func NewArchiver(storage ObjectStorage, logger *slog.Logger) *Archiver {
	return &Archiver{storage: storage, logger: logger.With("component", "archive.archiver")}
}

// Archive stores bundle.json then report.pdf under the bundle ID.
func (a *Archiver) Archive(ctx context.Context, bundle evaluation.Bundle) error {
	if bundle.ID == "" {
		return errors.New("archive: bundle without id")
	}
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("archive: encode bundle: %w", err)
	}
	if _, err := a.storage.Put(ctx, bundleKey(bundle.ID), payload, "application/json"); err != nil {
		return fmt.Errorf("archive: put bundle: %w", err)
	}
	pdf, err := report.BuildPDF(bundle)
	if err != nil {
		return fmt.Errorf("archive: render report: %w", err)
	}
	obj, err := a.storage.Put(ctx, reportKey(bundle.ID), pdf, report.ContentType)
	if err != nil {
		return fmt.Errorf("archive: put report: %w", err)
	}
	a.logger.Debug("bundle archived", "bundle_id", bundle.ID, "site_id", bundle.Site.ID, "report_bytes", obj.Size)
	return nil
}

// Report returns the archived PDF, or ErrObjectNotFound.
func (a *Archiver) Report(ctx context.Context, id string) ([]byte, error) {
	return a.read(ctx, reportKey(id))
}

// Bundle returns the archived bundle, or ErrObjectNotFound.
func (a *Archiver) Bundle(ctx context.Context, id string) (evaluation.Bundle, error) {
	data, err := a.read(ctx, bundleKey(id))
	if err != nil {
		return evaluation.Bundle{}, err
	}
	var bundle evaluation.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return evaluation.Bundle{}, fmt.Errorf("archive: decode bundle: %w", err)
	}
	return bundle, nil
}

func (a *Archiver) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := a.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func bundleKey(id string) string { return keyPrefix + id + "/bundle.json" }

func reportKey(id string) string { return keyPrefix + id + "/report.pdf" }

var _ evaluation.Archiver = (*Archiver)(nil)
