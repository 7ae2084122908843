package store

import (
	"context"
	"encoding/json"
	"errors"

	"quietpost/pkg/logger"
	"quietpost/pkg/models"
)

// Log is the shared message log: a single named blob holding the
// serialized document. Every mutation is a whole-document
// read-modify-write with no locking or version check, so two writers
// racing on the same read can lose the earlier write. That gap is
// inherited from the original design; see DESIGN.md.
type Log struct {
	blobs Blobs
	name  string
}

// NewLog binds a log to its backing blob.
func NewLog(blobs Blobs, name string) *Log {
	return &Log{blobs: blobs, name: name}
}

// load reads the current document. An absent blob, a read failure or an
// unparseable payload all degrade to the empty document so the portal
// keeps serving; parse failures are logged for the operator.
func (l *Log) load(ctx context.Context) models.Document {
	raw, err := l.blobs.Get(ctx, l.name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("log_read_failed", "blob", l.name, "error", err)
		}
		return models.Empty()
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Warn("log_parse_failed", "blob", l.name, "error", err)
		return models.Empty()
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.Messages == nil {
		doc.Messages = []models.Record{}
	}
	return doc
}

func (l *Log) save(ctx context.Context, doc models.Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return l.blobs.Put(ctx, l.name, b)
}

// Ping probes the backend with a read of the log blob. Absence is fine;
// only a transport or backend failure is reported.
func (l *Log) Ping(ctx context.Context) error {
	_, err := l.blobs.Get(ctx, l.name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Append adds one record to the end of the log and writes the document
// back in full. Records are never mutated after this point.
func (l *Log) Append(ctx context.Context, rec models.Record) error {
	doc := l.load(ctx)
	doc.Messages = append(doc.Messages, rec)
	if err := l.save(ctx, doc); err != nil {
		logger.Error("log_append_failed", "blob", l.name, "error", err)
		return err
	}
	logger.Info("log_appended", "blob", l.name, "count", len(doc.Messages))
	return nil
}

// ReadAll returns the records in insertion order. Payloads stay
// encrypted; decryption is the caller's concern.
func (l *Log) ReadAll(ctx context.Context) ([]models.Record, error) {
	return l.load(ctx).Messages, nil
}

// Reset unconditionally replaces the document with an empty one of the
// same version. Repeated resets converge on the same state.
func (l *Log) Reset(ctx context.Context) error {
	if err := l.save(ctx, models.Empty()); err != nil {
		logger.Error("log_reset_failed", "blob", l.name, "error", err)
		return err
	}
	logger.Info("log_reset", "blob", l.name)
	return nil
}
