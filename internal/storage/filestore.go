// Package storage persists JSON documents as one file per document.
//
// A document is stored either plain as {id}.json or gzip compressed as
// {id}.json.gz, chosen on every write by the size of its serialized form.
// At most one encoding of an id exists after a successful write; when an
// interrupted update leaves both behind, the compressed one wins.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/metrics"
	"github.com/maruel/jsonstore/internal/models"
)

// DefaultCompressionThreshold is the serialized size above which documents
// are stored compressed.
const DefaultCompressionThreshold = 1 << 20

// Predicate selects documents in bulk scans. An error excludes the document.
type Predicate func(*models.Document) (bool, error)

// FileStore is the document storage engine.
//
// Single document operations read and write the filesystem directly; there is
// no cache. Writers of the same id are serialized; readers never block.
type FileStore struct {
	dir       string
	fs        FileSystem
	threshold int64
	workers   int
	log       *slog.Logger
	locks     idLocks
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithCompressionThreshold sets the serialized size in bytes above which
// documents are compressed.
func WithCompressionThreshold(n int64) Option {
	return func(s *FileStore) { s.threshold = n }
}

// WithScanWorkers sets the number of concurrent workers used by Search and
// DeleteWhere. 0 means GOMAXPROCS.
func WithScanWorkers(n int) Option {
	return func(s *FileStore) { s.workers = n }
}

// WithLogger sets the logger used to report entries skipped by bulk scans.
func WithLogger(l *slog.Logger) Option {
	return func(s *FileStore) { s.log = l }
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string, fsys FileSystem, opts ...Option) (*FileStore, error) {
	if fsys == nil {
		return nil, errors.New("file system is required")
	}
	s := &FileStore{
		dir:       dir,
		fs:        fsys,
		threshold: DefaultCompressionThreshold,
		workers:   runtime.GOMAXPROCS(0),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.threshold <= 0 {
		return nil, fmt.Errorf("invalid compression threshold %d", s.threshold)
	}
	if s.workers < 0 {
		return nil, fmt.Errorf("invalid scan worker count %d", s.workers)
	}
	if s.workers == 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	if err := fsys.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return s, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Encoding returns the current encoding of id, preferring Compressed when
// both files are present.
func (s *FileStore) Encoding(ctx context.Context, id uuid.UUID) (Encoding, error) {
	for _, e := range []Encoding{Compressed, Plain} {
		ok, err := s.fs.Exists(s.path(id, e))
		if err != nil {
			return Absent, err
		}
		if ok {
			return e, nil
		}
	}
	return Absent, nil
}

// Exists reports whether either encoding of id is present.
func (s *FileStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	e, err := s.Encoding(ctx, id)
	return e != Absent, err
}

// Get returns the document id.
//
// Returns ErrNotFound if it is not stored and a *DecodeError if its file is
// corrupt.
func (s *FileStore) Get(ctx context.Context, id uuid.UUID) (doc *models.Document, err error) {
	defer observe("get", time.Now(), &err)
	e, err := s.Encoding(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == Absent {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	doc, err = s.read(s.path(id, e), e, id)
	if errors.Is(err, fs.ErrNotExist) {
		// Deleted between the existence check and the read.
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, err
}

// Add stores a new document.
//
// Returns ErrAlreadyExists if either encoding of doc.ID is present.
func (s *FileStore) Add(ctx context.Context, doc *models.Document) (err error) {
	defer observe("add", time.Now(), &err)
	if doc == nil || doc.ID == uuid.Nil {
		return errIDRequired
	}
	unlock := s.locks.lock(doc.ID)
	defer unlock()
	e, err := s.Encoding(ctx, doc.ID)
	if err != nil {
		return err
	}
	if e != Absent {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, doc.ID)
	}
	_, err = s.write(doc)
	return err
}

// Update overwrites an existing document, moving it to the other encoding
// when its size crossed the compression threshold.
//
// Returns ErrNotFound if neither encoding of doc.ID is present.
func (s *FileStore) Update(ctx context.Context, doc *models.Document) (err error) {
	defer observe("update", time.Now(), &err)
	if doc == nil || doc.ID == uuid.Nil {
		return errIDRequired
	}
	unlock := s.locks.lock(doc.ID)
	defer unlock()
	return s.update(ctx, doc)
}

// Modify loads id, calls fn on it and stores the result, holding the id's
// write lock throughout. Nothing is written when fn fails.
func (s *FileStore) Modify(ctx context.Context, id uuid.UUID, fn func(*models.Document) error) (doc *models.Document, err error) {
	defer observe("modify", time.Now(), &err)
	if id == uuid.Nil {
		return nil, errIDRequired
	}
	unlock := s.locks.lock(id)
	defer unlock()
	doc, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	doc.ID = id
	if err := s.update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes id and reports whether anything was removed.
//
// Both encodings are removed, so a stale plain copy left behind by an
// interrupted update does not resurface.
func (s *FileStore) Delete(ctx context.Context, id uuid.UUID) (deleted bool, err error) {
	defer observe("delete", time.Now(), &err)
	unlock := s.locks.lock(id)
	defer unlock()
	for _, e := range []Encoding{Compressed, Plain} {
		switch err := s.fs.Delete(s.path(id, e)); {
		case err == nil:
			deleted = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return deleted, err
		}
	}
	return deleted, nil
}

// ListAll returns every stored document, compressed ones first.
//
// The sequence is lazy and can be restarted by calling ListAll again. An entry
// that cannot be read yields an error and the iteration continues. When ctx is
// cancelled the sequence yields ctx.Err() once and stops.
func (s *FileStore) ListAll(ctx context.Context) iter.Seq2[*models.Document, error] {
	return func(yield func(*models.Document, error) bool) {
		entries, err := s.entries()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, ent := range entries {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			doc, err := s.readEntry(ent)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if !yield(doc, err) {
				return
			}
		}
	}
}

// Search returns the documents matching pred, in no particular order.
//
// Entries are read and evaluated concurrently. An entry whose predicate fails
// or panics is excluded; undecodable entries are logged and skipped. On
// cancellation the partial result is discarded and ctx.Err() is returned.
func (s *FileStore) Search(ctx context.Context, pred Predicate) (docs []*models.Document, err error) {
	defer observe("search", time.Now(), &err)
	return s.scan(ctx, pred)
}

// DeleteWhere deletes the documents matching pred and returns how many were
// deleted.
//
// Matching ids are collected by a concurrent scan then deleted concurrently.
// A failing deletion does not stop the others; all failures are returned
// together.
func (s *FileStore) DeleteWhere(ctx context.Context, pred Predicate) (n int, err error) {
	defer observe("delete_where", time.Now(), &err)
	matches, err := s.scan(ctx, pred)
	if err != nil {
		return 0, err
	}
	var (
		mu     sync.Mutex
		result *multierror.Error
		g      errgroup.Group
	)
	g.SetLimit(s.workers)
	for _, doc := range matches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			deleted, err := s.Delete(ctx, doc.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("failed to delete %s: %w", doc.ID, err))
			} else if deleted {
				n++
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		result = multierror.Append(result, err)
	}
	return n, result.ErrorOrNil()
}

// Count returns the number of readable documents.
func (s *FileStore) Count(ctx context.Context) (n int, err error) {
	defer observe("count", time.Now(), &err)
	for doc, err := range s.ListAll(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return 0, err
			}
			continue
		}
		if doc != nil {
			n++
		}
	}
	return n, nil
}

// entry is a document file found by a directory scan.
type entry struct {
	id   uuid.UUID
	path string
	enc  Encoding
	err  error
}

// entries lists the document files, compressed first. A plain file whose id
// also has a compressed file is omitted.
func (s *FileStore) entries() ([]entry, error) {
	var out []entry
	seen := map[uuid.UUID]struct{}{}
	for _, e := range []Encoding{Compressed, Plain} {
		paths, err := s.fs.ListFiles(s.dir, "*"+e.ext())
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			ent := entry{path: p, enc: e}
			ent.id, ent.err = idFromPath(p, e)
			if ent.err == nil {
				if _, ok := seen[ent.id]; ok {
					continue
				}
				seen[ent.id] = struct{}{}
			}
			out = append(out, ent)
		}
	}
	return out, nil
}

func (s *FileStore) readEntry(ent entry) (*models.Document, error) {
	if ent.err != nil {
		return nil, ent.err
	}
	return s.read(ent.path, ent.enc, ent.id)
}

// scan evaluates pred over every entry with a bounded worker pool.
func (s *FileStore) scan(ctx context.Context, pred Predicate) ([]*models.Document, error) {
	entries, err := s.entries()
	if err != nil {
		return nil, err
	}
	var (
		mu  sync.Mutex
		out []*models.Document
		g   errgroup.Group
	)
	g.SetLimit(s.workers)
	for _, ent := range entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			doc, err := s.readEntry(ent)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					metrics.RecordScanSkip()
					s.log.WarnContext(ctx, "skipping unreadable document", "path", ent.path, "err", err)
				}
				return nil
			}
			ok, err := evaluate(pred, doc)
			if err != nil {
				s.log.DebugContext(ctx, "predicate failed", "id", doc.ID, "err", err)
				return nil
			}
			if ok {
				mu.Lock()
				out = append(out, doc)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// evaluate calls pred, turning a panic into an error.
func evaluate(pred Predicate, doc *models.Document) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return pred(doc)
}

func (s *FileStore) update(ctx context.Context, doc *models.Document) error {
	old, err := s.Encoding(ctx, doc.ID)
	if err != nil {
		return err
	}
	if old == Absent {
		return fmt.Errorf("%w: %s", ErrNotFound, doc.ID)
	}
	e, err := s.write(doc)
	if err != nil {
		return err
	}
	// The new file is in place; only now drop the other encoding.
	stale := s.path(doc.ID, e.other())
	if err := s.fs.Delete(stale); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to remove stale %s encoding: %w", e.other(), err)
	}
	if old != e {
		metrics.RecordEncodingMigration(e.String())
		s.log.DebugContext(ctx, "document changed encoding", "id", doc.ID, "from", old, "to", e)
	}
	return nil
}

// write serializes doc and stores it under the encoding its size calls for.
func (s *FileStore) write(doc *models.Document) (Encoding, error) {
	if doc.Fields == nil {
		doc.Fields = map[string]jsonval.Value{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return Absent, fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}
	e := Plain
	if int64(len(data)) > s.threshold {
		e = Compressed
	}
	p := s.path(doc.ID, e)
	if e == Compressed {
		err = s.fs.WriteCompressed(p, data)
	} else {
		err = s.fs.WriteBytes(p, data)
	}
	if err != nil {
		return Absent, err
	}
	metrics.RecordDocumentWrite(e.String(), len(data))
	return e, nil
}

// read decodes the file at p and checks that it holds document want.
func (s *FileStore) read(p string, e Encoding, want uuid.UUID) (*models.Document, error) {
	var data []byte
	var err error
	if e == Compressed {
		data, err = s.fs.ReadCompressed(p)
	} else {
		data, err = s.fs.ReadBytes(p)
	}
	if err != nil {
		return nil, err
	}
	doc := &models.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &DecodeError{Path: p, Err: err}
	}
	if doc.ID != want {
		return nil, &DecodeError{Path: p, Err: fmt.Errorf("stored id %q does not match file name", doc.ID)}
	}
	if doc.Fields == nil {
		doc.Fields = map[string]jsonval.Value{}
	}
	return doc, nil
}

func (s *FileStore) path(id uuid.UUID, e Encoding) string {
	return filepath.Join(s.dir, id.String()+e.ext())
}

func idFromPath(p string, e Encoding) (uuid.UUID, error) {
	name := strings.TrimSuffix(filepath.Base(p), e.ext())
	id, err := uuid.Parse(name)
	if err != nil || id.String() != name {
		return uuid.Nil, &DecodeError{Path: p, Err: errors.New("file name is not a document id")}
	}
	return id, nil
}

// observe records a storage operation; a missing or duplicate document is
// an expected outcome, not an error.
func observe(op string, start time.Time, err *error) {
	result := "ok"
	switch {
	case *err == nil:
	case errors.Is(*err, ErrNotFound):
		result = "not_found"
	case errors.Is(*err, ErrAlreadyExists):
		result = "exists"
	default:
		result = "error"
	}
	metrics.RecordStorageOp(op, result, start)
}
