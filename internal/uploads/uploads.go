// Package uploads implements the admin upload workflow for student records.
package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusrecords/internal/apperr"
	"campusrecords/internal/bus"
	"campusrecords/internal/files"
	"campusrecords/internal/model"
	"campusrecords/internal/store"
)

// Service stores upload entries most-recent first.
type Service struct {
	store *store.Store
	bus   *bus.Bus
	mu    sync.Mutex
	now   func() time.Time
	log   *slog.Logger
}

// NewService creates an upload service.
func NewService(st *store.Store, b *bus.Bus) *Service {
	return &Service{
		store: st,
		bus:   b,
		now:   time.Now,
		log:   slog.Default().With("component", "uploads"),
	}
}

// Submit saves a new entry for student with its documents and mark sheets.
// The caller's account must be allowed to upload. Files are read in full
// before anything is written; any failure leaves the list unchanged.
func (s *Service) Submit(ctx context.Context, acc *model.Account, student model.StudentDetails, docs, marksheets []files.Input) (model.UploadEntry, error) {
	if acc == nil || !acc.CanUpload {
		return model.UploadEntry{}, apperr.Forbidden("You do not have permission to upload. Contact admin.")
	}
	if strings.TrimSpace(student.Name) == "" || strings.TrimSpace(student.Roll) == "" {
		return model.UploadEntry{}, apperr.Invalid("student", "Student name and roll are required.")
	}

	docFiles, err := encode(docs)
	if err != nil {
		return model.UploadEntry{}, err
	}
	markFiles, err := encode(marksheets)
	if err != nil {
		return model.UploadEntry{}, err
	}

	entry := model.UploadEntry{
		ID:         uuid.NewString(),
		CreatedAt:  model.Millis(s.now()),
		Student:    student,
		Documents:  docFiles,
		Marksheets: markFiles,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.List(ctx)
	if err != nil {
		return model.UploadEntry{}, err
	}
	next := make([]model.UploadEntry, 0, len(entries)+1)
	next = append(next, entry)
	next = append(next, entries...)
	if err := s.store.SetJSON(ctx, store.KeyUploads, next); err != nil {
		return model.UploadEntry{}, err
	}
	s.log.Info("upload saved", "id", entry.ID, "roll", student.Roll, "documents", len(docFiles), "marksheets", len(markFiles))
	s.bus.Publish(bus.TopicUpload, entry)
	return entry, nil
}

// List returns every entry, most recent first. Entries are not filtered by
// student.
func (s *Service) List(ctx context.Context) ([]model.UploadEntry, error) {
	var entries []model.UploadEntry
	if _, err := s.store.GetJSON(ctx, store.KeyUploads, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Remove deletes the entry with id. There is no ownership check; an unknown
// id is a no-op.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.List(ctx)
	if err != nil {
		return err
	}
	next := make([]model.UploadEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			next = append(next, e)
		}
	}
	if len(next) == len(entries) {
		return nil
	}
	if err := s.store.SetJSON(ctx, store.KeyUploads, next); err != nil {
		return err
	}
	s.log.Info("upload removed", "id", id)
	return nil
}

// Download returns a stored file of an entry together with its bytes.
// Documents are searched before mark sheets.
func (s *Service) Download(ctx context.Context, entryID, name string) (model.UploadFile, []byte, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return model.UploadFile{}, nil, err
	}
	for _, e := range entries {
		if e.ID != entryID {
			continue
		}
		for _, f := range append(append([]model.UploadFile{}, e.Documents...), e.Marksheets...) {
			if f.Name != name {
				continue
			}
			data, err := files.Decode(f.Name, f.DataBase64)
			if err != nil {
				return model.UploadFile{}, nil, err
			}
			f.Type = files.ContentType(f.Type)
			return f, data, nil
		}
		return model.UploadFile{}, nil, fmt.Errorf("file %q: %w", name, apperr.ErrNotFound)
	}
	return model.UploadFile{}, nil, fmt.Errorf("entry %q: %w", entryID, apperr.ErrNotFound)
}

func encode(ins []files.Input) ([]model.UploadFile, error) {
	encoded, err := files.EncodeAll(ins, 0)
	if err != nil {
		return nil, err
	}
	out := make([]model.UploadFile, 0, len(encoded))
	for _, e := range encoded {
		out = append(out, model.UploadFile{Name: e.Name, Type: e.Type, Size: e.Size, DataBase64: e.DataBase64})
	}
	return out, nil
}
