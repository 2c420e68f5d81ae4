// Package profile stores the self-maintained profile of each student.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"campusrecords/internal/apperr"
	"campusrecords/internal/bus"
	"campusrecords/internal/files"
	"campusrecords/internal/model"
	"campusrecords/internal/store"
)

// Service loads and saves student profiles.
type Service struct {
	store       *store.Store
	bus         *bus.Bus
	maxDocBytes int64
	mu          sync.Mutex
	now         func() time.Time
	log         *slog.Logger
}

// NewService creates a profile service. maxDocBytes <= 0 uses DefaultMaxDocumentBytes.
func NewService(st *store.Store, b *bus.Bus, maxDocBytes int64) *Service {
	if maxDocBytes <= 0 {
		maxDocBytes = DefaultMaxDocumentBytes
	}
	return &Service{
		store:       st,
		bus:         b,
		maxDocBytes: maxDocBytes,
		now:         time.Now,
		log:         slog.Default().With("component", "profile"),
	}
}

// Load returns the stored profile of studentID, or nil when there is none.
func (s *Service) Load(ctx context.Context, studentID string) (*model.StudentProfile, error) {
	var p model.StudentProfile
	ok, err := s.store.GetJSON(ctx, store.ProfileKey(studentID), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// Edit starts a draft from the stored profile of acc.
func (s *Service) Edit(ctx context.Context, acc *model.Account) (*Draft, error) {
	if err := studentOnly(acc); err != nil {
		return nil, err
	}
	p, err := s.Load(ctx, acc.StudentID())
	if err != nil {
		return nil, err
	}
	d := NewDraft(p)
	d.maxDocBytes = s.maxDocBytes
	d.now = s.now
	return d, nil
}

// Save overwrites the profile of acc with the draft and broadcasts it.
func (s *Service) Save(ctx context.Context, acc *model.Account, d *Draft) (*model.StudentProfile, error) {
	if err := studentOnly(acc); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, acc, d)
}

// Update applies edit to a draft of the stored profile of acc and saves
// the result. Concurrent updates of one profile are applied one after the
// other. An error from edit aborts without writing.
func (s *Service) Update(ctx context.Context, acc *model.Account, edit func(*Draft) error) (*model.StudentProfile, error) {
	if err := studentOnly(acc); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.Edit(ctx, acc)
	if err != nil {
		return nil, err
	}
	if err := edit(d); err != nil {
		return nil, err
	}
	return s.save(ctx, acc, d)
}

func (s *Service) save(ctx context.Context, acc *model.Account, d *Draft) (*model.StudentProfile, error) {
	if d == nil {
		d = &Draft{}
	}
	id := acc.StudentID()
	p := &model.StudentProfile{
		StudentID:      id,
		Bio:            d.Bio,
		Skills:         nonNil(d.Skills),
		SocialProfiles: nonNil(d.SocialProfiles),
		PortfolioURL:   d.PortfolioURL,
		Documents:      nonNil(d.Documents),
		Achievements:   nonNil(d.Achievements),
		LastUpdated:    model.Millis(s.now()),
	}
	if err := s.store.SetJSON(ctx, store.ProfileKey(id), p); err != nil {
		return nil, err
	}
	s.log.Info("profile saved", "student", id, "documents", len(p.Documents))
	s.bus.Publish(bus.TopicProfileUpdated, p)
	return p, nil
}

// DownloadDocument returns a stored document of studentID with its bytes.
func (s *Service) DownloadDocument(ctx context.Context, studentID, docID string) (model.Document, []byte, error) {
	p, err := s.Load(ctx, studentID)
	if err != nil {
		return model.Document{}, nil, err
	}
	if p != nil {
		for _, doc := range p.Documents {
			if doc.ID == docID {
				data, err := files.Decode(doc.Name, doc.DataBase64)
				return doc, data, err
			}
		}
	}
	return model.Document{}, nil, fmt.Errorf("document %q: %w", docID, apperr.ErrNotFound)
}

func studentOnly(acc *model.Account) error {
	if acc == nil || acc.Role != model.RoleStudent {
		return apperr.Forbidden("This page is only accessible to students.")
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
