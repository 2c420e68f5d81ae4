package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusrecords/internal/apperr"
	"campusrecords/internal/bus"
	"campusrecords/internal/files"
	"campusrecords/internal/model"
	"campusrecords/internal/store"
)

var student = &model.Account{Method: model.MethodEmail, Email: "jane@college.edu", Role: model.RoleStudent, UserID: "u-1"}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	s := NewService(store.New(store.NewMemory()), b, 0)
	s.now = func() time.Time { return time.UnixMilli(42) }

	var updates []*model.StudentProfile
	b.Subscribe(bus.TopicProfileUpdated, func(ev bus.Event) {
		p, ok := bus.As[*model.StudentProfile](ev)
		require.True(t, ok)
		updates = append(updates, p)
	})

	p, err := s.Load(ctx, student.StudentID())
	require.NoError(t, err)
	assert.Nil(t, p)

	d, err := s.Edit(ctx, student)
	require.NoError(t, err)
	d.Bio = "Third year"
	d.AddSkill("Go")
	_, err = d.AddDocument(files.Input{Name: "cv.pdf", Body: strings.NewReader("cv")}, model.DocResume)
	require.NoError(t, err)

	saved, err := s.Save(ctx, student, d)
	require.NoError(t, err)
	assert.Equal(t, "u-1", saved.StudentID)
	assert.Equal(t, int64(42), saved.LastUpdated)
	assert.Empty(t, saved.Achievements)
	require.Len(t, updates, 1)
	assert.Equal(t, "Third year", updates[0].Bio)

	loaded, err := s.Load(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	doc, data, err := s.DownloadDocument(ctx, "u-1", loaded.Documents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", doc.Name)
	assert.Equal(t, "cv", string(data))

	_, _, err = s.DownloadDocument(ctx, "u-1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSave_StudentOnly(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	published := 0
	b.Subscribe(bus.TopicProfileUpdated, func(bus.Event) { published++ })
	s := NewService(store.New(store.NewMemory()), b, 0)

	admin := &model.Account{Method: model.MethodEmail, Email: "a@x", Role: model.RoleAdmin}
	_, err := s.Save(ctx, admin, NewDraft(nil))
	assert.True(t, apperr.IsPermission(err))
	_, err = s.Save(ctx, nil, NewDraft(nil))
	assert.True(t, apperr.IsPermission(err))
	_, err = s.Edit(ctx, admin)
	assert.True(t, apperr.IsPermission(err))
	assert.Zero(t, published)
}

func TestSave_WalletStudentKeyedByAddress(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.New(store.NewMemory()), bus.New(), 0)
	acc := &model.Account{Method: model.MethodWallet, Address: "0xabc", Role: model.RoleStudent}

	_, err := s.Save(ctx, acc, NewDraft(nil))
	require.NoError(t, err)
	p, err := s.Load(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "0xabc", p.StudentID)
}

func TestUpdate_ConcurrentDocumentsAreAllKept(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.New(store.NewMemory()), bus.New(), 0)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Update(ctx, student, func(d *Draft) error {
				_, err := d.AddDocument(files.Input{Name: fmt.Sprintf("cert-%d.pdf", i), Body: strings.NewReader("x")}, model.DocCertificate)
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	p, err := s.Load(ctx, student.StudentID())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Len(t, p.Documents, n)
}

func TestUpdate_EditErrorAbortsWithoutSaving(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	published := 0
	b.Subscribe(bus.TopicProfileUpdated, func(bus.Event) { published++ })
	s := NewService(store.New(store.NewMemory()), b, 0)

	boom := errors.New("boom")
	_, err := s.Update(ctx, student, func(d *Draft) error {
		d.Bio = "never stored"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Update(ctx, &model.Account{Role: model.RoleAdmin}, func(*Draft) error { return nil })
	assert.True(t, apperr.IsPermission(err))

	p, err := s.Load(ctx, student.StudentID())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Zero(t, published)
}
