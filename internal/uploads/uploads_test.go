package uploads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusrecords/internal/apperr"
	"campusrecords/internal/bus"
	"campusrecords/internal/files"
	"campusrecords/internal/model"
	"campusrecords/internal/store"
)

var admin = &model.Account{Method: model.MethodEmail, Email: "admin@college.edu", Role: model.RoleAdmin, CanUpload: true}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("File read error") }

func newService() (*Service, *bus.Bus) {
	b := bus.New()
	return NewService(store.New(store.NewMemory()), b), b
}

func TestSubmit_JaneDoeScenario(t *testing.T) {
	ctx := context.Background()
	s, b := newService()
	var published []model.UploadEntry
	b.Subscribe(bus.TopicUpload, func(ev bus.Event) {
		e, ok := bus.As[model.UploadEntry](ev)
		require.True(t, ok)
		published = append(published, e)
	})

	entry, err := s.Submit(ctx, admin, model.StudentDetails{Name: "Jane Doe", Roll: "R100"}, nil, nil)
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "R100", list[0].Student.Roll)
	assert.Empty(t, list[0].Documents)
	assert.Equal(t, entry.ID, list[0].ID)
	require.Len(t, published, 1)
	assert.Equal(t, entry.ID, published[0].ID)
}

func TestSubmit_NewestFirstAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newService()

	for i := 0; i < 5; i++ {
		details := model.StudentDetails{Name: fmt.Sprintf("Student %d", i), Roll: fmt.Sprintf("R%03d", i), Program: "BSc"}
		entry, err := s.Submit(ctx, admin, details, nil, nil)
		require.NoError(t, err)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, i+1)
		assert.Equal(t, entry.ID, list[0].ID)
		assert.Equal(t, details, list[0].Student)
	}
}

func TestSubmit_WithoutUploadRightNeverMutates(t *testing.T) {
	ctx := context.Background()
	s, b := newService()
	published := 0
	b.Subscribe(bus.TopicUpload, func(bus.Event) { published++ })

	accounts := []*model.Account{
		nil,
		{Method: model.MethodEmail, Role: model.RoleAdmin, CanUpload: false},
		{Method: model.MethodWallet, Role: model.RoleStudent},
	}
	inputs := []model.StudentDetails{{Name: "Jane", Roll: "R1"}, {}}
	for _, acc := range accounts {
		for _, in := range inputs {
			_, err := s.Submit(ctx, acc, in, nil, nil)
			assert.True(t, apperr.IsPermission(err))
		}
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, published)
}

func TestSubmit_RequiresNameAndRoll(t *testing.T) {
	ctx := context.Background()
	s, _ := newService()

	for _, d := range []model.StudentDetails{{Name: "Jane"}, {Roll: "R1"}, {Name: "  ", Roll: "R1"}} {
		_, err := s.Submit(ctx, admin, d, nil, nil)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, "Student name and roll are required.", err.Error())
	}
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_FileReadFailureAbortsWithoutSaving(t *testing.T) {
	ctx := context.Background()
	s, _ := newService()

	_, err := s.Submit(ctx, admin, model.StudentDetails{Name: "Jane", Roll: "R1"},
		[]files.Input{{Name: "ok.pdf", Body: strings.NewReader("ok")}},
		[]files.Input{{Name: "sem1.pdf", Body: brokenReader{}}},
	)
	require.Error(t, err)
	assert.True(t, apperr.IsFileRead(err))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_StorageFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	published := 0
	b.Subscribe(bus.TopicUpload, func(bus.Event) { published++ })
	s := NewService(store.New(store.NewMemoryWithQuota(64)), b)

	_, err := s.Submit(ctx, admin, model.StudentDetails{Name: "Jane", Roll: "R1"},
		[]files.Input{{Name: "big.bin", Body: strings.NewReader(strings.Repeat("x", 1024))}}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsStorage(err))
	assert.Zero(t, published)
}

func TestRemoveAndDownload(t *testing.T) {
	ctx := context.Background()
	s, _ := newService()

	first, err := s.Submit(ctx, admin, model.StudentDetails{Name: "A", Roll: "R1"},
		[]files.Input{{Name: "id.png", Type: "image/png", Body: strings.NewReader("png-bytes")}},
		[]files.Input{{Name: "sem1.pdf", Body: strings.NewReader("pdf-bytes")}},
	)
	require.NoError(t, err)
	second, err := s.Submit(ctx, admin, model.StudentDetails{Name: "B", Roll: "R2"}, nil, nil)
	require.NoError(t, err)

	f, data, err := s.Download(ctx, first.ID, "id.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.Type)
	assert.Equal(t, "png-bytes", string(data))

	f, data, err = s.Download(ctx, first.ID, "sem1.pdf")
	require.NoError(t, err)
	assert.Equal(t, files.DefaultContentType, f.Type)
	assert.Equal(t, "pdf-bytes", string(data))

	_, _, err = s.Download(ctx, first.ID, "missing.pdf")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, _, err = s.Download(ctx, "nope", "id.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, s.Remove(ctx, first.ID))
	require.NoError(t, s.Remove(ctx, "unknown"))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}
