package files

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusrecords/internal/apperr"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestEncodeDecode(t *testing.T) {
	payload := []byte{0x00, 0xff, 'p', 'd', 'f'}
	enc, err := Encode(Input{Name: "a.pdf", Type: "application/pdf", Body: bytes.NewReader(payload)}, 0)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", enc.Name)
	assert.Equal(t, int64(len(payload)), enc.Size)
	assert.Equal(t, "AP9wZGY=", enc.DataBase64)

	out, err := Decode(enc.Name, enc.DataBase64)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestEncode_ReadFailure(t *testing.T) {
	_, err := Encode(Input{Name: "broken.pdf", Body: failingReader{}}, 0)
	require.Error(t, err)
	assert.True(t, apperr.IsFileRead(err))

	_, err = Encode(Input{Name: "empty"}, 0)
	assert.True(t, apperr.IsFileRead(err))
}

func TestEncode_SizeLimit(t *testing.T) {
	_, err := Encode(Input{Name: "big", Size: 11, Body: strings.NewReader("x")}, 10)
	assert.True(t, apperr.IsValidation(err))

	// a lying size hint is caught while reading
	_, err = Encode(Input{Name: "big", Body: strings.NewReader(strings.Repeat("x", 11))}, 10)
	assert.True(t, apperr.IsValidation(err))

	enc, err := Encode(Input{Name: "ok", Body: strings.NewReader(strings.Repeat("x", 10))}, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), enc.Size)
}

func TestEncodeAll_StopsAtFirstFailure(t *testing.T) {
	_, err := EncodeAll([]Input{
		{Name: "ok", Body: strings.NewReader("a")},
		{Name: "bad", Body: failingReader{}},
	}, 0)
	var fe *apperr.FileReadError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "bad", fe.Name)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("x", "%%%")
	assert.True(t, apperr.IsFileRead(err))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, DefaultContentType, ContentType(""))
	assert.Equal(t, "image/png", ContentType("image/png"))
}
