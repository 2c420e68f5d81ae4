// Package files converts uploaded files to and from the inline base64 form
// kept in the record store.
package files

import (
	"encoding/base64"
	"fmt"
	"io"

	"campusrecords/internal/apperr"
)

// DefaultContentType is used when a stored file has no type.
const DefaultContentType = "application/octet-stream"

// Input is a file as received from a form.
type Input struct {
	Name string
	Type string
	Size int64
	Body io.Reader
}

// Encoded is the stored form of a file.
type Encoded struct {
	Name       string
	Type       string
	Size       int64
	DataBase64 string
}

// Encode reads the whole body and returns it base64 encoded. maxBytes > 0
// rejects larger files with a validation error.
func Encode(in Input, maxBytes int64) (Encoded, error) {
	if in.Body == nil {
		return Encoded{}, &apperr.FileReadError{Name: in.Name, Err: fmt.Errorf("no content")}
	}
	if maxBytes > 0 && in.Size > maxBytes {
		return Encoded{}, tooLarge(maxBytes)
	}
	r := in.Body
	if maxBytes > 0 {
		r = io.LimitReader(in.Body, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Encoded{}, &apperr.FileReadError{Name: in.Name, Err: err}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Encoded{}, tooLarge(maxBytes)
	}
	return Encoded{
		Name:       in.Name,
		Type:       in.Type,
		Size:       int64(len(data)),
		DataBase64: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// EncodeAll encodes every input, stopping at the first failure.
func EncodeAll(ins []Input, maxBytes int64) ([]Encoded, error) {
	out := make([]Encoded, 0, len(ins))
	for _, in := range ins {
		enc, err := Encode(in, maxBytes)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

// Decode reconstructs the bytes of a stored file.
func Decode(name, dataBase64 string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(dataBase64)
	if err != nil {
		return nil, &apperr.FileReadError{Name: name, Err: err}
	}
	return data, nil
}

// ContentType returns t, or the default when t is empty.
func ContentType(t string) string {
	if t == "" {
		return DefaultContentType
	}
	return t
}

func tooLarge(maxBytes int64) error {
	return apperr.Invalid("file", fmt.Sprintf("File too large. Maximum %dMB allowed.", maxBytes/(1024*1024)))
}
