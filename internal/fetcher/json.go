package fetcher

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// DecodeJSONObject decodes a single JSON object from a reader.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}

// ReadJSONFile decodes the JSON object stored at path. A missing file is not
// an error: found is false and obj is nil.
func ReadJSONFile[T any](path string) (obj *T, found bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "json: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	obj, err = DecodeJSONObject[T](f)
	if err != nil {
		return nil, true, eris.Wrapf(err, "json: %s", path)
	}
	return obj, true, nil
}

// WriteJSONFile writes v as indented JSON. The file is written next to path
// and renamed into place so readers never see a partial document.
func WriteJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return eris.Wrap(err, "json: marshal")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "json: create dir %s", dir)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return eris.Wrap(err, "json: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "json: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "json: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "json: rename into %s", path)
	}
	return nil
}
