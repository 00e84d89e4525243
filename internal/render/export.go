package render

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/z-chat/internal/model/chat"
)

// Transcript is the exported form of a finished session.
type Transcript struct {
	Session    string      `yaml:"session"`
	Endpoint   string      `yaml:"endpoint,omitempty"`
	ExportedAt time.Time   `yaml:"exported_at"`
	Turns      []chat.Turn `yaml:"turns"`
}

// ExportYAML writes t as a YAML document.
func ExportYAML(w io.Writer, t Transcript) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return errors.Wrap(err, "failed to encode transcript")
	}
	return errors.Wrap(enc.Close(), "failed to flush transcript")
}

// WriteYAMLFile exports t to path, replacing any existing file.
func WriteYAMLFile(path string, t Transcript) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", path)
		}
	}()

	return ExportYAML(f, t)
}

// ReadYAMLFile loads a transcript previously written by WriteYAMLFile.
func ReadYAMLFile(path string) (Transcript, error) {
	var t Transcript

	data, err := os.ReadFile(path)
	if err != nil {
		return t, errors.Wrapf(err, "failed to read %s", path)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, errors.Wrapf(err, "failed to decode %s", path)
	}
	return t, nil
}
