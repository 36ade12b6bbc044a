package window

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/logger"
)

const (
	TEST_FILE    = "test.txt"
	TEST_CONTENT = "test"

	CHOICE_ENCODING     = "encoding"
	CHOICE_CANONICALIZE = "canonicalize"
	ENCODING_CURRENT    = "current"
)

var encodings = []struct {
	id       string
	label    string
	encoding encoding.Encoding
}{
	{ENCODING_CURRENT, "Current Locale (UTF-8)", encoding.Nop},
	{"iso8859-15", "Western (ISO-8859-15)", charmap.ISO8859_15},
	{"utf-16", "Unicode (UTF-16)", unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
}

func saveChoices() []portal.Choice {
	options := make([][2]string, 0, len(encodings))
	for _, e := range encodings {
		options = append(options, [2]string{e.id, e.label})
	}
	return []portal.Choice{
		{ID: CHOICE_ENCODING, Label: "Character Encoding:", Options: options, Default: ENCODING_CURRENT},
		{ID: CHOICE_CANONICALIZE, Label: "Canonicalize", Default: "true"},
	}
}

// encodingLabel renders the choices picked in the save dialog.
func encodingLabel(choices map[string]string) string {
	label := ""
	for _, e := range encodings {
		if e.id == choices[CHOICE_ENCODING] {
			label = e.label
		}
	}
	if choices[CHOICE_CANONICALIZE] == "true" {
		label += " (canon)"
	}
	return label
}

func encoderFor(id string) encoding.Encoding {
	for _, e := range encodings {
		if e.id == id {
			return e.encoding
		}
	}
	return encoding.Nop
}

func fileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: path}).String()
}

func pathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a local file: %s", uri)
	}
	return u.Path, nil
}

// readImage loads the dimensions of the picture behind a file URI.
func readImage(uri string) (*Image, error) {
	path, err := pathFromURI(uri)
	if err != nil {
		return nil, &IOError{Op: "read", Path: uri, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Debug("[window] failed to close %s: %v", path, err)
		}
	}()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, &IOError{Op: "decode", Path: path, Err: err}
	}
	return &Image{URI: uri, Width: cfg.Width, Height: cfg.Height}, nil
}

// ensureTestFile creates the file handed to OpenURI and Email.
func ensureTestFile(dir string) (string, error) {
	path := filepath.Join(dir, TEST_FILE)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &IOError{Op: "create", Path: dir, Err: err}
	}
	if err := os.WriteFile(path, []byte(TEST_CONTENT+"\n"), 0o644); err != nil {
		return "", &IOError{Op: "write", Path: path, Err: err}
	}
	return path, nil
}

// writeTestFile writes the test content to path with the given method,
// encoded as the dialog asked.
func writeTestFile(method SaveMethod, path, encodingID string) error {
	data, err := encoderFor(encodingID).NewEncoder().Bytes([]byte(TEST_CONTENT))
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}

	switch method {
	case SaveAtomically:
		err = writeAtomically(path, data)
	case SaveDirect:
		err = writeDirect(path, data)
	case SaveNone:
		logger.Info("[window] not writing %s", path)
		return nil
	default:
		return fmt.Errorf("unknown save method %q", method)
	}
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	logger.Info("[window] wrote %s (%s, %s)", path, method, encodingID)
	return nil
}

func writeAtomically(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close(), os.Remove(tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(err, os.Remove(tmp.Name()))
	}
	return os.Rename(tmp.Name(), path)
}

// writeFD is swapped in tests to simulate short writes.
var writeFD = unix.Write

// writeDirect is creat(2), write(2), close(2) on the path the portal
// returned, which inside a sandbox is a document portal FUSE file.
func writeDirect(path string, data []byte) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return fmt.Errorf("creat failed: %w", err)
	}
	if err := writeAll(fd, data); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("write failed: %w", err)
	}
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := writeFD(fd, data)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n <= 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}
