package window

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestEncodingLabel(t *testing.T) {
	tests := []struct {
		choices map[string]string
		want    string
	}{
		{map[string]string{CHOICE_ENCODING: "current"}, "Current Locale (UTF-8)"},
		{map[string]string{CHOICE_ENCODING: "utf-16", CHOICE_CANONICALIZE: "true"}, "Unicode (UTF-16) (canon)"},
		{map[string]string{CHOICE_ENCODING: "iso8859-15", CHOICE_CANONICALIZE: "false"}, "Western (ISO-8859-15)"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := encodingLabel(tt.choices); got != tt.want {
			t.Errorf("encodingLabel(%v) = %q, want %q", tt.choices, got, tt.want)
		}
	}
}

func TestSaveChoices(t *testing.T) {
	choices := saveChoices()
	if len(choices) != 2 {
		t.Fatalf("got %d choices, want 2", len(choices))
	}
	if choices[0].ID != CHOICE_ENCODING || len(choices[0].Options) != 3 || choices[0].Default != ENCODING_CURRENT {
		t.Errorf("encoding choice = %+v", choices[0])
	}
	if choices[1].ID != CHOICE_CANONICALIZE || choices[1].Options != nil || choices[1].Default != "true" {
		t.Errorf("canonicalize choice = %+v", choices[1])
	}
}

func TestPathFromURI(t *testing.T) {
	path, err := pathFromURI("file:///tmp/some%20file.txt")
	if err != nil || path != "/tmp/some file.txt" {
		t.Errorf("pathFromURI() = (%q, %v)", path, err)
	}
	if _, err := pathFromURI("https://example.org/file"); err == nil {
		t.Error("remote URIs should be rejected")
	}
	if got := fileURI("/tmp/some file.txt"); got != "file:///tmp/some%20file.txt" {
		t.Errorf("fileURI() = %q", got)
	}
}

func TestWriteTestFile(t *testing.T) {
	tests := []struct {
		method   SaveMethod
		encoding string
		want     []byte
	}{
		{SaveAtomically, "current", []byte("test")},
		{SaveDirect, "current", []byte("test")},
		{SaveAtomically, "iso8859-15", []byte("test")},
		{SaveDirect, "utf-16", []byte{0xff, 0xfe, 't', 0, 'e', 0, 's', 0, 't', 0}},
	}
	for _, tt := range tests {
		t.Run(string(tt.method)+"/"+tt.encoding, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "out.txt")
			if err := os.WriteFile(path, []byte("previous content"), 0o644); err != nil {
				t.Fatal(err)
			}
			if err := writeTestFile(tt.method, path, tt.encoding); err != nil {
				t.Fatalf("writeTestFile() = %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("file = %x, want %x", got, tt.want)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 1 {
				t.Errorf("dir has %d entries, temp files should be gone", len(entries))
			}
		})
	}
}

func TestWriteTestFile_None(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := writeTestFile(SaveNone, path, "current"); err != nil {
		t.Fatalf("writeTestFile() = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("none should not create the file, stat = %v", err)
	}
}

func TestWriteTestFile_Error(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.txt")
	for _, method := range []SaveMethod{SaveAtomically, SaveDirect} {
		err := writeTestFile(method, path, "current")
		var ioErr *IOError
		if !errors.As(err, &ioErr) || ioErr.Op != "write" {
			t.Errorf("%s: writeTestFile() = %v, want write IOError", method, err)
		}
	}
}

func TestWriteDirect_ShortWrites(t *testing.T) {
	calls := 0
	writeFD = func(fd int, p []byte) (int, error) {
		calls++
		if calls == 2 {
			return 0, unix.EINTR
		}
		// two bytes at a time
		return unix.Write(fd, p[:min(2, len(p))])
	}
	t.Cleanup(func() { writeFD = unix.Write })

	path := filepath.Join(t.TempDir(), TEST_FILE)
	data := []byte("portal test")
	if err := writeDirect(path, data); err != nil {
		t.Fatalf("writeDirect() = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("file = %q, want %q", got, data)
	}

	writeFD = func(int, []byte) (int, error) { return 0, nil }
	if err := writeDirect(path, data); !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("writeDirect() with a stuck fd = %v, want io.ErrShortWrite", err)
	}
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadImage(t *testing.T) {
	path := writePNG(t, 32, 16)
	img, err := readImage(fileURI(path))
	if err != nil {
		t.Fatalf("readImage() = %v", err)
	}
	if img.Width != 32 || img.Height != 16 {
		t.Errorf("image = %+v, want 32x16", img)
	}

	garbage := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(garbage, []byte("not a picture"), 0o644); err != nil {
		t.Fatal(err)
	}
	var ioErr *IOError
	if _, err := readImage(fileURI(garbage)); !errors.As(err, &ioErr) || ioErr.Op != "decode" {
		t.Errorf("readImage(garbage) = %v, want decode IOError", err)
	}
	if _, err := readImage("file:///nonexistent/shot.png"); !errors.As(err, &ioErr) || ioErr.Op != "read" {
		t.Errorf("readImage(missing) = %v, want read IOError", err)
	}
}

func TestEnsureTestFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "portal-test")
	path, err := ensureTestFile(dir)
	if err != nil {
		t.Fatalf("ensureTestFile() = %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != TEST_CONTENT+"\n" {
		t.Errorf("test file = %q", got)
	}
	if again, err := ensureTestFile(dir); err != nil || again != path {
		t.Errorf("second ensureTestFile() = (%q, %v)", again, err)
	}
}
