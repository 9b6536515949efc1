package gofat

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// testTree describes a source tree. Names ending with a slash are directories.
type testTree map[string]string

var testTimestamp = time.Date(2021, 3, 14, 15, 9, 26, 0, time.UTC)

func testingSource(t *testing.T, tree testTree) afero.Fs {
	t.Helper()

	src := afero.NewMemMapFs()
	if err := src.MkdirAll("/src", 0755); err != nil {
		t.Fatal(err)
	}

	for name, content := range tree {
		p := path.Join("/src", name)
		if strings.HasSuffix(name, "/") {
			if err := src.MkdirAll(p, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}

		if err := src.MkdirAll(path.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(src, p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return src
}

// testingNew packs the tree into an image of exactly the required size.
func testingNew(t *testing.T, tree testTree, opts ...Option) (*Image, afero.Fs) {
	t.Helper()
	return testingCreate(t, testingSource(t, tree), 0, opts...)
}

// testingCreate packs /src of src into an image which is extra bytes bigger than needed.
func testingCreate(t *testing.T, src afero.Fs, extra int64, opts ...Option) (*Image, afero.Fs) {
	t.Helper()

	opts = append([]Option{WithTimestamp(testTimestamp), WithVolumeID(0xCAFE)}, opts...)

	capacity, err := RequiredCapacity(src, "/src", opts...)
	if err != nil {
		t.Fatalf("RequiredCapacity() error = %v", err)
	}

	dst := afero.NewMemMapFs()
	img, err := CreateImage(context.Background(), src, "/src", dst, "/fs.img", capacity+extra, opts...)
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}
	t.Cleanup(func() {
		_ = img.Close()
	})

	return img, dst
}

// testingContent reads all entries of the image. Directories end with a slash.
func testingContent(t *testing.T, img *Image) map[string]string {
	t.Helper()

	content := make(map[string]string)
	err := img.Walk(func(p string, entry DirectoryEntry) error {
		name := strings.TrimPrefix(p, "/")
		if entry.IsDir() {
			content[name+"/"] = ""
			return nil
		}

		data, err := img.ReadFile(entry)
		if err != nil {
			return err
		}
		content[name] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("Image.Walk() error = %v", err)
	}
	return content
}

// testingSourceContent reads all entries below /src in the same form as testingContent.
func testingSourceContent(t *testing.T, src afero.Fs) map[string]string {
	t.Helper()

	content := make(map[string]string)
	err := afero.Walk(src, "/src", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(filepath.ToSlash(p), "/src/")
		if p == "/src" {
			return nil
		}
		if info.IsDir() {
			content[name+"/"] = ""
			return nil
		}

		data, err := afero.ReadFile(src, p)
		if err != nil {
			return err
		}
		content[name] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("afero.Walk() error = %v", err)
	}
	return content
}

// testingReopen opens the image file written by testingNew again.
func testingReopen(t *testing.T, dst afero.Fs, opts ...Option) *Image {
	t.Helper()

	img, err := OpenImage(dst, "/fs.img", opts...)
	if err != nil {
		t.Fatalf("OpenImage() error = %v", err)
	}
	t.Cleanup(func() {
		_ = img.Close()
	})
	return img
}

// testingPatch overwrites bytes of the image file.
func testingPatch(t *testing.T, dst afero.Fs, offset int64, data []byte) {
	t.Helper()

	f, err := dst.OpenFile("/fs.img", os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.WriteAt(data, offset); err != nil {
		t.Fatal(err)
	}
}
