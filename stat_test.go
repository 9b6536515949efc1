package gofat

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestDirectoryEntry_FileInfo(t *testing.T) {
	tests := []struct {
		name  string
		entry DirectoryEntry
		want  os.FileInfo
	}{
		{
			name: "it just has to be the same",
			entry: DirectoryEntry{
				Name:         "huhu",
				ShortName:    [11]byte{'H', 'E', 'L', 'L', 'O', ' ', ' ', ' ', 'T', 'X', 'T'},
				Attributes:   AttrDirectory,
				FirstCluster: 5<<16 | 8,
				Size:         9,
			},
			want: entryFileInfo{
				entry: DirectoryEntry{
					Name:         "huhu",
					ShortName:    [11]byte{'H', 'E', 'L', 'L', 'O', ' ', ' ', ' ', 'T', 'X', 'T'},
					Attributes:   AttrDirectory,
					FirstCluster: 5<<16 | 8,
					Size:         9,
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.FileInfo(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DirectoryEntry.FileInfo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_entryFileInfo_Name(t *testing.T) {
	tests := []struct {
		name  string
		entry DirectoryEntry
		want  string
	}{
		{
			name: "only 8.3 filename",
			entry: DirectoryEntry{
				ShortName: [11]byte{'H', 'E', 'L', 'L', 'O', ' ', ' ', ' ', 'T', 'X', 'T'},
			},
			want: "HELLO.TXT",
		},
		{
			name: "only 8.3 short extension",
			entry: DirectoryEntry{
				ShortName: [11]byte{'H', 'E', 'L', 'L', 'O', ' ', ' ', ' ', 'T', 'X', ' '},
			},
			want: "HELLO.TX",
		},
		{
			name: "only 8.3 no extension",
			entry: DirectoryEntry{
				ShortName: [11]byte{'H', 'E', 'L', 'L', 'O', ' ', ' ', ' ', ' ', ' ', ' '},
			},
			want: "HELLO",
		},
		{
			name: "8.3 with lower case flags",
			entry: DirectoryEntry{
				ShortName: [11]byte{'H', 'E', 'L', 'L', 'O', ' ', ' ', ' ', 'T', 'X', 'T'},
				caseFlags: caseLowerBase | caseLowerExt,
			},
			want: "hello.txt",
		},
		{
			name: "with long filename",
			entry: DirectoryEntry{
				Name:      "HelloWorldThisIsALoongFileName.txt",
				ShortName: [11]byte{'H', 'E', 'L', 'L', 'O', 'W', '~', '1', 'T', 'X', 'T'},
			},
			want: "HelloWorldThisIsALoongFileName.txt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entryFileInfo{entry: tt.entry}
			if got := e.Name(); got != tt.want {
				t.Errorf("entryFileInfo.Name() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_entryFileInfo_Size(t *testing.T) {
	tests := []struct {
		name  string
		entry DirectoryEntry
		want  int64
	}{
		{
			name:  "file",
			entry: DirectoryEntry{Size: 5555},
			want:  5555,
		},
		{
			name:  "biggest possible file",
			entry: DirectoryEntry{Size: 0xFFFFFFFF},
			want:  4294967295,
		},
		{
			name:  "directory",
			entry: DirectoryEntry{Attributes: AttrDirectory},
			want:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entryFileInfo{entry: tt.entry}
			if got := e.Size(); got != tt.want {
				t.Errorf("entryFileInfo.Size() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_entryFileInfo_Mode(t *testing.T) {
	tests := []struct {
		name  string
		entry DirectoryEntry
		want  os.FileMode
	}{
		{
			name:  "file",
			entry: DirectoryEntry{Attributes: AttrArchive},
			want:  0644,
		},
		{
			name:  "read only file",
			entry: DirectoryEntry{Attributes: AttrArchive | AttrReadOnly},
			want:  0444,
		},
		{
			name:  "directory",
			entry: DirectoryEntry{Attributes: AttrDirectory},
			want:  os.ModeDir | 0755,
		},
		{
			name:  "read only directory",
			entry: DirectoryEntry{Attributes: AttrDirectory | AttrReadOnly},
			want:  os.ModeDir | 0555,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entryFileInfo{entry: tt.entry}
			if got := e.Mode(); got != tt.want {
				t.Errorf("entryFileInfo.Mode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_entryFileInfo_ModTime(t *testing.T) {
	tests := []struct {
		name  string
		entry DirectoryEntry
		want  time.Time
	}{
		{
			name:  "set",
			entry: DirectoryEntry{ModTime: time.Date(2020, 12, 26, 20, 30, 32, 0, time.UTC)},
			want:  time.Date(2020, 12, 26, 20, 30, 32, 0, time.UTC),
		},
		{
			name:  "unset",
			entry: DirectoryEntry{},
			want:  time.Time{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entryFileInfo{entry: tt.entry}
			if got := e.ModTime(); !got.Equal(tt.want) {
				t.Errorf("entryFileInfo.ModTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_entryFileInfo_IsDir(t *testing.T) {
	tests := []struct {
		name  string
		entry DirectoryEntry
		want  bool
	}{
		{
			name:  "file",
			entry: DirectoryEntry{Attributes: AttrArchive},
			want:  false,
		},
		{
			name:  "directory",
			entry: DirectoryEntry{Attributes: AttrDirectory | AttrHidden},
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entryFileInfo{entry: tt.entry}
			if got := e.IsDir(); got != tt.want {
				t.Errorf("entryFileInfo.IsDir() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_entryFileInfo_Sys(t *testing.T) {
	entry := DirectoryEntry{Name: "sys", FirstCluster: 42}
	e := entryFileInfo{entry: entry}

	got, ok := e.Sys().(DirectoryEntry)
	if !ok {
		t.Fatalf("entryFileInfo.Sys() = %T, want DirectoryEntry", e.Sys())
	}
	if !reflect.DeepEqual(got, entry) {
		t.Errorf("entryFileInfo.Sys() = %v, want %v", got, entry)
	}
}
