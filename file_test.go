package gofat

import (
	"errors"
	"io"
	"os"
	"reflect"
	"syscall"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
)

// fileTestFields is essentially a copy of the File struct used to fill the
// unit under test in test cases.
type fileTestFields struct {
	isDirectory  bool
	firstCluster uint32
	stat         os.FileInfo
	offset       int64
}

// fakeFileInfo is just a fake FileInfo which does nothing and contains only
// someData to have something to check equality.
type fakeFileInfo struct {
	someData string
	fileSize int64
}

func (f fakeFileInfo) Name() string       { return "" }
func (f fakeFileInfo) Size() int64        { return f.fileSize }
func (f fakeFileInfo) Mode() os.FileMode  { return 0 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() interface{}   { return nil }

// fileTestsError is just a error used in tests for File.
var fileTestsError = errors.New("a super error")

// fileTestsChain is the cluster chain the mocked image returns for every file.
var fileTestsChain = ClusterChain{3, 4}

func TestFile_Close(t *testing.T) {
	tests := []struct {
		name    string
		fields  fileTestFields
		wantErr bool
	}{
		{
			name: "just close and reset all fields",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 5,
				stat:         entryFileInfo{},
				offset:       7,
			},
		},
	}

	fEmpty := File{}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &File{
				fs:           &Image{},
				isDirectory:  tt.fields.isDirectory,
				clusters:     ClusterChain{5, 6},
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}
			if err := f.Close(); (err != nil) != tt.wantErr {
				t.Errorf("File.Close() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && !reflect.DeepEqual(*f, fEmpty) {
				t.Errorf("File.Close() did not reset all fields: File = %v want = %v", *f, fEmpty)
			}
		})
	}
}

func TestFile_Read(t *testing.T) {
	type args struct {
		p []byte
	}
	type mock struct {
		readAtResult []byte
		readAtError  error
	}
	tests := []struct {
		name     string
		mockData mock
		fields   fileTestFields
		args     args
		wantN    int
		wantErr  error
	}{
		{
			name: "simple file",
			mockData: mock{
				readAtResult: []byte{'H', 'e', 'l', 'l', '0', ' ', 'W', 'o', 'r', 'l', 'd'},
				readAtError:  nil,
			},
			fields: fileTestFields{
				firstCluster: 0,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: make([]byte, 11),
			},
			wantN:   11,
			wantErr: nil,
		},
		{
			name: "simple file with offset",
			mockData: mock{
				readAtResult: []byte{' ', 'W', 'o', 'r', 'l', 'd'},
				readAtError:  nil,
			},
			fields: fileTestFields{
				firstCluster: 0,
				offset:       5,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: make([]byte, 6),
			},
			wantN:   6,
			wantErr: nil,
		},
		{
			name: "error while reading",
			mockData: mock{
				readAtResult: []byte{'H'}, // Simulate error after some bytes are already read.
				readAtError:  fileTestsError,
			},
			fields: fileTestFields{
				firstCluster: 0,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: make([]byte, 11),
			},
			wantN:   1,
			wantErr: fileTestsError,
		},
		{
			name: "file smaller than buffer",
			mockData: mock{
				readAtResult: []byte{'H', 'e', 'l', 'l', '0', ' ', 'W', 'o', 'r', 'l', 'd'},
				readAtError:  io.EOF,
			},
			fields: fileTestFields{
				firstCluster: 0,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: make([]byte, 20),
			},
			wantN:   11,
			wantErr: io.EOF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			mockFs := NewMockfatFileFs(mockCtrl)
			mockFs.EXPECT().
				fileChain(tt.fields.firstCluster).
				MaxTimes(1).
				Return(fileTestsChain, nil)
			mockFs.EXPECT().
				readChainAt(fileTestsChain, tt.fields.stat.Size(), tt.fields.offset, int64(len(tt.args.p))).
				MaxTimes(1).
				Return(tt.mockData.readAtResult, tt.mockData.readAtError)

			f := &File{
				fs:           mockFs,
				isDirectory:  tt.fields.isDirectory,
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}

			gotN, err := f.Read(tt.args.p)

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Read() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if gotN != tt.wantN {
				t.Errorf("File.Read() = %v, want %v", gotN, tt.wantN)
			}
		})
	}
}

func TestFile_ReadAt(t *testing.T) {
	type args struct {
		p   []byte
		off int64
	}
	type mock struct {
		readAtResult []byte
		readAtError  error
	}
	tests := []struct {
		name     string
		fields   fileTestFields
		args     args
		mockData mock
		wantN    int
		wantErr  error
	}{
		{
			name: "simple file",
			mockData: mock{
				readAtResult: []byte{'e', 'l', 'l', '0', ' ', 'W', 'o', 'r', 'l', 'd'},
				readAtError:  nil,
			},
			fields: fileTestFields{
				firstCluster: 0,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 10),
				off: 1,
			},
			wantN:   10,
			wantErr: nil,
		},
		{
			name: "error while reading",
			mockData: mock{
				readAtResult: nil,
				readAtError:  fileTestsError,
			},
			fields: fileTestFields{
				firstCluster: 0,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 11),
				off: 1,
			},
			wantN:   0,
			wantErr: fileTestsError,
		},
		{
			name: "read over the end",
			fields: fileTestFields{
				firstCluster: 0,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 10),
				off: 11,
			},
			wantN:   0,
			wantErr: io.EOF,
		},
		{
			name: "short read without error",
			mockData: mock{
				readAtResult: []byte{'l', 'd'},
				readAtError:  nil,
			},
			fields: fileTestFields{
				firstCluster: 3,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 10),
				off: 9,
			},
			wantN:   2,
			wantErr: io.EOF,
		},
		{
			name: "not enough data (EOF)",
			mockData: mock{
				readAtResult: []byte{'e', 'l', 'l', '0'},
				readAtError:  io.EOF,
			},
			fields: fileTestFields{
				firstCluster: 0,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 10),
				off: 1,
			},
			wantN:   4,
			wantErr: io.EOF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			mockFs := NewMockfatFileFs(mockCtrl)
			mockFs.EXPECT().
				fileChain(tt.fields.firstCluster).
				MaxTimes(1).
				Return(fileTestsChain, nil)
			mockFs.EXPECT().
				readChainAt(fileTestsChain, tt.fields.stat.Size(), tt.args.off, int64(len(tt.args.p))).
				MaxTimes(1).
				Return(tt.mockData.readAtResult, tt.mockData.readAtError)

			f := &File{
				fs:           mockFs,
				isDirectory:  tt.fields.isDirectory,
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}
			gotN, err := f.ReadAt(tt.args.p, tt.args.off)

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.ReadAt() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if gotN != tt.wantN {
				t.Errorf("File.ReadAt() = %v, want %v", gotN, tt.wantN)
			}
		})
	}
}

func TestFile_Seek(t *testing.T) {
	type args struct {
		offset int64
		whence int
	}
	tests := []struct {
		name       string
		fields     fileTestFields
		args       args
		want       int64
		wantOffset int64
		wantErr    bool
	}{
		{
			name: "Seek from start regardless of previous offset",
			fields: fileTestFields{
				offset: 1234,
				stat:   entryFileInfo{entry: DirectoryEntry{Size: 5000}},
			},
			args: args{
				offset: 100,
				whence: io.SeekStart,
			},
			want:       100,
			wantOffset: 100,
			wantErr:    false,
		},
		{
			name: "Seek from last offset",
			fields: fileTestFields{
				offset: 1000,
				stat:   entryFileInfo{entry: DirectoryEntry{Size: 5000}},
			},
			args: args{
				offset: 200,
				whence: io.SeekCurrent,
			},
			want:       1200,
			wantOffset: 1200,
			wantErr:    false,
		},
		{
			name: "Seek from the end",
			fields: fileTestFields{
				offset: 1000,
				stat:   entryFileInfo{entry: DirectoryEntry{Size: 5000}},
			},
			args: args{
				offset: -200,
				whence: io.SeekEnd,
			},
			want:       4800,
			wantOffset: 4800,
			wantErr:    false,
		},
		{
			name: "Seek before the start keeps the offset",
			fields: fileTestFields{
				offset: 10,
				stat:   entryFileInfo{entry: DirectoryEntry{Size: 5000}},
			},
			args: args{
				offset: -20,
				whence: io.SeekCurrent,
			},
			wantOffset: 10,
			wantErr:    true,
		},
		{
			name: "Seek after the end keeps the offset",
			fields: fileTestFields{
				offset: 10,
				stat:   entryFileInfo{entry: DirectoryEntry{Size: 5000}},
			},
			args: args{
				offset: 1,
				whence: io.SeekEnd,
			},
			wantOffset: 10,
			wantErr:    true,
		},
		{
			name: "invalid whence",
			fields: fileTestFields{
				offset: 7,
				stat:   entryFileInfo{entry: DirectoryEntry{Size: 5000}},
			},
			args: args{
				offset: 0,
				whence: 42,
			},
			wantOffset: 7,
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &File{
				isDirectory:  tt.fields.isDirectory,
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}
			got, err := f.Seek(tt.args.offset, tt.args.whence)
			if (err != nil) != tt.wantErr {
				t.Errorf("File.Seek() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if got != tt.want {
				t.Errorf("File.Seek() = %v, want %v", got, tt.want)
			}

			if f.offset != tt.wantOffset {
				t.Errorf("File.offset = %v, want %v", f.offset, tt.wantOffset)
			}
		})
	}
}

func TestFile_Read_loadsChainOnce(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	mockFs := NewMockfatFileFs(mockCtrl)
	mockFs.EXPECT().
		fileChain(uint32(3)).
		Times(1).
		Return(fileTestsChain, nil)
	gomock.InOrder(
		mockFs.EXPECT().
			readChainAt(fileTestsChain, int64(8), int64(0), int64(4)).
			Return([]byte("0123"), nil),
		mockFs.EXPECT().
			readChainAt(fileTestsChain, int64(8), int64(4), int64(4)).
			Return([]byte("4567"), nil),
		mockFs.EXPECT().
			readChainAt(fileTestsChain, int64(8), int64(2), int64(4)).
			Return([]byte("2345"), nil),
	)

	f := &File{fs: mockFs, firstCluster: 3, stat: fakeFileInfo{fileSize: 8}}

	var got []byte
	p := make([]byte, 4)
	for {
		n, err := f.Read(p)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("File.Read() error = %v", err)
		}
		got = append(got, p[:n]...)
	}
	if string(got) != "01234567" {
		t.Errorf("File.Read() = %q, want %q", got, "01234567")
	}

	if _, err := f.ReadAt(p, 2); err != nil || string(p) != "2345" {
		t.Errorf("File.ReadAt() = %q, %v, want 2345", p, err)
	}

	mockCtrl.Finish()
}

func TestFile_Read_chainError(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	mockFs := NewMockfatFileFs(mockCtrl)
	mockFs.EXPECT().
		fileChain(uint32(3)).
		Times(2).
		Return(nil, ErrCorruptFat)

	f := &File{fs: mockFs, firstCluster: 3, stat: fakeFileInfo{fileSize: 8}}

	if _, err := f.Read(make([]byte, 4)); !errors.Is(err, ErrCorruptFat) {
		t.Errorf("File.Read() error = %v, want %v", err, ErrCorruptFat)
	}
	// A failed lookup is not cached.
	if _, err := f.ReadAt(make([]byte, 4), 0); !errors.Is(err, ErrCorruptFat) {
		t.Errorf("File.ReadAt() error = %v, want %v", err, ErrCorruptFat)
	}
	if f.offset != 0 {
		t.Errorf("File.offset = %v, want 0", f.offset)
	}

	mockCtrl.Finish()
}

func TestFile_Write(t *testing.T) {
	type args struct {
		p []byte
	}
	tests := []struct {
		name    string
		fields  fileTestFields
		args    args
		wantN   int
		wantErr error
	}{
		{
			name: "always read only",
			fields: fileTestFields{
				stat: fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: []byte("Hello"),
			},
			wantN:   0,
			wantErr: ErrReadOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &File{
				isDirectory:  tt.fields.isDirectory,
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}
			gotN, err := f.Write(tt.args.p)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Write() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !errors.Is(err, syscall.EROFS) {
				t.Errorf("File.Write() error = %v, want it to match EROFS", err)
			}
			if gotN != tt.wantN {
				t.Errorf("File.Write() = %v, want %v", gotN, tt.wantN)
			}
		})
	}
}

func TestFile_WriteAt(t *testing.T) {
	type args struct {
		p   []byte
		off int64
	}
	tests := []struct {
		name    string
		fields  fileTestFields
		args    args
		wantN   int
		wantErr error
	}{
		{
			name: "always read only",
			fields: fileTestFields{
				stat: fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   []byte("Hello"),
				off: 3,
			},
			wantN:   0,
			wantErr: ErrReadOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &File{
				isDirectory:  tt.fields.isDirectory,
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}
			gotN, err := f.WriteAt(tt.args.p, tt.args.off)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.WriteAt() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if gotN != tt.wantN {
				t.Errorf("File.WriteAt() = %v, want %v", gotN, tt.wantN)
			}
		})
	}
}

func TestFile_Name(t *testing.T) {
	f := newFile(nil, DirectoryEntry{Name: "a long name.txt"})
	if got := f.Name(); got != "a long name.txt" {
		t.Errorf("File.Name() = %v, want %v", got, "a long name.txt")
	}
}

func TestFile_Readdir(t *testing.T) {
	type args struct {
		count int
	}
	type mock struct {
		readDirResult []DirectoryEntry
		readDirError  error
	}
	tests := []struct {
		name     string
		fields   fileTestFields
		args     args
		mockData mock
		want     []os.FileInfo
		wantErr  error
	}{
		{
			name: "Read root dir",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 2,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirResult: []DirectoryEntry{
					// Use the name to identify them in the results, they are just tested by equality.
					{Name: "1"},
					{Name: "2"},
					{Name: "3"},
				},
			},
			want: []os.FileInfo{
				entryFileInfo{DirectoryEntry{Name: "1"}},
				entryFileInfo{DirectoryEntry{Name: "2"}},
				entryFileInfo{DirectoryEntry{Name: "3"}},
			},
			wantErr: nil,
		},
		{
			name: "Read dir",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 5,
			},
			args: args{
				count: 0,
			},
			mockData: mock{
				readDirResult: []DirectoryEntry{
					{Name: "1"},
					{Name: "2"},
					{Name: "3"},
				},
			},
			want: []os.FileInfo{
				entryFileInfo{DirectoryEntry{Name: "1"}},
				entryFileInfo{DirectoryEntry{Name: "2"}},
				entryFileInfo{DirectoryEntry{Name: "3"}},
			},
			wantErr: nil,
		},
		{
			name: "Read dir with count arg",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 5,
			},
			args: args{
				count: 2,
			},
			mockData: mock{
				readDirResult: []DirectoryEntry{
					{Name: "1"},
					{Name: "2"},
					{Name: "3"},
				},
			},
			want: []os.FileInfo{
				entryFileInfo{DirectoryEntry{Name: "1"}},
				entryFileInfo{DirectoryEntry{Name: "2"}},
			},
			wantErr: nil,
		},
		{
			name: "Read dir with count arg after the last entry",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 5,
				offset:       3,
			},
			args: args{
				count: 2,
			},
			mockData: mock{
				readDirResult: []DirectoryEntry{
					{Name: "1"},
					{Name: "2"},
					{Name: "3"},
				},
			},
			want:    nil,
			wantErr: io.EOF,
		},
		{
			name: "error while reading",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 5,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirResult: []DirectoryEntry{},
				readDirError:  ErrCyclicDirectory,
			},
			want:    nil,
			wantErr: ErrCyclicDirectory,
		},
		{
			name: "No dir",
			fields: fileTestFields{
				isDirectory: false,
			},
			args: args{
				count: -1,
			},
			mockData: mock{},
			want:     nil,
			wantErr:  syscall.ENOTDIR,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			mockFs := NewMockfatFileFs(mockCtrl)

			if tt.mockData.readDirResult != nil {
				mockFs.EXPECT().
					readDir(tt.fields.firstCluster).
					MaxTimes(1).
					Return(tt.mockData.readDirResult, tt.mockData.readDirError)
			}

			f := &File{
				fs:           mockFs,
				isDirectory:  tt.fields.isDirectory,
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}
			got, err := f.Readdir(tt.args.count)

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Readdir() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("File.Readdir() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFile_Readdir_continues(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	mockFs := NewMockfatFileFs(mockCtrl)
	mockFs.EXPECT().
		readDir(uint32(5)).
		Times(3).
		Return([]DirectoryEntry{{Name: "1"}, {Name: "2"}, {Name: "3"}}, nil)

	f := &File{fs: mockFs, isDirectory: true, firstCluster: 5}

	var names []string
	for {
		infos, err := f.Readdir(2)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("File.Readdir() error = %v", err)
		}
		for _, info := range infos {
			names = append(names, info.Name())
		}
	}
	mockCtrl.Finish()

	if want := []string{"1", "2", "3"}; !reflect.DeepEqual(names, want) {
		t.Errorf("File.Readdir() names = %v, want %v", names, want)
	}
}

func TestFile_Readdirnames(t *testing.T) {
	type args struct {
		count int
	}
	type mock struct {
		readDirResult []DirectoryEntry
		readDirError  error
	}
	tests := []struct {
		name     string
		fields   fileTestFields
		args     args
		mockData mock
		want     []string
		wantErr  error
	}{
		{
			name: "Read dir",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 9,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirResult: []DirectoryEntry{
					{Name: "1"},
					{Name: "2"},
					{Name: "3"},
				},
			},
			want:    []string{"1", "2", "3"},
			wantErr: nil,
		},
		{
			name: "short name only",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 9,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirResult: []DirectoryEntry{
					{ShortName: [11]byte{'R', 'E', 'A', 'D', 'M', 'E', ' ', ' ', 'M', 'D', ' '}},
				},
			},
			want:    []string{"README.MD"},
			wantErr: nil,
		},
		{
			name: "Read dir with count arg",
			fields: fileTestFields{
				isDirectory:  true,
				firstCluster: 9,
			},
			args: args{
				count: 2,
			},
			mockData: mock{
				readDirResult: []DirectoryEntry{
					{Name: "1"},
					{Name: "2"},
					{Name: "3"},
				},
			},
			want:    []string{"1", "2"},
			wantErr: nil,
		},
		{
			name: "No dir",
			fields: fileTestFields{
				isDirectory: false,
			},
			args: args{
				count: 0,
			},
			mockData: mock{},
			want:     nil,
			wantErr:  syscall.ENOTDIR,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			mockFs := NewMockfatFileFs(mockCtrl)

			if tt.mockData.readDirResult != nil {
				mockFs.EXPECT().
					readDir(tt.fields.firstCluster).
					MaxTimes(1).
					Return(tt.mockData.readDirResult, tt.mockData.readDirError)
			}

			f := &File{
				fs:           mockFs,
				isDirectory:  tt.fields.isDirectory,
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}
			got, err := f.Readdirnames(tt.args.count)

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Readdirnames() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("File.Readdirnames() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFile_ReadDir(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	mockFs := NewMockfatFileFs(mockCtrl)
	mockFs.EXPECT().
		readDir(uint32(4)).
		MaxTimes(1).
		Return([]DirectoryEntry{
			{Name: "sub", Attributes: AttrDirectory},
			{Name: "file.txt", Size: 3},
		}, nil)

	f := &File{fs: mockFs, isDirectory: true, firstCluster: 4}
	entries, err := f.ReadDir(-1)
	mockCtrl.Finish()

	if err != nil {
		t.Fatalf("File.ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("File.ReadDir() returned %d entries, want 2", len(entries))
	}
	if !entries[0].IsDir() || entries[0].Name() != "sub" {
		t.Errorf("File.ReadDir()[0] = %v, want the directory sub", entries[0])
	}
	if entries[1].IsDir() || entries[1].Name() != "file.txt" {
		t.Errorf("File.ReadDir()[1] = %v, want the file file.txt", entries[1])
	}
}

func TestFile_Stat(t *testing.T) {
	tests := []struct {
		name    string
		fields  fileTestFields
		want    os.FileInfo
		wantErr bool
	}{
		{
			name: "simple stats",
			fields: fileTestFields{
				stat: fakeFileInfo{someData: "1"},
			},
			want: fakeFileInfo{someData: "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &File{
				isDirectory:  tt.fields.isDirectory,
				firstCluster: tt.fields.firstCluster,
				stat:         tt.fields.stat,
				offset:       tt.fields.offset,
			}
			got, err := f.Stat()
			if (err != nil) != tt.wantErr {
				t.Errorf("File.Stat() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("File.Stat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFile_Sync(t *testing.T) {
	f := &File{stat: fakeFileInfo{}}
	if err := f.Sync(); err != nil {
		t.Errorf("File.Sync() error = %v, want nil", err)
	}
}

func TestFile_Truncate(t *testing.T) {
	f := &File{stat: fakeFileInfo{fileSize: 11}}
	if err := f.Truncate(3); !errors.Is(err, ErrReadOnly) {
		t.Errorf("File.Truncate() error = %v, want %v", err, ErrReadOnly)
	}
}

func TestFile_WriteString(t *testing.T) {
	f := &File{stat: fakeFileInfo{fileSize: 11}}
	gotRet, err := f.WriteString("Hello")
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("File.WriteString() error = %v, want %v", err, ErrReadOnly)
	}
	if gotRet != 0 {
		t.Errorf("File.WriteString() = %v, want 0", gotRet)
	}
}

func TestFile_Read_directory(t *testing.T) {
	f := &File{isDirectory: true, stat: fakeFileInfo{}}
	if _, err := f.Read(make([]byte, 4)); !errors.Is(err, syscall.EISDIR) {
		t.Errorf("File.Read() error = %v, want %v", err, syscall.EISDIR)
	}
	if _, err := f.ReadAt(make([]byte, 4), 0); !errors.Is(err, syscall.EISDIR) {
		t.Errorf("File.ReadAt() error = %v, want %v", err, syscall.EISDIR)
	}
}
