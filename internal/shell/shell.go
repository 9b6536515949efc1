// Package shell implements the interactive browser of an opened image.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/afero"

	"github.com/aligator/gofat32"
)

// ErrUsage is returned for wrong arguments.
var ErrUsage = errors.New("usage")

// Shell browses an image like a read only filesystem.
type Shell struct {
	img  *gofat.Image
	fs   afero.Fs
	cwd  string
	out  io.Writer
	host afero.Fs
	// hostDir is where "get" copies files to.
	hostDir string
}

// New creates a shell which prints to out. Files fetched by "get" are written to hostDir of host.
func New(img *gofat.Image, host afero.Fs, hostDir string, out io.Writer) *Shell {
	return &Shell{
		img:     img,
		fs:      img.Fs(),
		cwd:     "/",
		out:     out,
		host:    host,
		hostDir: hostDir,
	}
}

type command struct {
	usage string
	help  string
	run   func(s *Shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"ls":   {"ls [dir]", "list a directory", (*Shell).ls},
		"cd":   {"cd [dir]", "change the directory, without argument to the root", (*Shell).cd},
		"pwd":  {"pwd", "print the current directory", (*Shell).pwd},
		"cat":  {"cat <file>", "print a file", (*Shell).cat},
		"read": {"read <file> <offset> <length>", "print a part of a file", (*Shell).read},
		"get":  {"get <file>", "copy a file out of the image", (*Shell).get},
		"stat": {"stat <path>", "show the details of an entry", (*Shell).stat},
		"tree": {"tree [dir]", "print the directory tree", (*Shell).tree},
		"info": {"info", "show the volume information", (*Shell).info},
		"help": {"help", "show this help", (*Shell).help},
	}
}

// Run reads commands line by line until "exit" or the end of in.
func (s *Shell) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	s.prompt()
	for scanner.Scan() {
		exit, err := s.Exec(scanner.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if exit {
			return nil
		}
		s.prompt()
	}
	return scanner.Err()
}

func (s *Shell) prompt() {
	fmt.Fprintf(s.out, "%s> ", s.cwd)
}

// Exec runs a single command line. exit is set for the exit command.
func (s *Shell) Exec(line string) (exit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	name, args := fields[0], fields[1:]
	if name == "exit" || name == "quit" {
		return true, nil
	}

	cmd, ok := commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q, try help", name)
	}
	if err := cmd.run(s, args); err != nil {
		if errors.Is(err, ErrUsage) {
			return false, fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
		}
		return false, err
	}
	return false, nil
}

// abs resolves p against the current directory.
func (s *Shell) abs(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(s.cwd, p)
}

func (s *Shell) argOrCwd(args []string) string {
	if len(args) == 0 {
		return s.cwd
	}
	return s.abs(args[0])
}

func (s *Shell) ls(args []string) error {
	infos, err := afero.ReadDir(s.fs, s.argOrCwd(args))
	if err != nil {
		return err
	}

	for _, info := range infos {
		kind := "-"
		if info.IsDir() {
			kind = "d"
		}
		fmt.Fprintf(s.out, "%s %10d %s %s\n", kind, info.Size(), info.ModTime().Format("2006-01-02 15:04"), info.Name())
	}
	return nil
}

func (s *Shell) cd(args []string) error {
	target := "/"
	if len(args) > 0 {
		target = s.abs(args[0])
	}

	info, err := s.fs.Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is no directory", target)
	}
	s.cwd = target
	return nil
}

func (s *Shell) pwd(args []string) error {
	fmt.Fprintln(s.out, s.cwd)
	return nil
}

func (s *Shell) cat(args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}

	data, err := afero.ReadFile(s.fs, s.abs(args[0]))
	if err != nil {
		return err
	}
	_, err = s.out.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(s.out)
	}
	return err
}

func (s *Shell) read(args []string) error {
	if len(args) != 3 {
		return ErrUsage
	}
	offset, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || offset < 0 {
		return ErrUsage
	}
	length, err := strconv.Atoi(args[2])
	if err != nil || length < 0 {
		return ErrUsage
	}

	f, err := s.fs.Open(s.abs(args[0]))
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return err
	}
	_, err = fmt.Fprintf(s.out, "%s\n", buf[:n])
	return err
}

func (s *Shell) get(args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}

	src, err := s.fs.Open(s.abs(args[0]))
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", args[0])
	}

	if err := s.host.MkdirAll(s.hostDir, 0755); err != nil {
		return err
	}
	target := path.Join(s.hostDir, info.Name())
	dst, err := s.host.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "copied %d bytes to %s\n", n, target)
	return nil
}

func (s *Shell) stat(args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}

	info, err := s.fs.Stat(s.abs(args[0]))
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "name:     %s\n", info.Name())
	fmt.Fprintf(s.out, "size:     %d (%s)\n", info.Size(), units.BytesSize(float64(info.Size())))
	fmt.Fprintf(s.out, "mode:     %s\n", info.Mode())
	fmt.Fprintf(s.out, "modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	if entry, ok := info.Sys().(gofat.DirectoryEntry); ok {
		fmt.Fprintf(s.out, "short:    %s\n", entry.ShortDisplayName())
		fmt.Fprintf(s.out, "cluster:  %d\n", entry.FirstCluster)
		fmt.Fprintf(s.out, "attr:     0x%02X\n", entry.Attributes)
		if !entry.CreateTime.IsZero() {
			fmt.Fprintf(s.out, "created:  %s\n", entry.CreateTime.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func (s *Shell) tree(args []string) error {
	root := s.argOrCwd(args)
	fmt.Fprintln(s.out, root)
	return s.printTree(root, "")
}

func (s *Shell) printTree(dir string, indent string) error {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	for i, info := range infos {
		branch, next := "├── ", "│   "
		if i == len(infos)-1 {
			branch, next = "└── ", "    "
		}
		fmt.Fprintf(s.out, "%s%s%s\n", indent, branch, info.Name())
		if info.IsDir() {
			if err := s.printTree(path.Join(dir, info.Name()), indent+next); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Shell) info(args []string) error {
	stats := s.img.Stats()
	boot := s.img.BootSector()

	fmt.Fprintf(s.out, "label:    %s\n", stats.Label)
	fmt.Fprintf(s.out, "type:     %s\n", boot.FileSystemType)
	fmt.Fprintf(s.out, "size:     %s\n", units.BytesSize(float64(stats.Size)))
	fmt.Fprintf(s.out, "cluster:  %s\n", units.BytesSize(float64(stats.ClusterSize)))
	fmt.Fprintf(s.out, "clusters: %d (%d free)\n", stats.TotalClusters, stats.FreeClusters)
	fmt.Fprintf(s.out, "free:     %s\n", units.BytesSize(float64(int64(stats.FreeClusters)*stats.ClusterSize)))
	return nil
}

func (s *Shell) help(args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(s.out, "  %-32s %s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintf(s.out, "  %-32s %s\n", "exit", "leave the shell")
	return nil
}
