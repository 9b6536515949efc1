package gofat

import (
	"strconv"
	"strings"
)

const (
	shortBaseLen = 8
	shortExtLen  = 3

	// NT reserved byte flags which mark a lower case base name or extension.
	caseLowerBase = 0x08
	caseLowerExt  = 0x10
)

var (
	dotName    = [11]byte{'.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
	dotDotName = [11]byte{'.', '.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
)

// isShortChar reports the characters allowed in an upper case 8.3 name.
func isShortChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("$%'-_@~`!(){}^#&", c) >= 0
}

// shortNameOf returns the raw 8.3 name if name can be stored without a long name entry.
func shortNameOf(name string) ([11]byte, bool) {
	var raw [11]byte
	if name == "" || name == "." || name == ".." {
		return raw, false
	}

	base, ext := name, ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		base, ext = name[:i], name[i+1:]
		if ext == "" {
			return raw, false
		}
	}

	if len(base) == 0 || len(base) > shortBaseLen || len(ext) > shortExtLen {
		return raw, false
	}

	for i := 0; i < len(base); i++ {
		if !isShortChar(base[i]) {
			return raw, false
		}
	}
	for i := 0; i < len(ext); i++ {
		if !isShortChar(ext[i]) {
			return raw, false
		}
	}

	copy(raw[:], padRight(base, shortBaseLen))
	copy(raw[shortBaseLen:], padRight(ext, shortExtLen))
	if raw[0] == deletedMarker {
		raw[0] = kanjiMarker
	}
	return raw, true
}

// sanitizeShort upper cases s and replaces everything not allowed in a short name by '_'.
// Spaces and dots are removed. lossy reports if anything but the case changed.
func sanitizeShort(s string) (out string, lossy bool) {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case r == ' ' || r == '.':
			lossy = true
		case r < 0x80 && isShortChar(byte(r)):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			lossy = true
		}
	}
	return b.String(), lossy
}

// shortAlias generates a unique BASIS~N alias for a name which needs a long name entry.
// exists reports if a short name is already used in the directory.
func shortAlias(name string, exists func([11]byte) bool) ([11]byte, bool) {
	trimmed := strings.TrimLeft(name, ". ")

	base, ext := trimmed, ""
	if i := strings.LastIndexByte(trimmed, '.'); i > 0 {
		base, ext = trimmed[:i], trimmed[i+1:]
	}

	basis, _ := sanitizeShort(base)
	extension, _ := sanitizeShort(ext)
	if basis == "" {
		basis = "_"
	}
	if len(extension) > shortExtLen {
		extension = extension[:shortExtLen]
	}

	var raw [11]byte
	copy(raw[shortBaseLen:], padRight(extension, shortExtLen))

	for n := 1; n <= 999999; n++ {
		tail := "~" + strconv.Itoa(n)
		prefix := basis
		if len(prefix)+len(tail) > shortBaseLen {
			prefix = prefix[:shortBaseLen-len(tail)]
		}

		copy(raw[:shortBaseLen], padRight(prefix+tail, shortBaseLen))
		if exists == nil || !exists(raw) {
			return raw, true
		}
	}

	return raw, false
}

// shortChecksum is the checksum stored in every long name entry of the short name.
func shortChecksum(name [11]byte) byte {
	var sum byte
	for _, c := range name {
		sum = (sum&1)<<7 + sum>>1 + c
	}
	return sum
}

// displayShortName converts a raw 8.3 name into its readable form honoring the NT case flags.
func displayShortName(raw [11]byte, caseFlags byte) string {
	if raw[0] == kanjiMarker {
		raw[0] = deletedMarker
	}

	base := strings.TrimRight(string(raw[:shortBaseLen]), " ")
	ext := strings.TrimRight(string(raw[shortBaseLen:]), " ")

	if caseFlags&caseLowerBase != 0 {
		base = strings.ToLower(base)
	}
	if caseFlags&caseLowerExt != 0 {
		ext = strings.ToLower(ext)
	}

	if ext != "" {
		return base + "." + ext
	}
	return base
}
