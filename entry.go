package gofat

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/aligator/gofat32/checkpoint"
)

// Attributes of a directory entry.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

const (
	entrySize = 32

	endOfDirMarker = 0x00
	deletedMarker  = 0xE5
	kanjiMarker    = 0x05

	lastLongEntry   = 0x40
	longNameChars   = 13
	maxLongNameLen  = 255
	maxLongSequence = 20
)

// DirectoryEntry is the decoded form of a short entry together with its long name entries.
type DirectoryEntry struct {
	// Name is the long name if present, otherwise the readable short name.
	Name       string
	ShortName  [11]byte
	Attributes byte

	FirstCluster uint32
	Size         uint32

	ModTime    time.Time
	CreateTime time.Time
	AccessTime time.Time

	// caseFlags are the NT reserved case bits of the short entry.
	caseFlags byte
}

// IsDir reports if the entry is a directory.
func (e DirectoryEntry) IsDir() bool {
	return e.Attributes&AttrDirectory != 0
}

// IsVolumeLabel reports the volume label entry of the root directory.
func (e DirectoryEntry) IsVolumeLabel() bool {
	return e.Attributes&AttrVolumeID != 0 && e.Attributes&AttrLongName != AttrLongName
}

// IsDot reports the "." and ".." entries.
func (e DirectoryEntry) IsDot() bool {
	return e.ShortName == dotName || e.ShortName == dotDotName
}

// ShortDisplayName returns the 8.3 name in its readable form.
func (e DirectoryEntry) ShortDisplayName() string {
	return displayShortName(e.ShortName, e.caseFlags)
}

// validateLongName rejects names which cannot be stored in a long name entry.
func validateLongName(name string) error {
	if name == "" || name == "." || name == ".." {
		return checkpoint.Errorf(ErrInvalidDirectoryEntry, "invalid name %q", name)
	}
	if strings.ContainsAny(name, "\\/:*?\"<>|") {
		return checkpoint.Errorf(ErrInvalidDirectoryEntry, "name %q contains a reserved character", name)
	}
	for _, r := range name {
		if r < 0x20 {
			return checkpoint.Errorf(ErrInvalidDirectoryEntry, "name %q contains a control character", name)
		}
	}
	if len(utf16.Encode([]rune(name))) > maxLongNameLen {
		return checkpoint.Errorf(ErrInvalidDirectoryEntry, "name %q is longer than %d characters", name, maxLongNameLen)
	}
	return nil
}

// EncodeEntry encodes the entry into its raw records.
// Names which are no valid upper case 8.3 name get long name entries, most significant fragment first,
// followed by a short entry with a generated alias. exists reports short names already used in the directory.
func EncodeEntry(entry DirectoryEntry, exists func(shortName [11]byte) bool) ([]byte, error) {
	if entry.Attributes&AttrDirectory != 0 && entry.Attributes&AttrVolumeID != 0 {
		return nil, checkpoint.Errorf(ErrInvalidDirectoryEntry, "%q is marked as directory and volume label", entry.Name)
	}

	if entry.IsDot() {
		return encodeShort(entry), nil
	}

	if short, ok := shortNameOf(entry.Name); ok && (exists == nil || !exists(short)) {
		entry.ShortName = short
		return encodeShort(entry), nil
	}

	if err := validateLongName(entry.Name); err != nil {
		return nil, err
	}

	alias, ok := shortAlias(entry.Name, exists)
	if !ok {
		return nil, checkpoint.Errorf(ErrInvalidDirectoryEntry, "no free short name for %q", entry.Name)
	}
	entry.ShortName = alias
	checksum := shortChecksum(alias)

	units := utf16.Encode([]rune(entry.Name))
	count := (len(units) + longNameChars - 1) / longNameChars

	out := make([]byte, 0, (count+1)*entrySize)
	for seq := count; seq >= 1; seq-- {
		var fragment [longNameChars]uint16
		start := (seq - 1) * longNameChars
		for i := range fragment {
			switch {
			case start+i < len(units):
				fragment[i] = units[start+i]
			case start+i == len(units):
				fragment[i] = 0x0000
			default:
				fragment[i] = 0xFFFF
			}
		}

		lfn := LongFilenameEntry{
			Sequence:  byte(seq),
			Attribute: AttrLongName,
			Checksum:  checksum,
		}
		if seq == count {
			lfn.Sequence |= lastLongEntry
		}
		copy(lfn.First[:], fragment[0:5])
		copy(lfn.Second[:], fragment[5:11])
		copy(lfn.Third[:], fragment[11:13])

		out = append(out, encodeRecord(&lfn)...)
	}

	return append(out, encodeShort(entry)...), nil
}

func encodeShort(entry DirectoryEntry) []byte {
	header := EntryHeader{
		Name:           entry.ShortName,
		Attribute:      entry.Attributes,
		NTReserved:     entry.caseFlags,
		FirstClusterHI: uint16(entry.FirstCluster >> 16),
		FirstClusterLO: uint16(entry.FirstCluster),
		FileSize:       entry.Size,
	}

	if !entry.ModTime.IsZero() {
		header.WriteDate = EncodeDate(entry.ModTime)
		header.WriteTime = EncodeTime(entry.ModTime)
	}
	if !entry.CreateTime.IsZero() {
		header.CreateDate = EncodeDate(entry.CreateTime)
		header.CreateTime = EncodeTime(entry.CreateTime)
		header.CreateTimeTenth = encodeTenth(entry.CreateTime)
	}
	if !entry.AccessTime.IsZero() {
		header.LastAccessDate = EncodeDate(entry.AccessTime)
	}

	return encodeRecord(&header)
}

func encodeRecord(v interface{}) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, entrySize))
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// DecodeEntries decodes all entries of a directory buffer up to the end of directory marker.
// Deleted entries are skipped, the "." and ".." entries and the volume label are returned as well.
func DecodeEntries(raw []byte) ([]DirectoryEntry, error) {
	var (
		dec     entryDecoder
		entries []DirectoryEntry
	)

	for off := 0; off+entrySize <= len(raw); off += entrySize {
		entry, ok, end, err := dec.feed(raw[off : off+entrySize])
		if err != nil {
			return nil, err
		}
		if end {
			break
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	if err := dec.finish(); err != nil {
		return nil, err
	}
	return entries, nil
}

// entryDecoder assembles long name fragments and short entries record by record,
// so that a group may span a cluster boundary.
type entryDecoder struct {
	pending  bool
	expected byte
	checksum byte
	units    []uint16
}

func (d *entryDecoder) reset() {
	d.pending = false
	d.expected = 0
	d.checksum = 0
	d.units = d.units[:0]
}

// finish reports a long name group which never got its short entry.
func (d *entryDecoder) finish() error {
	if d.pending {
		return checkpoint.Errorf(ErrInvalidDirectoryEntry, "long name entries without a short entry")
	}
	return nil
}

// feed decodes one record. ok is set if a complete entry was decoded, end on the end of directory marker.
func (d *entryDecoder) feed(rec []byte) (entry DirectoryEntry, ok bool, end bool, err error) {
	switch rec[0] {
	case endOfDirMarker:
		return entry, false, true, d.finish()
	case deletedMarker:
		if d.pending {
			return entry, false, false, checkpoint.Errorf(ErrInvalidDirectoryEntry, "deleted entry inside of a long name group")
		}
		return entry, false, false, nil
	}

	if rec[11]&0x3F == AttrLongName {
		return entry, false, false, d.feedLong(rec)
	}

	var header EntryHeader
	if err := binary.Read(bytes.NewReader(rec), binary.LittleEndian, &header); err != nil {
		return entry, false, false, checkpoint.Wrap(err, ErrInvalidDirectoryEntry)
	}

	if header.Attribute&AttrDirectory != 0 && header.Attribute&AttrVolumeID != 0 {
		return entry, false, false, checkpoint.Errorf(ErrInvalidDirectoryEntry, "entry %q is marked as directory and volume label", header.Name[:])
	}

	entry = DirectoryEntry{
		ShortName:    header.Name,
		Attributes:   header.Attribute,
		FirstCluster: uint32(header.FirstClusterHI)<<16 | uint32(header.FirstClusterLO),
		Size:         header.FileSize,
		ModTime:      combineDateTime(header.WriteDate, header.WriteTime),
		CreateTime:   combineDateTime(header.CreateDate, header.CreateTime),
		AccessTime:   ParseDate(header.LastAccessDate),
		caseFlags:    header.NTReserved & (caseLowerBase | caseLowerExt),
	}

	if d.pending {
		if d.expected != 0 {
			return entry, false, false, checkpoint.Errorf(ErrInvalidDirectoryEntry, "short entry %q follows an incomplete long name", header.Name[:])
		}
		if shortChecksum(header.Name) != d.checksum {
			return entry, false, false, checkpoint.Errorf(ErrInvalidDirectoryEntry, "checksum of %q does not match its long name", header.Name[:])
		}
		entry.Name = decodeUnits(d.units)
		d.reset()
	} else if entry.IsVolumeLabel() {
		entry.Name = strings.TrimRight(string(header.Name[:]), " ")
	} else {
		entry.Name = entry.ShortDisplayName()
	}

	return entry, true, false, nil
}

func (d *entryDecoder) feedLong(rec []byte) error {
	var lfn LongFilenameEntry
	if err := binary.Read(bytes.NewReader(rec), binary.LittleEndian, &lfn); err != nil {
		return checkpoint.Wrap(err, ErrInvalidDirectoryEntry)
	}

	seq := lfn.Sequence &^ lastLongEntry
	if lfn.Sequence&lastLongEntry != 0 {
		if d.pending {
			return checkpoint.Errorf(ErrInvalidDirectoryEntry, "new long name starts before the previous one ended")
		}
		if seq == 0 || seq > maxLongSequence {
			return checkpoint.Errorf(ErrInvalidDirectoryEntry, "invalid long name sequence number %d", seq)
		}
		d.pending = true
		d.checksum = lfn.Checksum
		d.units = make([]uint16, int(seq)*longNameChars)
	} else {
		if !d.pending {
			return checkpoint.Errorf(ErrInvalidDirectoryEntry, "long name entry %d without a start", seq)
		}
		if seq != d.expected {
			return checkpoint.Errorf(ErrInvalidDirectoryEntry, "long name sequence %d follows %d", seq, d.expected+1)
		}
		if lfn.Checksum != d.checksum {
			return checkpoint.Errorf(ErrInvalidDirectoryEntry, "long name entry %d has a different checksum", seq)
		}
	}

	start := int(seq-1) * longNameChars
	copy(d.units[start:], lfn.First[:])
	copy(d.units[start+5:], lfn.Second[:])
	copy(d.units[start+11:], lfn.Third[:])
	d.expected = seq - 1
	return nil
}

// decodeUnits converts the collected UTF-16 units up to the terminator.
func decodeUnits(units []uint16) string {
	for i, u := range units {
		if u == 0x0000 {
			units = units[:i]
			break
		}
	}
	return string(utf16.Decode(units))
}
