package line

import (
	"github.com/go-delve/lldwarf/pkg/dwarf/info"
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

const (
	_DW_LNCT_path = 0x1 + iota
	_DW_LNCT_directory_index
	_DW_LNCT_timestamp
	_DW_LNCT_size
	_DW_LNCT_MD5
)

// formReader reads the entries of a DWARF 5 directory or file name table
// according to its entry format description.
type formReader struct {
	contentTypes []uint64
	formCodes    []info.Form
	dwarf64      bool

	contentType uint64
	formCode    info.Form

	block []byte
	u64   uint64
	str   []byte

	nexti int
}

func readEntryFormat(b *util.Buf, dwarf64 bool) (*formReader, error) {
	count, err := b.Uint8()
	if err != nil {
		return nil, err
	}
	r := &formReader{
		contentTypes: make([]uint64, count),
		formCodes:    make([]info.Form, count),
		dwarf64:      dwarf64,
	}
	for i := range r.contentTypes {
		if r.contentTypes[i], err = b.ULEB128(); err != nil {
			return nil, err
		}
		form, err := b.ULEB128()
		if err != nil {
			return nil, err
		}
		r.formCodes[i] = info.Form(form)
	}
	return r, nil
}

func (rdr *formReader) reset() {
	rdr.nexti = 0
}

// next reads the next field of the current entry, it returns false after
// the last field.
func (rdr *formReader) next(b *util.Buf) (bool, error) {
	if rdr.nexti >= len(rdr.contentTypes) {
		return false, nil
	}

	rdr.contentType = rdr.contentTypes[rdr.nexti]
	rdr.formCode = rdr.formCodes[rdr.nexti]
	rdr.block, rdr.str, rdr.u64 = nil, nil, 0

	var err error
	switch rdr.formCode {
	case info.DW_FORM_block:
		err = rdr.readBlock(b, 0)
	case info.DW_FORM_block1:
		err = rdr.readBlock(b, 1)
	case info.DW_FORM_block2:
		err = rdr.readBlock(b, 2)
	case info.DW_FORM_block4:
		err = rdr.readBlock(b, 4)
	case info.DW_FORM_data16:
		rdr.block, err = b.Bytes(16, "DW_FORM_data16")

	case info.DW_FORM_data1, info.DW_FORM_flag, info.DW_FORM_strx1:
		rdr.u64, err = b.Uint(1)
	case info.DW_FORM_data2, info.DW_FORM_strx2:
		rdr.u64, err = b.Uint(2)
	case info.DW_FORM_strx3:
		rdr.u64, err = b.Uint(3)
	case info.DW_FORM_data4, info.DW_FORM_strx4:
		rdr.u64, err = b.Uint(4)
	case info.DW_FORM_data8:
		rdr.u64, err = b.Uint(8)
	case info.DW_FORM_line_strp, info.DW_FORM_sec_offset, info.DW_FORM_strp:
		rdr.u64, err = b.Offset(rdr.dwarf64)

	case info.DW_FORM_sdata:
		var v int64
		v, err = b.SLEB128()
		rdr.u64 = uint64(v)
	case info.DW_FORM_udata, info.DW_FORM_strx:
		rdr.u64, err = b.ULEB128()

	case info.DW_FORM_string:
		rdr.str, err = b.CString()

	default:
		return false, b.Errorf(util.ErrUnknownForm, "%s in entry format", rdr.formCode)
	}
	if err != nil {
		return false, err
	}

	rdr.nexti++
	return true, nil
}

// readBlock reads a block whose length is encoded in lenSize bytes, or as
// a ULEB128 if lenSize is 0.
func (rdr *formReader) readBlock(b *util.Buf, lenSize int) error {
	var (
		n   uint64
		err error
	)
	if lenSize == 0 {
		n, err = b.ULEB128()
	} else {
		n, err = b.Uint(lenSize)
	}
	if err != nil {
		return err
	}
	rdr.block, err = b.Bytes(n, rdr.formCode.String())
	return err
}

// readEntry reads one entry of the table.
func (rdr *formReader) readEntry(b *util.Buf, debugLineStr, debugStr []byte) (*FileEntry, error) {
	entry := new(FileEntry)
	rdr.reset()
	for {
		ok, err := rdr.next(b)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch rdr.contentType {
		case _DW_LNCT_path:
			entry.PathForm = rdr.formCode
			switch rdr.formCode {
			case info.DW_FORM_string:
				entry.Path = string(rdr.str)
			case info.DW_FORM_line_strp:
				entry.StrOffset = rdr.u64
				entry.Path, err = stringAt(".debug_line_str", debugLineStr, rdr.u64)
			case info.DW_FORM_strp:
				entry.StrOffset = rdr.u64
				entry.Path, err = stringAt(".debug_str", debugStr, rdr.u64)
			default:
				entry.StrOffset = rdr.u64
			}
			if err != nil {
				return nil, err
			}
		case _DW_LNCT_directory_index:
			entry.DirIdx = rdr.u64
		case _DW_LNCT_timestamp:
			entry.LastModTime = rdr.u64
		case _DW_LNCT_size:
			entry.Length = rdr.u64
		case _DW_LNCT_MD5:
			entry.MD5 = rdr.block
		}
	}
	return entry, nil
}

// stringAt returns the string at off in a string section, or the empty
// string if the section is not available.
func stringAt(name string, section []byte, off uint64) (string, error) {
	if section == nil {
		return "", nil
	}
	if off > uint64(len(section)) {
		return "", &util.DecodeError{Name: name, Offset: int(off), Kind: util.ErrInvalidOffset}
	}
	b, err := util.NewBuf(name, section, int(off))
	if err != nil {
		return "", err
	}
	s, err := b.CString()
	if err != nil {
		return "", err
	}
	return string(s), nil
}
