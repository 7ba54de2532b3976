package loclist_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-delve/lldwarf/pkg/dwarf/loclist"
	"github.com/go-delve/lldwarf/pkg/dwarf/util"
)

type entry struct {
	lowpc, highpc uint64
	instr         []byte
}

func buildLocList(addrSize int, entries ...entry) []byte {
	var buf bytes.Buffer
	putAddr := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:addrSize])
	}
	for _, e := range append(entries, entry{}) {
		putAddr(e.lowpc)
		putAddr(e.highpc)
		if e.lowpc == 0 && e.highpc == 0 || e.instr == nil {
			continue
		}
		binary.Write(&buf, binary.LittleEndian, uint16(len(e.instr)))
		buf.Write(e.instr)
	}
	return buf.Bytes()
}

func TestParse(t *testing.T) {
	data := buildLocList(4,
		entry{0x10, 0x20, []byte{0x50}},
		entry{0xffffffff, 0x1000, nil},
		entry{0x20, 0x40, []byte{0x91, 0x68}})

	b, err := util.NewBuf(".debug_loc", data, 0)
	require.NoError(t, err)
	entries, err := loclist.Parse(b, 4, 0x400000)
	require.NoError(t, err)
	require.Equal(t, []loclist.Entry{
		{Begin: 0x400010, End: 0x400020, Base: 0x400000, Instr: []byte{0x50}},
		{Begin: 0x1020, End: 0x1040, Base: 0x1000, Instr: []byte{0x91, 0x68}},
	}, entries)
	require.Equal(t, len(data), b.Off())

	e, ok := loclist.Find(entries, 0x1030)
	require.True(t, ok)
	require.Equal(t, []byte{0x91, 0x68}, e.Instr)
	_, ok = loclist.Find(entries, 0x1040)
	require.False(t, ok)
}

func TestParseTruncatedExpression(t *testing.T) {
	data := buildLocList(8, entry{0x10, 0x20, []byte{0x50, 0x51}})
	b, err := util.NewBuf(".debug_loc", data[:8+8+2+1], 0)
	require.NoError(t, err)
	entries, err := loclist.Parse(b, 8, 0)
	require.Nil(t, entries)
	require.True(t, errors.Is(err, util.ErrTruncated), "got %v", err)
}
