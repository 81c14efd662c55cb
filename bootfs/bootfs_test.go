package bootfs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-bootverify/container"
)

var testFiles = []File{
	{Name: "bin/init", Data: []byte("#!init")},
	{Name: "lib/ld.so.1", Data: bytes.Repeat([]byte{0x7f}, PageSize+10)},
	{Name: "config/empty", Data: nil},
	{Name: "data/a", Data: []byte("a")},
}

func TestBuildAndIterate(t *testing.T) {
	image, err := Build(testFiles)
	require.NoError(t, err)

	v := NewView(container.Bytes(image))
	h, err := v.ContainerHeader()
	require.NoError(t, err)
	assert.Equal(t, DirentExtent(8)+DirentExtent(11)+DirentExtent(12)+DirentExtent(6), h.DirSize)

	var got []File
	it := v.Begin()
	for it.Next() {
		item := it.Item()
		assert.Zero(t, item.Header.DataOff%PageSize)
		assert.Equal(t, item.Header.DataOff, item.PayloadOffset)
		got = append(got, File{Name: item.Header.Name, Data: item.Payload})
	}
	require.NoError(t, v.TakeError())
	require.Len(t, got, len(testFiles))
	for i := range testFiles {
		assert.Equal(t, testFiles[i].Name, got[i].Name)
		assert.Equal(t, len(testFiles[i].Data), len(got[i].Data))
		assert.True(t, bytes.Equal(testFiles[i].Data, got[i].Data))
	}

	// The directory ends well before the file data.
	size, err := v.SizeBytes()
	require.NoError(t, err)
	assert.Equal(t, HeaderSize+h.DirSize, size)
}

func TestLookup(t *testing.T) {
	image, err := Build(testFiles)
	require.NoError(t, err)
	v := NewView(container.Bytes(image))

	item, err := Lookup(v, "data/a")
	require.NoError(t, err)
	assert.Equal(t, "a", string(item.Payload))

	_, err = Lookup(v, "data/b")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, v.Close())
}

func TestBuildRejects(t *testing.T) {
	_, err := Build([]File{{Name: "a"}, {Name: "a"}})
	require.ErrorIs(t, err, ErrDuplicateName)

	_, err = Build([]File{{Name: strings.Repeat("n", MaxNameLen)}})
	require.ErrorIs(t, err, container.ErrInvalidArgs)

	_, err = Build([]File{{Name: "a\x00b"}})
	require.ErrorIs(t, err, container.ErrInvalidArgs)

	_, err = Build([]File{{Name: strings.Repeat("n", MaxNameLen-1)}})
	require.NoError(t, err)
}

func TestDirectoryErrors(t *testing.T) {
	files := []File{{Name: "one", Data: []byte("1")}, {Name: "two", Data: []byte("2")}}
	second := HeaderSize + int(DirentExtent(3))

	tests := []struct {
		name    string
		mutate  func(b []byte) []byte
		wantErr error
		want    int
	}{
		{
			name:    "header magic",
			mutate:  func(b []byte) []byte { b[0] ^= 1; return b },
			wantErr: container.ErrBadMagic,
		},
		{
			name: "unaligned directory size",
			mutate: func(b []byte) []byte {
				writeU32LE(b[4:8], readU32LE(b[4:8])-1)
				return b
			},
			wantErr: container.ErrMisaligned,
		},
		{
			name:    "zero name length",
			mutate:  func(b []byte) []byte { writeU32LE(b[second:], 0); return b },
			wantErr: container.ErrBadType,
			want:    1,
		},
		{
			name:    "name length too long",
			mutate:  func(b []byte) []byte { writeU32LE(b[second:], MaxNameLen+1); return b },
			wantErr: container.ErrBadType,
			want:    1,
		},
		{
			name:    "name runs past directory",
			mutate:  func(b []byte) []byte { writeU32LE(b[second:], 64); return b },
			wantErr: container.ErrTruncated,
			want:    1,
		},
		{
			name:    "unterminated name",
			mutate:  func(b []byte) []byte { writeU32LE(b[second:], 3); return b },
			wantErr: container.ErrBadType,
			want:    1,
		},
		{
			name:    "unaligned data",
			mutate:  func(b []byte) []byte { writeU32LE(b[second+8:], PageSize+4); return b },
			wantErr: container.ErrMisaligned,
			want:    1,
		},
		{
			name:    "data past storage",
			mutate:  func(b []byte) []byte { writeU32LE(b[second+4:], 3*PageSize); return b },
			wantErr: container.ErrTruncated,
			want:    1,
		},
		{
			name:    "storage shorter than directory",
			mutate:  func(b []byte) []byte { return b[:second+4] },
			wantErr: container.ErrTruncated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image, err := Build(files)
			require.NoError(t, err)
			image = tt.mutate(image)

			v := NewView(container.Bytes(image))
			n := 0
			for _, err := range v.Items() {
				if err != nil {
					require.ErrorIs(t, err, tt.wantErr)
					continue
				}
				n++
			}
			assert.Equal(t, tt.want, n)
			_, err = Lookup(v, "two")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
