package merkle

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multiLevelLen = DigestsPerNode*NodeSize + 1

var boundarySizes = []int{0, 1, NodeSize - 1, NodeSize, NodeSize + 1, 3*NodeSize + 5, multiLevelLen}

func testData(n int) []byte {
	data := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(data)
	return data
}

// referenceTree builds the tree one whole level at a time.
func referenceTree(newHash func() hash.Hash, scheme Scheme, data []byte) (Digest, []byte) {
	h := newHash()
	node := func(offset, level int, b []byte) []byte {
		h.Reset()
		if scheme == SchemeLocality {
			length := len(b)
			if level > 0 {
				length = NodeSize
			}
			var prefix [12]byte
			binary.LittleEndian.PutUint64(prefix[:8], uint64(offset)|uint64(level))
			binary.LittleEndian.PutUint32(prefix[8:], uint32(length))
			h.Write(prefix[:])
			h.Write(b)
			if len(b) > 0 {
				h.Write(make([]byte, NodeSize-len(b)))
			}
		} else {
			h.Write(b)
		}
		return h.Sum(nil)
	}

	var tree []byte
	cur, level := data, 0
	for len(cur) > NodeSize {
		var next []byte
		for off := 0; off < len(cur); off += NodeSize {
			next = append(next, node(off, level, cur[off:min(off+NodeSize, len(cur))])...)
		}
		tree = append(tree, next...)
		tree = append(tree, make([]byte, (NodeSize-len(next)%NodeSize)%NodeSize)...)
		cur, level = next, level+1
	}
	var root Digest
	copy(root[:], node(0, level, cur))
	return root, tree
}

func TestGetTreeLength(t *testing.T) {
	tests := []struct {
		dataLen uint64
		want    uint64
	}{
		{0, 0},
		{1, 0},
		{NodeSize - 1, 0},
		{NodeSize, 0},
		{NodeSize + 1, NodeSize},
		{DigestsPerNode * NodeSize, NodeSize},
		{DigestsPerNode*NodeSize + 1, 3 * NodeSize},
		{DigestsPerNode * DigestsPerNode * NodeSize, DigestsPerNode*NodeSize + NodeSize},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetTreeLength(tt.dataLen), "data length %d", tt.dataLen)
	}
	assert.NotZero(t, GetTreeLength(^uint64(0)))
}

func TestCreateMatchesReference(t *testing.T) {
	blake3, err := HashByName(HashBLAKE3)
	require.NoError(t, err)

	for _, scheme := range []Scheme{SchemePlain, SchemeLocality} {
		for _, alg := range []struct {
			name    string
			newHash func() hash.Hash
		}{{HashSHA256, sha256.New}, {HashBLAKE3, blake3}} {
			for _, n := range boundarySizes {
				t.Run(fmt.Sprintf("%s/%s/%d", scheme, alg.name, n), func(t *testing.T) {
					data := testData(n)
					wantRoot, wantTree := referenceTree(alg.newHash, scheme, data)
					require.Equal(t, GetTreeLength(uint64(n)), uint64(len(wantTree)))

					var tree []byte
					if len(wantTree) > 0 {
						tree = make([]byte, len(wantTree))
					}
					root, err := Create(data, tree, WithHash(alg.newHash), WithScheme(scheme))
					require.NoError(t, err)
					assert.Equal(t, wantRoot, root)
					assert.True(t, bytes.Equal(wantTree, tree))

					require.NoError(t, Verify(data, tree, 0, uint64(n), root, WithHash(alg.newHash), WithScheme(scheme)))
				})
			}
		}
	}
}

func TestRootPinnedForTwoNodes(t *testing.T) {
	data := testData(NodeSize + 1)
	d0 := sha256.Sum256(data[:NodeSize])
	d1 := sha256.Sum256(data[NodeSize:])
	want := sha256.Sum256(append(d0[:], d1[:]...))

	tree := make([]byte, NodeSize)
	root, err := Create(data, tree)
	require.NoError(t, err)
	assert.Equal(t, Digest(want), root)
	assert.Equal(t, d0[:], tree[:DigestLen])
	assert.Equal(t, d1[:], tree[DigestLen:2*DigestLen])
	assert.Equal(t, make([]byte, NodeSize-2*DigestLen), tree[2*DigestLen:])

	empty, err := Create(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Digest(sha256.Sum256(nil)), empty)

	small := []byte("hello")
	root, err = Create(small, nil)
	require.NoError(t, err)
	assert.Equal(t, Digest(sha256.Sum256(small)), root)
}

func TestLocalityKnownRoots(t *testing.T) {
	tests := []struct {
		dataLen int
		want    string
	}{
		{0, "15ec7bf0b50732b49f8228e07d24365338f9e3ab994b00af08e5a3bffe55fd8b"},
		{1, "0967e0f62a104d1595610d272dfab3d2fa2fe07be0eebce13ef5d79db142610e"},
		{NodeSize / 2, "0a90612c255555469dead72c8fdc41eec06dfe04a30a1f2b7c480ff95d20c5ec"},
		{NodeSize - 1, "f2abd690381bab3ce485c814d05c310b22c34a7441418b5c1a002c344a80e730"},
		{NodeSize, "68d131bc271f9c192d4f6dcd8fe61bef90004856da19d0f2f514a7f4098b0737"},
		{NodeSize + 1, "374781f7d770b6ee9c1a63e186d2d0ccdad10d6aef4fd027e82b1be5b70a2a0c"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.dataLen), func(t *testing.T) {
			want, err := ParseDigest(tt.want)
			require.NoError(t, err)
			data := bytes.Repeat([]byte{0xff}, tt.dataLen)
			tree := make([]byte, GetTreeLength(uint64(tt.dataLen)))

			root, err := Create(data, tree, WithScheme(SchemeLocality))
			require.NoError(t, err)
			assert.Equal(t, want, root)

			b, err := CreateInit(uint64(tt.dataLen), uint64(len(tree)), WithScheme(SchemeLocality))
			require.NoError(t, err)
			assert.Equal(t, uint64(tt.dataLen), b.DataLen())
			assert.Equal(t, uint64(len(tree)), b.TreeLen())
			require.NoError(t, b.Update(data, tree))
			root, err = b.Final(tree)
			require.NoError(t, err)
			assert.Equal(t, want, root)

			require.NoError(t, Verify(data, tree, 0, uint64(tt.dataLen), want, WithScheme(SchemeLocality)))
		})
	}

	// Interior nodes record NodeSize as their length, not the 64 bytes of
	// the two digests they hold.
	data := bytes.Repeat([]byte{0xff}, NodeSize+1)
	tree := make([]byte, NodeSize)
	root, err := Create(data, tree, WithScheme(SchemeLocality))
	require.NoError(t, err)
	var prefix [12]byte
	binary.LittleEndian.PutUint64(prefix[:8], 1)
	binary.LittleEndian.PutUint32(prefix[8:], NodeSize)
	h := sha256.New()
	h.Write(prefix[:])
	h.Write(tree[:2*DigestLen])
	h.Write(make([]byte, NodeSize-2*DigestLen))
	assert.Equal(t, h.Sum(nil), root[:])
}

func TestCreateDeterministic(t *testing.T) {
	data := testData(multiLevelLen)
	treeLen := GetTreeLength(uint64(len(data)))

	tree1 := make([]byte, treeLen)
	root1, err := Create(data, tree1)
	require.NoError(t, err)

	// A dirty buffer, larger than needed, yields the same tree.
	tree2 := bytes.Repeat([]byte{0xff}, int(treeLen)+100)
	root2, err := Create(data, tree2)
	require.NoError(t, err)

	assert.Equal(t, root1, root2)
	assert.True(t, bytes.Equal(tree1, tree2[:treeLen]))
}

func TestStreamingMatchesCreate(t *testing.T) {
	for _, scheme := range []Scheme{SchemePlain, SchemeLocality} {
		for _, tt := range []struct {
			n     int
			chunk int
		}{
			{3*NodeSize + 5, 1},
			{NodeSize + 1, 3},
			{multiLevelLen, 7},
			{multiLevelLen, NodeSize},
			{multiLevelLen, 10000},
			{multiLevelLen, multiLevelLen},
		} {
			t.Run(fmt.Sprintf("%s/%d/%d", scheme, tt.n, tt.chunk), func(t *testing.T) {
				data := testData(tt.n)
				treeLen := GetTreeLength(uint64(tt.n))
				want := make([]byte, treeLen)
				wantRoot, err := Create(data, want, WithScheme(scheme))
				require.NoError(t, err)

				tree := make([]byte, treeLen)
				b, err := CreateInit(uint64(tt.n), treeLen, WithScheme(scheme))
				require.NoError(t, err)
				for off := 0; off < tt.n; off += tt.chunk {
					require.NoError(t, b.Update(data[off:min(off+tt.chunk, tt.n)], tree))
				}
				root, err := b.Final(tree)
				require.NoError(t, err)
				assert.Equal(t, wantRoot, root)
				assert.True(t, bytes.Equal(want, tree))
			})
		}
	}
}

func TestBuilderProtocol(t *testing.T) {
	data := testData(NodeSize + 10)
	tree := make([]byte, NodeSize)

	_, err := CreateInit(uint64(len(data)), NodeSize-1)
	require.ErrorIs(t, err, ErrBufferTooSmall)

	b, err := CreateInit(uint64(len(data)), NodeSize)
	require.NoError(t, err)
	require.NoError(t, b.Update(data[:100], tree))

	_, err = b.Final(tree)
	require.ErrorIs(t, err, ErrBadState)

	require.ErrorIs(t, b.Update(make([]byte, len(data)), tree), ErrOutOfRange)
	require.ErrorIs(t, b.Update(data[100:], nil), ErrInvalidArgs)
	require.ErrorIs(t, b.Update(data[100:], tree[:10]), ErrBufferTooSmall)
	require.NoError(t, b.Update(data[100:], tree))
	require.ErrorIs(t, b.Update([]byte{0}, tree), ErrOutOfRange)

	root, err := b.Final(tree)
	require.NoError(t, err)
	want, err := Create(data, make([]byte, NodeSize))
	require.NoError(t, err)
	assert.Equal(t, want, root)

	_, err = b.Final(tree)
	require.ErrorIs(t, err, ErrBadState)
	require.ErrorIs(t, b.Update(nil, tree), ErrBadState)
}

func TestCreateArgs(t *testing.T) {
	data := testData(NodeSize + 1)

	_, err := Create(data, nil)
	require.ErrorIs(t, err, ErrInvalidArgs)

	_, err = Create(data, make([]byte, NodeSize-1))
	require.ErrorIs(t, err, ErrBufferTooSmall)

	_, err = Create(data, make([]byte, NodeSize), WithHash(sha512.New))
	require.ErrorIs(t, err, ErrBadHashSize)

	_, err = Create(data, make([]byte, NodeSize), WithScheme(Scheme(9)))
	require.ErrorIs(t, err, ErrInvalidArgs)

	_, err = HashByName("md5")
	require.ErrorIs(t, err, ErrUnknownHash)
}

func TestVerifyRanges(t *testing.T) {
	data := testData(3*NodeSize + 5)
	tree := make([]byte, GetTreeLength(uint64(len(data))))
	root, err := Create(data, tree)
	require.NoError(t, err)

	for _, r := range [][2]uint64{
		{0, 1},
		{1, 1},
		{NodeSize - 1, 2},
		{NodeSize, NodeSize},
		{100, 2*NodeSize + 3},
		{3 * NodeSize, 5},
		{uint64(len(data)) - 1, 1},
	} {
		require.NoError(t, Verify(data, tree, r[0], r[1], root), "range %v", r)
	}

	// Excess tree bytes are ignored.
	big := append(append([]byte(nil), tree...), 0xff, 0xff)
	require.NoError(t, Verify(data, big, 0, uint64(len(data)), root))

	empty, err := Create(nil, nil)
	require.NoError(t, err)
	require.NoError(t, Verify(nil, nil, 0, 0, empty))
}

func TestVerifyArgs(t *testing.T) {
	data := testData(NodeSize + 1)
	tree := make([]byte, NodeSize)
	root, err := Create(data, tree)
	require.NoError(t, err)

	require.ErrorIs(t, Verify(data, tree, 0, 0, root), ErrInvalidArgs)
	require.ErrorIs(t, Verify(data, tree, 1, NodeSize+1, root), ErrOutOfRange)
	require.ErrorIs(t, Verify(data, tree, NodeSize+2, 1, root), ErrOutOfRange)
	require.ErrorIs(t, Verify(data, nil, 0, 1, root), ErrInvalidArgs)
	require.ErrorIs(t, Verify(data, tree[:NodeSize-1], 0, 1, root), ErrBufferTooSmall)

	require.ErrorIs(t, VerifyNodes(data[1:NodeSize+1], 1, uint64(len(data)), tree, root), ErrInvalidArgs)
	require.ErrorIs(t, VerifyNodes(data[:10], 0, uint64(len(data)), tree, root), ErrInvalidArgs)
	require.ErrorIs(t, VerifyNodes(nil, 0, uint64(len(data)), tree, root), ErrInvalidArgs)
	require.NoError(t, VerifyNodes(data[NodeSize:], NodeSize, uint64(len(data)), tree, root))
	require.NoError(t, VerifyNodes(data[:NodeSize], 0, uint64(len(data)), tree, root))
}

func TestVerifyDetectsTampering(t *testing.T) {
	for _, scheme := range []Scheme{SchemePlain, SchemeLocality} {
		t.Run(scheme.String(), func(t *testing.T) {
			data := testData(multiLevelLen)
			dataLen := uint64(len(data))
			tree := make([]byte, GetTreeLength(dataLen))
			root, err := Create(data, tree, WithScheme(scheme))
			require.NoError(t, err)
			verify := func(data, tree []byte, offset, length uint64, root Digest) error {
				return Verify(data, tree, offset, length, root, WithScheme(scheme))
			}
			flip := func(b []byte, i int) []byte {
				c := append([]byte(nil), b...)
				c[i] ^= 0x10
				return c
			}

			// Data bit inside and outside the verified range.
			bad := flip(data, 5*NodeSize+17)
			require.ErrorIs(t, verify(bad, tree, 5*NodeSize, 100, root), ErrIoDataIntegrity)
			require.ErrorIs(t, verify(bad, tree, 0, dataLen, root), ErrIoDataIntegrity)
			require.NoError(t, verify(bad, tree, 0, NodeSize, root))

			// The leaf digest of node 5 lives in the first level 1 node; the
			// last leaf digest lives in the second.
			badTree := flip(tree, 5*DigestLen+3)
			require.ErrorIs(t, verify(data, badTree, 5*NodeSize, 1, root), ErrIoDataIntegrity)
			require.ErrorIs(t, verify(data, badTree, 0, 1, root), ErrIoDataIntegrity)
			require.NoError(t, verify(data, badTree, dataLen-1, 1, root))

			badTree = flip(tree, NodeSize)
			require.ErrorIs(t, verify(data, badTree, dataLen-1, 1, root), ErrIoDataIntegrity)
			require.NoError(t, verify(data, badTree, 0, NodeSize, root))

			// Level 2 digests are on every path.
			badTree = flip(tree, 2*NodeSize+DigestLen)
			require.ErrorIs(t, verify(data, badTree, dataLen-1, 1, root), ErrIoDataIntegrity)
			badTree = flip(tree, 2*NodeSize)
			require.ErrorIs(t, verify(data, badTree, 0, 1, root), ErrIoDataIntegrity)

			// Padding after the last digest of level 1.
			badTree = flip(tree, NodeSize+DigestLen+1)
			require.ErrorIs(t, verify(data, badTree, dataLen-1, 1, root), ErrIoDataIntegrity)

			badRoot := root
			badRoot[31] ^= 1
			require.ErrorIs(t, verify(data, tree, 0, 1, badRoot), ErrIoDataIntegrity)
		})
	}
}

func TestDigestText(t *testing.T) {
	d := Digest(sha256.Sum256([]byte("digest")))

	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	assert.True(t, d.Equal(parsed))

	_, err = ParseDigest(d.String()[2:])
	require.ErrorIs(t, err, ErrBadDigest)
	_, err = ParseDigest("zz" + d.String()[2:])
	require.ErrorIs(t, err, ErrBadDigest)

	_, err = DigestFromBytes(d[:31])
	require.ErrorIs(t, err, ErrBadDigest)

	encoded, err := json.Marshal(map[string]Digest{"root": d})
	require.NoError(t, err)
	assert.Equal(t, `{"root":"`+d.String()+`"}`, string(encoded))

	var decoded map[string]Digest
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, d, decoded["root"])
}
