package containertesting

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-bootverify/bootfs"
	"github.com/forestrie/go-bootverify/zbi"
)

type TestContext struct {
	Log logger.Logger
	FS  billy.Filesystem
	T   *testing.T
}

type TestConfig struct {
	TestLabelPrefix string
	// LogLevel defaults to NOOP so tests stay quiet.
	LogLevel string
}

func NewTestContext(t *testing.T, cfg TestConfig) TestContext {
	level := cfg.LogLevel
	if level == "" {
		level = "NOOP"
	}
	logger.New(level)
	return TestContext{
		Log: logger.Sugar.WithServiceName(cfg.TestLabelPrefix),
		FS:  memfs.New(),
		T:   t,
	}
}

func (c *TestContext) GetLog() logger.Logger { return c.Log }

// Item describes one item of a boot image built by BuildImage.
type Item struct {
	Type    uint32
	Extra   uint32
	Flags   uint32
	Payload []byte
	// Compress stores the payload compressed; only valid for storage items.
	Compress    bool
	Compression zbi.Compression
}

// BuildImage lays out a boot image holding items, in order.
func (c *TestContext) BuildImage(items ...Item) []byte {
	capacity := zbi.HeaderSize
	for _, it := range items {
		capacity += 2*zbi.HeaderSize + 2*len(it.Payload) + 64
	}
	buf := make([]byte, capacity)
	require.NoError(c.T, zbi.Init(buf))
	for _, it := range items {
		if it.Compress {
			require.NoError(c.T, zbi.CreateCompressedEntry(buf, it.Type, it.Payload, it.Compression))
			continue
		}
		require.NoError(c.T, zbi.CreateEntryWithPayload(buf, it.Type, it.Extra, it.Flags, it.Payload))
	}
	image, err := zbi.Contents(buf)
	require.NoError(c.T, err)
	return image
}

// BuildBootfs lays out a bootfs image of files.
func (c *TestContext) BuildBootfs(files map[string]string) []byte {
	var list []bootfs.File
	for name, data := range files {
		list = append(list, bootfs.File{Name: name, Data: []byte(data)})
	}
	image, err := bootfs.Build(list)
	require.NoError(c.T, err)
	return image
}

// StandardImage returns a boot image with a kernel, a command line, a ramdisk
// and a bootfs holding files.
func (c *TestContext) StandardImage(files map[string]string, compression *zbi.Compression) []byte {
	bfs := Item{Type: zbi.TypeBootfs, Payload: c.BuildBootfs(files)}
	if compression != nil {
		bfs.Compress, bfs.Compression = true, *compression
	}
	return c.BuildImage(
		Item{Type: zbi.TypeKernelX64, Payload: []byte("kernel-image")},
		Item{Type: zbi.TypeCmdline, Payload: []byte("console=ttyS0 ro")},
		Item{Type: zbi.TypeRamdisk, Payload: []byte("ramdisk contents")},
		bfs,
	)
}
