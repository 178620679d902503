package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-newfs/addr"
)

func TestInstall(t *testing.T) {
	units := make([]byte, 1024)
	units[99] = 0xAA
	units[104] = 0xBB
	b := MkBuf(addr.MkAddr(3, 100), []byte{1, 2, 3, 4})
	b.Install(units)
	assert.Equal(t, []byte{0xAA, 1, 2, 3, 4, 0xBB}, units[99:105],
		"neighbouring bytes should be untouched")
}

func TestMkBufLoad(t *testing.T) {
	assert := assert.New(t)
	units := make([]byte, 1024)
	for i := range units {
		units[i] = byte(i)
	}
	b := MkBufLoad(addr.MkAddr(0, 510), 4, units)
	assert.Equal([]byte{254, 255, 0, 1}, b.Data, "object straddles two units")
	assert.Equal(uint64(4), b.Sz)
}

func TestAligned(t *testing.T) {
	assert := assert.New(t)
	assert.True(MkBuf(addr.MkAddr(2, 0), make([]byte, 1024)).Aligned(512))
	assert.False(MkBuf(addr.MkAddr(2, 0), make([]byte, 80)).Aligned(512))
	assert.False(MkBuf(addr.MkAddr(2, 8), make([]byte, 512)).Aligned(512))
}
