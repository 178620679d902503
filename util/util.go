package util

import (
	log "github.com/sirupsen/logrus"
)

// Debug is the highest DPrintf level that gets printed.
var Debug uint64 = 0

// SetDebug sets the DPrintf threshold and raises the logger to debug level
// when anything beyond level 0 is requested.
func SetDebug(level uint64) {
	Debug = level
	if level > 0 {
		log.SetLevel(log.DebugLevel)
	}
}

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		log.Debugf(format, a...)
	}
}

// RoundUp returns the number of sz-sized units needed to hold n.
func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

// AlignUp rounds n up to a multiple of sz.
func AlignUp(n uint64, sz uint64) uint64 {
	return RoundUp(n, sz) * sz
}

// AlignDown rounds n down to a multiple of sz.
func AlignDown(n uint64, sz uint64) uint64 {
	return (n / sz) * sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

func SumOverflows(n uint64, m uint64) bool {
	return n+m < n
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}
