package snapshot

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a BLAKE2b-256 digest over the canonical encoding of a
// snapshot. Two snapshots with equal fingerprints compile identically.
type Fingerprint [blake2b.Size256]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

func (s *Snapshot) computeFingerprint() Fingerprint {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for oversized keys
		panic(err)
	}

	w := fingerprintWriter{h: h}

	w.int(len(s.vertices))
	for _, v := range s.vertices {
		w.float(v.X)
		w.float(v.Y)
	}

	w.int(len(s.linedefs))
	for _, ld := range s.linedefs {
		w.int(ld.Start)
		w.int(ld.End)
		w.int(int(ld.Flags))
		w.int(ld.Front)
		w.int(ld.Back)
	}

	w.int(len(s.sidedefs))
	for _, sd := range s.sidedefs {
		w.int(sd.Sector)
	}

	w.int(len(s.sectors))
	for _, sec := range s.sectors {
		w.int(sec.Tag)
	}

	var f Fingerprint
	copy(f[:], h.Sum(nil))

	return f
}

type fingerprintWriter struct {
	h   hash.Hash
	buf [8]byte
}

func (w *fingerprintWriter) int(v int) {
	binary.LittleEndian.PutUint64(w.buf[:], uint64(int64(v)))
	w.h.Write(w.buf[:])
}

func (w *fingerprintWriter) float(v float64) {
	binary.LittleEndian.PutUint64(w.buf[:], math.Float64bits(v))
	w.h.Write(w.buf[:])
}
