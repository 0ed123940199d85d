package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func mustDecode(t *testing.T, b []byte) (uint64, []byte) {
	t.Helper()
	gen, p, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return gen, p
}

func TestRoundTripEmptyAndNonEmpty(t *testing.T) {
	cases := []struct {
		gen     uint64
		payload []byte
	}{
		{0, nil},
		{42, []byte("hello")},
		{math.MaxUint64, []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		enc := Encode(tc.gen, tc.payload)
		gen, p := mustDecode(t, enc)
		if gen != tc.gen {
			t.Fatalf("gen mismatch: got %d want %d", gen, tc.gen)
		}
		if !bytes.Equal(p, tc.payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, tc.payload)
		}
	}
}

func TestRejectsTrailingBytes(t *testing.T) {
	enc := Encode(7, []byte("x"))
	enc = append(enc, 0xDE, 0xAD)
	if _, _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestCorruptHeadersAndLengths(t *testing.T) {
	enc := Encode(1, []byte("abc"))

	// bad magic
	bad := append([]byte(nil), enc...)
	bad[0] = 'X'
	if _, _, err := Decode(bad); err != ErrCorrupt {
		t.Fatalf("bad magic: got %v", err)
	}

	// bad version
	bad = append([]byte(nil), enc...)
	bad[4] = 9
	if _, _, err := Decode(bad); err != ErrCorrupt {
		t.Fatalf("bad version: got %v", err)
	}

	// length claims more than available
	bad = append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(bad[13:17], 1000)
	if _, _, err := Decode(bad); err != ErrCorrupt {
		t.Fatalf("overlong vlen: got %v", err)
	}

	// truncated header
	if _, _, err := Decode(enc[:10]); err != ErrCorrupt {
		t.Fatalf("short frame: got %v", err)
	}

	// foreign, unframed bytes
	if _, _, err := Decode([]byte("not-wire-format")); err != ErrCorrupt {
		t.Fatalf("foreign bytes: got %v", err)
	}
}
