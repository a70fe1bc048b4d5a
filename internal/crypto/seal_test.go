package crypto

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"testing"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestDeriveKey_DeterministicAndSaltDependent(t *testing.T) {
	t.Parallel()
	pw := []byte("secret-pass")
	s1 := []byte("salt-1")
	s2 := []byte("salt-2")
	k1 := DeriveKey(pw, s1)
	if len(k1) != KeyLen {
		t.Fatalf("key len=%d", len(k1))
	}
	if subtle.ConstantTimeCompare(k1, DeriveKey(pw, s1)) != 1 {
		t.Fatalf("DeriveKey not deterministic")
	}
	if subtle.ConstantTimeCompare(k1, DeriveKey(pw, s2)) != 0 {
		t.Fatalf("DeriveKey must change with salt")
	}
	if subtle.ConstantTimeCompare(k1, DeriveKey([]byte("other"), s1)) != 0 {
		t.Fatalf("DeriveKey must change with passphrase")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	pt := []byte(`[{"id":"u1"}]`)

	blob, err := Seal(key, []byte("social/users"), pt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(blob, pt) {
		t.Fatalf("plaintext leaked into blob")
	}
	out, err := Open(key, []byte("social/users"), blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(out, pt) {
		t.Fatalf("roundtrip mismatch")
	}
}

func TestOpen_WrongAADOrKeyOrTamper(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	blob, _ := Seal(key, []byte("a"), []byte("payload"))

	if _, err := Open(key, []byte("b"), blob); err == nil {
		t.Fatalf("want error for wrong aad")
	}
	other, _ := Rand(KeyLen)
	if _, err := Open(other, []byte("a"), blob); err == nil {
		t.Fatalf("want error for wrong key")
	}
	blob[len(blob)-1] ^= 0xff
	if _, err := Open(key, []byte("a"), blob); err == nil {
		t.Fatalf("want error for tampered blob")
	}
}

func TestOpen_Short(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	if _, err := Open(key, nil, []byte("x")); !errors.Is(err, ErrShortBlob) {
		t.Fatalf("want ErrShortBlob, got %v", err)
	}
}
