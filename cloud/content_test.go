package cloud

import (
	"bytes"
	"strings"
	"testing"
)

func TestContentHashDeterministic(t *testing.T) {
	data := []byte("the same bytes")
	h1 := ContentHash(data)
	h2 := ContentHash(data)
	if h1 != h2 {
		t.Errorf("same bytes produced different hashes: %s vs %s", h1, h2)
	}
}

func TestContentHashPrefix(t *testing.T) {
	h := ContentHash([]byte("x"))
	if !strings.HasPrefix(h, "sha256:") {
		t.Errorf("hash missing algorithm prefix: %s", h)
	}
	if len(h) != len("sha256:")+64 {
		t.Errorf("unexpected hash length %d: %s", len(h), h)
	}
}

func TestContentHashDiffers(t *testing.T) {
	if ContentHash([]byte("a")) == ContentHash([]byte("b")) {
		t.Error("different bytes produced the same hash")
	}
}

func TestContentHashCopyIndependent(t *testing.T) {
	data := []byte("mutate me")
	h1 := ContentHash(data)
	h2 := ContentHash(bytes.Clone(data))
	if h1 != h2 {
		t.Error("cloned bytes produced a different hash")
	}
}

func TestValidContentHash(t *testing.T) {
	valid := ContentHash([]byte("payload"))
	if !ValidContentHash(valid) {
		t.Errorf("real hash rejected: %s", valid)
	}

	invalid := []string{
		"",
		"sha256:",
		"sha256:abc",
		"md5:" + strings.Repeat("a", 64),
		"sha256:" + strings.Repeat("A", 64), // uppercase hex
		"sha256:" + strings.Repeat("g", 64), // non-hex
		strings.Repeat("a", 64),             // no prefix
	}
	for _, s := range invalid {
		if ValidContentHash(s) {
			t.Errorf("invalid hash accepted: %q", s)
		}
	}
}
