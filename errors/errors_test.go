package errors

import (
	"testing"
)

func TestSentinelWrapping(t *testing.T) {
	err := Wrap(ErrConflict, "manifest patch rejected")
	if !Is(err, ErrConflict) {
		t.Fatal("wrapped conflict error lost its sentinel")
	}
	if Is(err, ErrNotFound) {
		t.Fatal("conflict error should not match not-found sentinel")
	}
}

func TestIsConflictError(t *testing.T) {
	if IsConflictError(nil) {
		t.Fatal("nil is not a conflict error")
	}
	if !IsConflictError(Wrapf(ErrConflict, "view %s", "front")) {
		t.Fatal("wrapped conflict not detected")
	}
	if IsConflictError(New("some other error")) {
		t.Fatal("unrelated error detected as conflict")
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("asset %s missing", "sha256:abc")
	if !IsNotFoundError(err) {
		t.Fatal("formatted not-found error lost its sentinel")
	}
}
