package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/michaelgiba/covered/internal/services"
)

func TestWrapTagsMarkerAndKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrTimeout, "snapshot", "navigate", "page load", cause)

	if !errors.Is(err, services.ErrTimeout) {
		t.Fatal("expected wrapped error to match marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped error to match cause")
	}
	for _, part := range []string{"snapshot", "navigate", "page load"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("expected %q in %q", part, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "narrate", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "s", "", "", nil), "validation"},
		{services.Wrap(services.ErrTimeout, "s", "", "", nil), "timeout"},
		{errors.New("anything"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
