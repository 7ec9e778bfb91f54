package auth

import (
	"reflect"
	"testing"
)

func TestPermissionSet(t *testing.T) {
	s := NewPermissionSet("roles.read", "audit.read", "roles.read")
	if len(s) != 2 {
		t.Errorf("duplicates should collapse, got %d entries", len(s))
	}
	if !s.Has("roles.read") {
		t.Error("expected roles.read in set")
	}
	if s.Has("roles.manage") {
		t.Error("did not expect roles.manage in set")
	}

	s.Add("roles.manage")
	if !s.Has("roles.manage") {
		t.Error("Add did not take effect")
	}

	want := []string{"audit.read", "roles.manage", "roles.read"}
	if got := s.Slice(); !reflect.DeepEqual(got, want) {
		t.Errorf("Slice() = %v, want %v", got, want)
	}
}
