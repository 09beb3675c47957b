package store

import (
	"errors"
	"testing"
)

func TestSettingRepository(t *testing.T) {
	s := newTestStore(t)
	settings := s.Settings()

	if _, err := settings.Get("theme"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing error = %v, want ErrNotFound", err)
	}

	if err := settings.Set("theme", "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := settings.Set("theme", "light"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	v, err := settings.Get("theme")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "light" {
		t.Errorf("Get() = %q, want light", v)
	}

	if err := settings.Delete("theme"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := settings.Delete("theme"); err != nil {
		t.Errorf("Delete() of a missing key error = %v", err)
	}
}

func TestStore_ActiveProfile(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.ActiveProfile(); !errors.Is(err, ErrNotFound) {
		t.Errorf("ActiveProfile() error = %v, want ErrNotFound", err)
	}
	if _, err := s.SetActiveProfile("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetActiveProfile() error = %v, want ErrNotFound", err)
	}

	p := &Profile{Name: "green", Band: greenBand}
	if err := s.Profiles().Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.SetActiveProfile(p.ID); err != nil {
		t.Fatalf("SetActiveProfile() error = %v", err)
	}

	active, err := s.ActiveProfile()
	if err != nil {
		t.Fatalf("ActiveProfile() error = %v", err)
	}
	if active.ID != p.ID || active.Band != greenBand {
		t.Errorf("ActiveProfile() = %+v", active)
	}
}
