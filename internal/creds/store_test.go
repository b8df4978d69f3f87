package creds

import (
	"testing"

	"github.com/StayHubLab/stayhub-go/api"
)

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	token, _, err := s.LoadSession()
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		t.Fatalf("expected empty session, got token %q", token)
	}

	user := api.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: "tenant"}
	if err := s.SaveSession("tok-123", user); err != nil {
		t.Fatal(err)
	}

	token, got, err := s.LoadSession()
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-123" || got.ID != "u1" || got.Role != "tenant" {
		t.Fatalf("unexpected session: token=%q user=%+v", token, got)
	}

	if err := s.ClearSession(); err != nil {
		t.Fatal(err)
	}
	token, _, err = s.LoadSession()
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		t.Fatal("expected cleared session")
	}
}

func TestSessionSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSession("tok-456", api.User{ID: "u2"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	token, user, err := s.LoadSession()
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-456" || user.ID != "u2" {
		t.Fatalf("session lost across reopen: token=%q user=%+v", token, user)
	}
}

func TestPreferences(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	v, err := s.GetPreference("theme")
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Fatalf("expected empty value for missing key, got %q", v)
	}

	if err := s.SetPreference("theme", "dark"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPreference("theme", "light"); err != nil {
		t.Fatal(err)
	}

	v, err = s.GetPreference("theme")
	if err != nil {
		t.Fatal(err)
	}
	if v != "light" {
		t.Fatalf("expected upserted value, got %q", v)
	}
}

func TestDeviceIDStable(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	first, err := s.DeviceID()
	if err != nil {
		t.Fatal(err)
	}
	if first == "" {
		t.Fatal("expected a generated device ID")
	}
	s.Close()

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	second, err := s.DeviceID()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("device ID must be stable: %s vs %s", first, second)
	}
}
