package kv

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "accounts", false},
		{"valid prefixed key", "alice:goals", false},
		{"valid camel case", "userProfile", false},
		{"empty key", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"control char null", "key\x00value", true},
		{"control char newline", "key\nvalue", true},
		{"leading space", " key", true},
		{"trailing space", "key ", true},
		{"valid unicode", "poupança", false},
		{"exactly 250 chars", strings.Repeat("a", 250), false},
		{"251 chars", strings.Repeat("a", 251), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ValidateKey(%q) error should wrap ErrInvalidKey, got %v", tt.key, err)
			}
		})
	}
}

func TestNamespace(t *testing.T) {
	tests := []struct {
		ns   Namespace
		name string
		key  string
	}{
		{"", "accounts", "accounts"},
		{"alice", "goals", "alice:goals"},
		{"finneo", "userProfile", "finneo:userProfile"},
	}

	for _, tt := range tests {
		key := tt.ns.Key(tt.name)
		if key != tt.key {
			t.Errorf("Namespace(%q).Key(%q) = %q, want %q", tt.ns, tt.name, key, tt.key)
		}
		name, ok := tt.ns.Name(key)
		if !ok || name != tt.name {
			t.Errorf("Namespace(%q).Name(%q) = %q, %v", tt.ns, key, name, ok)
		}
	}

	if _, ok := Namespace("alice").Name("bob:goals"); ok {
		t.Error("Name should reject keys of another namespace")
	}
}
