// Package storage provides tests for both local state backends.
package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	b, err := NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"badger": b,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, KeyUserToken); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() on empty store error = %v, want ErrNotFound", err)
			}
			if err := s.Put(ctx, KeyUserToken, []byte("tok")); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			v, err := s.Get(ctx, KeyUserToken)
			if err != nil || string(v) != "tok" {
				t.Errorf("Get() = %q, %v", v, err)
			}
			if err := s.Delete(ctx, KeyUserToken); err != nil {
				t.Errorf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, KeyUserToken); err != nil {
				t.Errorf("second Delete() error = %v", err)
			}
		})
	}
}

func TestStringAndIDHelpers(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if got, err := GetString(ctx, s, KeyAdminToken); err != nil || got != "" {
				t.Errorf("GetString() on missing key = %q, %v", got, err)
			}
			if err := PutString(ctx, s, KeyAdminToken, "admin"); err != nil {
				t.Fatal(err)
			}
			if got, _ := GetString(ctx, s, KeyAdminToken); got != "admin" {
				t.Errorf("GetString() = %q, want admin", got)
			}
			if err := PutString(ctx, s, KeyAdminToken, ""); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Get(ctx, KeyAdminToken); !errors.Is(err, ErrNotFound) {
				t.Errorf("PutString(\"\") should delete the key")
			}

			if got, err := GetIDs(ctx, s, KeySavedItems); err != nil || got != nil {
				t.Errorf("GetIDs() on missing key = %v, %v", got, err)
			}
			want := []string{"1", "7", "3"}
			if err := PutIDs(ctx, s, KeySavedItems, want); err != nil {
				t.Fatal(err)
			}
			got, err := GetIDs(ctx, s, KeySavedItems)
			if err != nil || !reflect.DeepEqual(got, want) {
				t.Errorf("GetIDs() = %v, %v, want %v", got, err, want)
			}
		})
	}
}
