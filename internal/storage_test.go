package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/iksnae/repo-pilot/testutil"
)

func TestSQLiteStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testutil.CreateInMemoryDB(t))

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.Put(ctx, "repo-content-a/b", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	// Put is a full replace
	if err := store.Put(ctx, "repo-content-a/b", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, "repo-content-a/b")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("Get() = %s, want {\"v\":2}", got)
	}

	if err := store.Delete(ctx, "repo-content-a/b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "repo-content-a/b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}

	// deleting a missing key is fine
	if err := store.Delete(ctx, "repo-content-a/b"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testutil.CreateTestDB(t))

	// underscore is a LIKE wildcard and must not match arbitrary characters
	if err := store.Put(ctx, "repo_contentX", []byte("{}")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	pairs, err := store.List(ctx, "repo-content-")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("List() returned %d pairs, want 2", len(pairs))
	}
	if pairs[0].Key != "repo-content-octo/broken" || pairs[1].Key != "repo-content-octo/hello" {
		t.Errorf("List() keys = [%s %s], want ordered corpus keys", pairs[0].Key, pairs[1].Key)
	}

	pairs, err = store.List(ctx, "repo_")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(pairs) != 1 || pairs[0].Key != "repo_contentX" {
		t.Errorf("List(repo_) = %v, want only repo_contentX", pairs)
	}
}

func TestOpenSQLiteStore(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	store, err := OpenSQLiteStore(dir + "/cache/repo-pilot.db")
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "k", []byte("v")); err != nil {
		t.Errorf("Put() error = %v", err)
	}
}
