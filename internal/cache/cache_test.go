package cache

import "testing"

func TestStoreLoad(t *testing.T) {
	SetDir(t.TempDir())
	defer SetDir("")

	key := Key("symbols-v1", "programs/vault/src/lib.rs", "pub const MAX: u64 = 1;")
	if _, ok := Load(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	if err := Store(key, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	b, ok := Load(key)
	if !ok || string(b) != `{"ok":true}` {
		t.Fatalf("Load = %q, %v", b, ok)
	}
}

func TestKeySeparatesParts(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("keys collide across part boundaries")
	}
	if Key("x", "y") != Key("x", "y") {
		t.Error("key not deterministic")
	}
}
