package model

import "testing"

func TestStorageMetadata_Combine(t *testing.T) {
	a := StorageMetadata{Name: "SQLite", PingMillis: 3, SizeBytes: 100, Details: map[string]string{"a": "1"}}.WithConnected(true)
	b := StorageMetadata{Name: "Redis", PingMillis: 9, SizeBytes: 50, Details: map[string]string{"b": "2"}}.WithConnected(false)

	c := a.Combine(b)
	if c.Name != "SQLite, Redis" {
		t.Fatalf("name = %q", c.Name)
	}
	if c.IsConnected() {
		t.Fatal("combined store must be disconnected when one backend is")
	}
	if c.PingMillis != 9 || c.SizeBytes != 150 {
		t.Fatalf("ping=%d size=%d", c.PingMillis, c.SizeBytes)
	}
	if c.Details["a"] != "1" || c.Details["b"] != "2" {
		t.Fatalf("details = %v", c.Details)
	}

	// unknown connectivity does not override a known value
	d := StorageMetadata{}.Combine(a)
	if d.Connected == nil || !*d.Connected {
		t.Fatal("expected connectivity of the known side")
	}
}
