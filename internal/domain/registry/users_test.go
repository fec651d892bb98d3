package registry

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestUsers_GetOrMake(t *testing.T) {
	r := NewUsers()
	id := uuid.New()

	u := r.GetOrMake(id, "")
	if _, ok := u.Username(); ok {
		t.Fatal("new user should have no username")
	}
	if again := r.GetOrMake(id, "Dinnerbone"); again != u {
		t.Fatal("GetOrMake returned a different instance")
	}
	if name, _ := u.Username(); name != "Dinnerbone" {
		t.Fatalf("username = %q", name)
	}

	if found, ok := r.GetByUsername("dinnerbone"); !ok || found != u {
		t.Fatal("case-insensitive lookup failed")
	}
	if _, ok := r.GetByUsername("grumm"); ok {
		t.Fatal("unexpected match")
	}
}

func TestUsers_Unload(t *testing.T) {
	r := NewUsers()
	a, b := uuid.New(), uuid.New()
	r.GetOrMake(a, "")
	r.GetOrMake(b, "")

	r.Unload(a)
	if r.IsLoaded(a) || !r.IsLoaded(b) {
		t.Fatal("unload removed the wrong user")
	}
	if r.Len() != 1 || len(r.IDs()) != 1 || len(r.All()) != 1 {
		t.Fatalf("len = %d", r.Len())
	}
	if _, ok := r.GetIfLoaded(a); ok {
		t.Fatal("unloaded user still returned")
	}
}

func TestUsers_ConcurrentGetOrMake(t *testing.T) {
	r := NewUsers()
	id := uuid.New()

	var wg sync.WaitGroup
	seen := make(chan any, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- r.GetOrMake(id, "")
		}()
	}
	wg.Wait()
	close(seen)

	first := <-seen
	for u := range seen {
		if u != first {
			t.Fatal("concurrent GetOrMake produced two users")
		}
	}
}
