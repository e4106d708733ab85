package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"eshop/internal/database/dbtest"
	"eshop/internal/models"
	"eshop/internal/repositories"

	"github.com/stretchr/testify/require"
)

// Catalog entries from the built-in seed file.
const (
	cpuID = "cpu-ryzen-7600" // 199.99
	ramID = "ram-ddr4-16"    // 42.50
)

type fakeMailbox struct {
	mu      sync.Mutex
	fail    bool
	objects map[string][]byte
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{objects: map[string][]byte{}}
}

func (f *fakeMailbox) Put(ctx context.Context, bucket, key string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("mailbox unavailable")
	}
	f.objects[bucket+"/"+key] = body
	return nil
}

func (f *fakeMailbox) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeMailbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func newStore(t *testing.T) *repositories.Store {
	t.Helper()
	return repositories.NewStore(dbtest.Seed(t))
}

func createUser(t *testing.T, store *repositories.Store, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}
