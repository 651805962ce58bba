package core

import "context"

// PoolLauncher starts a ready pool of size workers and names the mechanism
// that started it.
type PoolLauncher interface {
	Launch(ctx context.Context, size int) (Pool, string, error)
}
