package usecase

import "sync"

// RepoLocks serializes writers of the same repository. Saves and builds for
// one repo never interleave; different repos proceed in parallel.
type RepoLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRepoLocks() *RepoLocks {
	return &RepoLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the repository is free and returns the release func.
func (l *RepoLocks) Lock(repoID string) func() {
	l.mu.Lock()
	m, ok := l.locks[repoID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[repoID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// TryLock acquires the repository lock without blocking. It reports false
// when another save or build holds it.
func (l *RepoLocks) TryLock(repoID string) (func(), bool) {
	l.mu.Lock()
	m, ok := l.locks[repoID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[repoID] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}
