package prespawn

import (
	"sync"

	"github.com/google/uuid"
)

// Streaming tracks, on the server, which connections acknowledged which
// scenes through StartStreamingSceneGhosts/StopStreamingSceneGhosts. Prespawned
// ghosts of a scene are only relevant to connections streaming it, and a
// scene still streamed by anyone unloads only once the last one stops.
type Streaming struct {
	mu        sync.Mutex
	acks      map[uuid.UUID]map[uint64]struct{}
	unloading map[uint64]struct{}
}

func NewStreaming() *Streaming {
	return &Streaming{
		acks:      make(map[uuid.UUID]map[uint64]struct{}),
		unloading: make(map[uint64]struct{}),
	}
}

// Start records that conn has loaded scene.
func (s *Streaming) Start(conn uuid.UUID, scene uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.acks[conn]
	if !ok {
		set = make(map[uint64]struct{})
		s.acks[conn] = set
	}
	set[scene] = struct{}{}
}

// Stop removes scene from conn's set. It returns the scene when a deferred
// unload may now complete.
func (s *Streaming) Stop(conn uuid.UUID, scene uint64) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.acks[conn]; ok {
		delete(set, scene)
	}
	return s.releasable(scene)
}

// Drop forgets a disconnected connection and returns every scene whose
// deferred unload may now complete.
func (s *Streaming) Drop(conn uuid.UUID) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.acks[conn]
	delete(s.acks, conn)
	var out []uint64
	for scene := range set {
		out = append(out, s.releasable(scene)...)
	}
	return out
}

// Relevant reports whether conn streams scene.
func (s *Streaming) Relevant(conn uuid.UUID, scene uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.acks[conn][scene]
	return ok
}

// RequestUnload asks to unload scene. It returns true when nobody streams it
// and the caller may unload now; otherwise the unload is deferred and will be
// reported by Stop or Drop.
func (s *Streaming) RequestUnload(scene uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.referenced(scene) {
		s.unloading[scene] = struct{}{}
		return false
	}
	delete(s.unloading, scene)
	return true
}

// CancelUnload drops a pending unload, e.g. when the scene is loaded again.
func (s *Streaming) CancelUnload(scene uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unloading, scene)
}

// Unloading reports whether scene has a deferred unload pending.
func (s *Streaming) Unloading(scene uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.unloading[scene]
	return ok
}

func (s *Streaming) referenced(scene uint64) bool {
	for _, set := range s.acks {
		if _, ok := set[scene]; ok {
			return true
		}
	}
	return false
}

func (s *Streaming) releasable(scene uint64) []uint64 {
	if _, pending := s.unloading[scene]; !pending || s.referenced(scene) {
		return nil
	}
	delete(s.unloading, scene)
	return []uint64{scene}
}
