package ad

import (
	"log"
	"reflect"
	"sync"
)

// Implementation of the concurrency model (spec section 5).
//
// Grounded on the teacher's ad/gls.go mtStore: a lockable store
// mapping a thread identity to its own tape. Generalized from the
// teacher's goroutine-id keying (via an external goid() the retrieved
// pack does not actually vendor) to spec section 5's contract: the
// host supplies InParallel()/ThreadNum(), the core never discovers
// thread identity on its own. Because Go forbids a package-level
// variable generic in B, each instantiation's store is held in a
// sync.Map keyed by reflect.TypeOf a zero B, one *parallelStore per
// type parameter the process ever recorded with.

// ParallelConfig is the pair of host hooks spec section 5 requires
// before recording from more than one thread.
type ParallelConfig struct {
	// InParallel reports whether the calling thread is one of
	// several that may record concurrently right now.
	InParallel func() bool
	// ThreadNum returns the calling thread's identity in [0, NumThreads).
	ThreadNum func() int
	// NumThreads bounds the thread identities ThreadNum can return.
	NumThreads int
}

type parallelStore struct {
	mu       sync.RWMutex
	cfg      ParallelConfig
	inSweep  bool
	recorder []interface{} // []*Recorder[B], boxed: the map is not generic
}

var stores sync.Map // reflect.Type -> *parallelStore

func storeFor[B Base[B]]() *parallelStore {
	var zero B
	key := reflect.TypeOf(zero)
	v, ok := stores.Load(key)
	if !ok {
		v, _ = stores.LoadOrStore(key, &parallelStore{
			cfg:      ParallelConfig{InParallel: func() bool { return false }, ThreadNum: func() int { return 0 }, NumThreads: 1},
			recorder: make([]interface{}, 1),
		})
	}
	return v.(*parallelStore)
}

// Setup installs the host's parallel hooks for B, per spec section 5.
// Must be called before any goroutine other than the caller records
// with this B. Safe to call again later to change NumThreads, as long
// as no sweep is currently in flight (it logs a warning and proceeds
// otherwise, mirroring the teacher's recover-and-log diagnostic
// style rather than panicking on a racy reconfiguration).
func Setup[B Base[B]](cfg ParallelConfig) {
	s := storeFor[B]()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inSweep {
		log.Printf("ad: Setup called for %T while a sweep is in flight", *new(B))
	}
	s.cfg = cfg
	s.recorder = make([]interface{}, cfg.NumThreads)
}

// Independent begins a new recording on the calling thread's Recorder,
// as selected by the active ParallelConfig's ThreadNum hook. Hosts
// that never call Setup get the single default thread's recorder.
// The package has no matching End: the per-thread *Recorder[B] is not
// exposed to the caller, so a recording begun here cannot be frozen
// into a Fun; a Fun comes from a caller-held Recorder[B]'s
// Independent and End methods.
func Independent[B Base[B]](x []B) ([]AD[B], error) {
	return recorderFor[B]().Independent(x)
}

// recorderFor returns the current thread's Recorder[B], creating it
// on first use.
func recorderFor[B Base[B]]() *Recorder[B] {
	s := storeFor[B]()
	s.mu.RLock()
	n := s.cfg.ThreadNum()
	r, _ := s.recorder[n].(*Recorder[B])
	s.mu.RUnlock()
	if r != nil {
		return r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, _ = s.recorder[n].(*Recorder[B]); r != nil {
		return r
	}
	r = &Recorder[B]{}
	s.recorder[n] = r
	return r
}

func beginSweep[B Base[B]]() func() {
	s := storeFor[B]()
	s.mu.Lock()
	wasIn := s.inSweep
	if wasIn {
		log.Printf("ad: overlapping sweep detected for %T", *new(B))
	}
	s.inSweep = true
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.inSweep = wasIn
		s.mu.Unlock()
	}
}
