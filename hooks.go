package streamcache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on read and
// commit paths. Wrap slow sinks with hooks/async.
type Hooks interface {
	// A stored blob was dropped on read.
	// reason ∈ {"corrupt", "gen_mismatch", "expired", "decompress"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/admission).
	ProviderSetRejected(storageKey string, size int)

	// A commit failed after the handle was closed; the store is unchanged.
	CommitFailed(storageKey string, err error)

	// GenStore errors.
	GenSnapshotError(storageKey string, err error)
	GenBumpError(storageKey string, err error)

	// Both gen bump and delete failed during Delete (likely backend outage).
	DeleteOutage(key string, bumpErr, delErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)           {}
func (NopHooks) ProviderSetRejected(string, int)   {}
func (NopHooks) CommitFailed(string, error)        {}
func (NopHooks) GenSnapshotError(string, error)    {}
func (NopHooks) GenBumpError(string, error)        {}
func (NopHooks) DeleteOutage(string, error, error) {}

// self-heal reasons
const (
	ReasonCorrupt     = "corrupt"
	ReasonGenMismatch = "gen_mismatch"
	ReasonExpired     = "expired"
	ReasonDecompress  = "decompress"
)

// MultiHooks fans every event out to each hook in order.
type MultiHooks []Hooks

func (m MultiHooks) SelfHeal(k, r string) {
	for _, h := range m {
		h.SelfHeal(k, r)
	}
}

func (m MultiHooks) ProviderSetRejected(k string, size int) {
	for _, h := range m {
		h.ProviderSetRejected(k, size)
	}
}

func (m MultiHooks) CommitFailed(k string, err error) {
	for _, h := range m {
		h.CommitFailed(k, err)
	}
}

func (m MultiHooks) GenSnapshotError(k string, err error) {
	for _, h := range m {
		h.GenSnapshotError(k, err)
	}
}

func (m MultiHooks) GenBumpError(k string, err error) {
	for _, h := range m {
		h.GenBumpError(k, err)
	}
}

func (m MultiHooks) DeleteOutage(k string, bumpErr, delErr error) {
	for _, h := range m {
		h.DeleteOutage(k, bumpErr, delErr)
	}
}
