// Package credstore holds the authenticated Identity and its signed
// credential for the lifetime of a session, mirrors them to a session-scoped
// store, and restores them on process start.
package credstore

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cpope-co/portal-session/identity"
	"github.com/cpope-co/portal-session/storage"
)

// WarningLead is how long before credential expiry the session warning
// threshold is set.
const WarningLead = 120 * time.Second

// ErrStaleGeneration is returned by SetIfGeneration when the store was
// committed to by someone else after the caller took its snapshot.
var ErrStaleGeneration = errors.New("credstore: generation changed since snapshot")

// CredStore is the single writer-owned holder of the Identity/Credential
// pair. Readers always observe the pair before or after a transition, never
// a half-updated one.
type CredStore struct {
	store storage.Store
	log   zerolog.Logger

	lock       sync.RWMutex
	identity   *identity.Identity
	credential string
	generation uint64
}

type Option func(*CredStore)

func WithLogger(log zerolog.Logger) Option {
	return func(cs *CredStore) {
		cs.log = log
	}
}

func New(store storage.Store, options ...Option) *CredStore {
	cs := &CredStore{
		store: store,
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(cs)
	}
	return cs
}

// Restore loads Identity and Credential from the session store. A stored
// entry that fails its check is removed and treated as absent; Restore never
// fails, since storage corruption must not break startup.
func (cs *CredStore) Restore(ctx context.Context) {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cs.identity = cs.restoreIdentity(ctx)
	cs.credential = cs.restoreCredential(ctx)
}

func (cs *CredStore) restoreIdentity(ctx context.Context) *identity.Identity {
	raw, err := cs.store.Get(ctx, storage.KeyIdentity)
	if err != nil {
		return nil
	}

	var id identity.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.Exp == 0 {
		cs.log.Warn().Msg("[CredStore.Restore] removing unparseable stored identity")
		_ = cs.store.Remove(ctx, storage.KeyIdentity)
		return nil
	}
	return &id
}

func (cs *CredStore) restoreCredential(ctx context.Context) string {
	raw, err := cs.store.Get(ctx, storage.KeyCredential)
	if err != nil {
		return ""
	}

	if _, err := identity.Decode(raw); err != nil {
		cs.log.Warn().Msg("[CredStore.Restore] removing undecodable stored credential")
		_ = cs.store.Remove(ctx, storage.KeyCredential)
		return ""
	}
	return raw
}

// Set commits a new Identity/Credential pair, bumps the generation, and
// mirrors the pair plus the derived session thresholds to the store.
func (cs *CredStore) Set(ctx context.Context, id *identity.Identity, credential string) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	return cs.commit(ctx, id, credential)
}

// SetIfGeneration commits only when the generation still equals the one the
// caller snapshotted before starting its work. A login or another refresh
// landing in between makes the commit stale, and stale results are dropped
// rather than clobbering the newer session.
func (cs *CredStore) SetIfGeneration(ctx context.Context, generation uint64, id *identity.Identity, credential string) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	if cs.generation != generation {
		return ErrStaleGeneration
	}
	return cs.commit(ctx, id, credential)
}

func (cs *CredStore) commit(ctx context.Context, id *identity.Identity, credential string) error {
	encoded, err := json.Marshal(id)
	if err != nil {
		return errors.Wrap(err, "[CredStore.Set] marshal identity")
	}

	cs.identity = id
	cs.credential = credential
	cs.generation++

	warnAt := id.Exp - int64(WarningLead.Seconds())
	if err := cs.store.Set(ctx, storage.KeyIdentity, string(encoded)); err != nil {
		return errors.Wrap(err, "[CredStore.Set] persist identity")
	}
	if err := cs.store.Set(ctx, storage.KeyCredential, credential); err != nil {
		return errors.Wrap(err, "[CredStore.Set] persist credential")
	}
	if err := cs.store.Set(ctx, storage.KeyWarningAt, strconv.FormatInt(warnAt, 10)); err != nil {
		return errors.Wrap(err, "[CredStore.Set] persist warning threshold")
	}
	if err := cs.store.Set(ctx, storage.KeyTimeoutAt, strconv.FormatInt(id.Exp, 10)); err != nil {
		return errors.Wrap(err, "[CredStore.Set] persist timeout threshold")
	}
	return nil
}

// Clear resets both values and wipes the whole session scope. The full wipe
// is deliberate: other caches (menu tree, lookups) share the session
// lifetime and must not outlive the credential.
func (cs *CredStore) Clear(ctx context.Context) {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cs.identity = nil
	cs.credential = ""
	cs.generation++

	if err := cs.store.Clear(ctx); err != nil {
		cs.log.Warn().Err(err).Msg("[CredStore.Clear] session store clear failed")
	}
}

// Identity returns a copy of the current identity, or nil when anonymous.
func (cs *CredStore) Identity() *identity.Identity {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	if cs.identity == nil {
		return nil
	}
	id := *cs.identity
	return &id
}

// Credential returns the current signed credential, or "" when anonymous.
func (cs *CredStore) Credential() string {
	cs.lock.RLock()
	defer cs.lock.RUnlock()
	return cs.credential
}

// Generation returns the current commit generation. It moves on every Set
// and Clear and never moves otherwise.
func (cs *CredStore) Generation() uint64 {
	cs.lock.RLock()
	defer cs.lock.RUnlock()
	return cs.generation
}

// Snapshot returns identity, credential and generation as one consistent
// observation.
func (cs *CredStore) Snapshot() (*identity.Identity, string, uint64) {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	if cs.identity == nil {
		return nil, cs.credential, cs.generation
	}
	id := *cs.identity
	return &id, cs.credential, cs.generation
}
