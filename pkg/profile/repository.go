// Package profile persists the list of saved panel accounts. The whole list
// lives as one JSON array under a single key of a document store and every
// mutation rewrites and flushes it.
package profile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/chambrid/xtream-desk/pkg/docstore"
	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// Repository implements Manager on top of a docstore.Opener
type Repository struct {
	opener docstore.Opener
	log    logr.Logger
	locks  *docstore.KeyedMutex
}

// NewRepository creates a repository reading and writing StoreName
func NewRepository(opener docstore.Opener, log logr.Logger) *Repository {
	return &Repository{
		opener: opener,
		log:    log,
		locks:  &docstore.KeyedMutex{},
	}
}

// Save inserts p, or replaces the record with the same id in place
func (r *Repository) Save(ctx context.Context, p xtream.ProfileAccount) xtream.APIResponse[xtream.Unit] {
	err := r.mutate(ctx, func(profiles []xtream.ProfileAccount) ([]xtream.ProfileAccount, error) {
		profiles, _ = upsert(profiles, p)
		return profiles, nil
	})
	if err != nil {
		return xtream.Fail[xtream.Unit](Message(err))
	}
	return xtream.OkUnit()
}

// List returns every stored profile in insertion order
func (r *Repository) List(ctx context.Context) xtream.APIResponse[[]xtream.ProfileAccount] {
	profiles, err := r.profiles(ctx)
	if err != nil {
		return xtream.Fail[[]xtream.ProfileAccount](Message(err))
	}
	return xtream.Ok(profiles)
}

// Delete removes every record with id. An unknown id still rewrites the
// collection and succeeds.
func (r *Repository) Delete(ctx context.Context, id string) xtream.APIResponse[xtream.Unit] {
	err := r.mutate(ctx, func(profiles []xtream.ProfileAccount) ([]xtream.ProfileAccount, error) {
		kept := profiles[:0]
		for _, p := range profiles {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return kept, nil
	})
	if err != nil {
		return xtream.Fail[xtream.Unit](Message(err))
	}
	return xtream.OkUnit()
}

// Get returns the profile with id
func (r *Repository) Get(ctx context.Context, id string) (xtream.ProfileAccount, error) {
	profiles, err := r.profiles(ctx)
	if err != nil {
		return xtream.ProfileAccount{}, err
	}
	for _, p := range profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return xtream.ProfileAccount{}, NewNotFoundError(id)
}

// Activate marks id as the only active profile and stamps its lastUsed
func (r *Repository) Activate(ctx context.Context, id string, now time.Time) error {
	return r.mutate(ctx, func(profiles []xtream.ProfileAccount) ([]xtream.ProfileAccount, error) {
		found := false
		stamp := now.UTC().Format(time.RFC3339)
		for i := range profiles {
			profiles[i].IsActive = profiles[i].ID == id
			if profiles[i].IsActive {
				profiles[i].LastUsed = xtream.StringPtr(stamp)
				found = true
			}
		}
		if !found {
			return nil, NewNotFoundError(id)
		}
		return profiles, nil
	})
}

// NewProfile builds an unsaved record with a fresh id
func NewProfile(name string, cfg xtream.XtreamConfig, now time.Time) xtream.ProfileAccount {
	return xtream.ProfileAccount{
		ID:        "profile_" + uuid.NewString(),
		Name:      name,
		Config:    cfg,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
}

// profiles loads the collection under the store lock
func (r *Repository) profiles(ctx context.Context) ([]xtream.ProfileAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(StoreName)
	defer unlock()

	store, err := r.opener.Open(StoreName)
	if err != nil {
		return nil, NewStoreOpenError(err)
	}
	return r.load(store), nil
}

// mutate runs one read-modify-write cycle. fn receives the current
// collection; its result is written back and flushed unless it errors.
func (r *Repository) mutate(ctx context.Context, fn func([]xtream.ProfileAccount) ([]xtream.ProfileAccount, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := r.locks.Lock(StoreName)
	defer unlock()

	store, err := r.opener.Open(StoreName)
	if err != nil {
		return NewStoreOpenError(err)
	}

	profiles, err := fn(r.load(store))
	if err != nil {
		return err
	}
	if profiles == nil {
		profiles = []xtream.ProfileAccount{}
	}

	raw, err := json.Marshal(profiles)
	if err != nil {
		return NewStorageError("failed to encode profiles", err)
	}
	store.Set(CollectionKey, raw)

	if err := store.Save(); err != nil {
		return NewStoreSaveError(err)
	}

	r.log.V(1).Info("Profile collection saved", "count", len(profiles))
	return nil
}

// load decodes the stored collection. A missing or malformed value reads
// as an empty collection.
func (r *Repository) load(store docstore.Store) []xtream.ProfileAccount {
	profiles := []xtream.ProfileAccount{}

	raw, ok := store.Get(CollectionKey)
	if !ok {
		return profiles
	}

	var decoded []xtream.ProfileAccount
	if err := json.Unmarshal(raw, &decoded); err != nil {
		r.log.Info("Ignoring unreadable profile collection", "error", err.Error())
		return profiles
	}
	if decoded == nil {
		return profiles
	}
	return decoded
}

// upsert replaces the record sharing p's id, or appends p. It reports
// whether an existing record was replaced.
func upsert(profiles []xtream.ProfileAccount, p xtream.ProfileAccount) ([]xtream.ProfileAccount, bool) {
	for i := range profiles {
		if profiles[i].ID == p.ID {
			profiles[i] = p
			return profiles, true
		}
	}
	return append(profiles, p), false
}

var _ Manager = (*Repository)(nil)
