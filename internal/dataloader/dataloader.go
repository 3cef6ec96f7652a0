package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/agora/internal/domain"
)

type contextKey string

const key = contextKey("dataloaders")

// ProfileSource answers a whole batch of profile lookups in one call.
type ProfileSource interface {
	Profiles(ids []domain.Identity) map[domain.Identity]domain.UserProfile
}

// Loaders holds the request-scoped loaders.
type Loaders struct {
	ProfileByIdentity *dataloader.Loader
}

// NewLoaders builds a fresh set of loaders; results are cached for the
// lifetime of the returned value.
func NewLoaders(source ProfileSource) *Loaders {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]domain.Identity, len(keys))
		for i, k := range keys {
			ids[i] = domain.Identity(k.String())
		}

		profiles := source.Profiles(ids)

		// results must line up with keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if p, ok := profiles[id]; ok {
				results[i] = &dataloader.Result{Data: p}
				continue
			}
			results[i] = &dataloader.Result{Data: nil}
		}
		return results
	}

	return &Loaders{
		ProfileByIdentity: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond)),
	}
}

// Middleware puts a fresh set of loaders into each request context.
func Middleware(source ProfileSource, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, NewLoaders(source))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For returns the loaders stored in ctx, or nil.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// Profiles resolves ids through the batched loader. Unknown identities are
// absent from the result.
func (l *Loaders) Profiles(ctx context.Context, ids []domain.Identity) (map[domain.Identity]domain.UserProfile, error) {
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(id)
	}
	values, errs := l.ProfileByIdentity.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make(map[domain.Identity]domain.UserProfile, len(ids))
	for i, v := range values {
		if p, ok := v.(domain.UserProfile); ok {
			out[ids[i]] = p
		}
	}
	return out, nil
}
