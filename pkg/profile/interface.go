package profile

import (
	"context"
	"io"
	"time"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// Manager defines the operations on the stored profile collection. The
// envelope-returning methods are the outward-facing surface; the rest return
// Go errors for use inside the module.
type Manager interface {
	// Collection operations
	Save(ctx context.Context, p xtream.ProfileAccount) xtream.APIResponse[xtream.Unit]
	List(ctx context.Context) xtream.APIResponse[[]xtream.ProfileAccount]
	Delete(ctx context.Context, id string) xtream.APIResponse[xtream.Unit]

	// Lookup and activation
	Get(ctx context.Context, id string) (xtream.ProfileAccount, error)
	Activate(ctx context.Context, id string, now time.Time) error

	// Import/Export
	Export(ctx context.Context, w io.Writer, format Format) error
	Import(ctx context.Context, r io.Reader, format Format, overwrite bool) (*ImportResult, error)
}
