// Package syncer replicates the local change log to a remote endpoint and
// pulls the full remote state back on sign-in.
package syncer

import (
	"context"
	"errors"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/templui/fitsync/internal/model"
)

var (
	// ErrSyncUnavailable covers network failures and remote-side errors.
	ErrSyncUnavailable = errors.New("sync service unavailable")
	// ErrUnauthorized means the remote rejected the credentials. Never retried.
	ErrUnauthorized = errors.New("sync credentials rejected")
	ErrNoSession    = errors.New("sync requires a signed-in user")
	ErrPullInFlight = errors.New("pull already in progress")
)

// Remote is the sync endpoint. Push sends a batch of changes for one owner;
// pull returns every record the remote holds for that owner.
type Remote interface {
	PushBatch(ctx context.Context, token, ownerID string, changes []model.Change) error
	PullAll(ctx context.Context, token, ownerID string) (*model.Dataset, error)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// pushRequest is the wire body of a push.
type pushRequest struct {
	OwnerID string         `cbor:"owner_id"`
	Changes []model.Change `cbor:"changes"`
}
