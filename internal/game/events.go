package game

import (
	"context"
	"fmt"
)

// DeleteObjectEvent finishes the deletion started by Realm.SoftDelete.
type DeleteObjectEvent struct {
	realm *Realm
	ref   Ref
}

func (e *DeleteObjectEvent) Process(ctx context.Context) error {
	e.realm.destroy(ctx, e.ref)
	return nil
}

func (e *DeleteObjectEvent) Describe() string {
	return fmt.Sprintf("delete %s", e.ref)
}
