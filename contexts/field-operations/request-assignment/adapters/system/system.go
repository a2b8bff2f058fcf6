// Package system provides the wall clock and identifier source used by the
// persistent store drivers.
package system

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Clock stamps requests and claims in UTC.
type Clock struct{}

func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator issues random (v4) request and event identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
