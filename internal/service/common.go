package service

import (
	"context"
	"errors"
	"fmt"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrSaleNotFound     = errors.New("transaction not found")
)

// Broadcaster pushes notifications to connected UI clients.
type Broadcaster interface {
	Publish(msgType string, payload interface{})
}

func notify(b Broadcaster, msgType string, payload interface{}) {
	if b != nil {
		b.Publish(msgType, payload)
	}
}

// findLive loads a non-deleted row by uuid; tombstones read as missing.
func findLive[T any, P repository.Entity[T]](ctx context.Context, repo *repository.SyncRepo[T, P], tenant, id uuid.UUID, notFound error) (P, error) {
	rec, err := repo.FindByUUID(ctx, tenant, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, notFound)
		}
		return nil, err
	}
	if rec.Envelope().Deleted {
		return nil, fmt.Errorf("%s: %w", id, notFound)
	}
	return rec, nil
}

// userRef returns the local id and uuid of the session user, if any.
func userRef(session model.Session) (*uint, *uuid.UUID) {
	if session.User == nil || session.User.ID == 0 {
		return nil, nil
	}
	id, u := session.User.ID, session.User.UUID
	return &id, &u
}
