package services

import (
	"context"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/repositories"
)

// FleetService exposes the driver and vehicle rows trips are assigned to.
// The fleet itself is maintained outside this service.
type FleetService struct {
	Store repositories.Store
}

func (s FleetService) Vehicle(ctx context.Context, rc domain.RequestContext, id int64) (models.Vehicle, error) {
	return s.Store.Repos().Vehicles.GetByID(ctx, rc.OrganizationID, id)
}

func (s FleetService) Driver(ctx context.Context, rc domain.RequestContext, id int64) (models.Driver, error) {
	return s.Store.Repos().Drivers.GetByID(ctx, rc.OrganizationID, id)
}
