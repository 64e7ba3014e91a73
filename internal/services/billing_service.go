package services

import (
	"context"
	"fmt"
	"time"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/repositories"
	"nemt/internal/utils"
)

// BillingService turns completed, reported trips into claims. Generation is
// idempotent: a trip with a non-VOID claim is skipped.
type BillingService struct {
	Store repositories.Store
	Rates utils.RateTable
	Now   func() time.Time
}

func (s BillingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func (s BillingService) rates() utils.RateTable {
	if len(s.Rates.Base) == 0 {
		def := utils.DefaultRates()
		if s.Rates.MileageRate > 0 {
			def.MileageRate = s.Rates.MileageRate
		}
		return def
	}
	return s.Rates
}

// ClaimNumber is CLM-<org>-<yyyymmdd>-<tripId>, suffixed -R<n> after n voids.
func ClaimNumber(orgID int64, trip models.Trip, voided int) string {
	num := fmt.Sprintf("CLM-%d-%s-%d", orgID, utils.CompactDate(trip.TripDate), trip.ID)
	if voided > 0 {
		num += fmt.Sprintf("-R%d", voided)
	}
	return num
}

// Generate bills the given trips, or every completed trip of the organization
// when tripIDs is empty. It returns only the claims created by this call.
func (s BillingService) Generate(ctx context.Context, rc domain.RequestContext, tripIDs []int64) ([]models.Claim, error) {
	if len(tripIDs) == 0 {
		trips, err := s.Store.Repos().Trips.List(ctx, rc.OrganizationID, models.TripFilter{Status: models.TripCompleted})
		if err != nil {
			return nil, err
		}
		for _, t := range trips {
			tripIDs = append(tripIDs, t.ID)
		}
	}

	created := []models.Claim{}
	seen := map[int64]bool{}
	for _, id := range tripIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		claim, ok, err := s.generateOne(ctx, rc, id)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, claim)
		}
	}
	utils.LogEvent(rc.RequestID, "billing", "generate", fmt.Sprintf("org_id=%d requested=%d created=%d", rc.OrganizationID, len(seen), len(created)))
	return created, nil
}

func (s BillingService) generateOne(ctx context.Context, rc domain.RequestContext, tripID int64) (models.Claim, bool, error) {
	var (
		claim   models.Claim
		created bool
	)
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, tripID)
		if domain.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if trip.Status != models.TripCompleted {
			return nil
		}
		report, err := r.Reports.GetByTrip(ctx, tripID)
		if domain.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if !report.Submitted() {
			return nil
		}
		existing, err := r.Claims.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		voided := 0
		for _, c := range existing {
			if c.Status != models.ClaimVoid {
				return nil
			}
			voided++
		}

		rates := s.rates()
		procedure := rates.Resolve(utils.ProcedureForMobility(trip.MobilityRequirement, trip.ProcedureCode))
		base, mileage := rates.ComputeFare(procedure, report.TotalMiles)
		claim = models.Claim{
			OrganizationID: rc.OrganizationID,
			TripID:         trip.ID,
			ReportID:       report.ID,
			ClaimNumber:    ClaimNumber(rc.OrganizationID, trip, voided),
			ProcedureCode:  procedure,
			MileageCode:    utils.ProcedureMileage,
			Miles:          report.TotalMiles,
			BaseAmount:     base,
			MileageAmount:  mileage,
			BilledAmount:   base + mileage,
			Status:         models.ClaimPending,
			CreatedAt:      s.now(),
		}
		if err := r.Claims.Create(ctx, &claim); err != nil {
			if domain.IsConflict(err) {
				return nil
			}
			return err
		}
		created = true
		utils.LogEvent(rc.RequestID, "billing", "claim", fmt.Sprintf("claim=%s trip_id=%d billed=%s", claim.ClaimNumber, trip.ID, utils.FormatCents(claim.BilledAmount)))
		return nil
	})
	return claim, created, err
}

// ListUnbilled returns completed trips with a submitted report and no active claim.
func (s BillingService) ListUnbilled(ctx context.Context, rc domain.RequestContext) ([]models.UnbilledTrip, error) {
	r := s.Store.Repos()
	trips, err := r.Trips.List(ctx, rc.OrganizationID, models.TripFilter{Status: models.TripCompleted})
	if err != nil {
		return nil, err
	}
	out := []models.UnbilledTrip{}
	for _, t := range trips {
		report, err := r.Reports.GetByTrip(ctx, t.ID)
		if domain.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !report.Submitted() {
			continue
		}
		claims, err := r.Claims.ListByTrip(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if hasActiveClaim(claims) {
			continue
		}
		out = append(out, models.UnbilledTrip{Trip: t, Report: report})
	}
	return out, nil
}

func hasActiveClaim(claims []models.Claim) bool {
	for _, c := range claims {
		if c.Status != models.ClaimVoid {
			return true
		}
	}
	return false
}

func (s BillingService) ListClaims(ctx context.Context, rc domain.RequestContext) ([]models.Claim, error) {
	return s.Store.Repos().Claims.List(ctx, rc.OrganizationID)
}

// VoidClaim releases a trip for re-billing. Voiding twice is a no-op.
func (s BillingService) VoidClaim(ctx context.Context, rc domain.RequestContext, id int64) (models.Claim, error) {
	var out models.Claim
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		claim, err := r.Claims.GetByID(ctx, rc.OrganizationID, id)
		if err != nil {
			return err
		}
		if claim.Status != models.ClaimVoid {
			if err := r.Claims.UpdateStatus(ctx, claim.ID, models.ClaimVoid); err != nil {
				return err
			}
			claim.Status = models.ClaimVoid
		}
		out = claim
		return nil
	})
	if err != nil {
		return models.Claim{}, err
	}
	utils.LogEvent(rc.RequestID, "billing", "void_claim", fmt.Sprintf("claim_id=%d", out.ID))
	return out, nil
}
