package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
)

// MemoryStore keeps every table in process memory. Transactions are
// serialized and roll back to a snapshot when fn fails. Used for local runs
// (DB_DRIVER=memory) and service tests.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	nextID        int64
	trips         map[int64]models.Trip
	stops         map[int64]models.TripStop
	members       map[int64]models.TripMember
	reports       map[int64]models.TripReport
	vehicles      map[int64]models.Vehicle
	drivers       map[int64]models.Driver
	notifications map[int64]models.Notification
	claims        map[int64]models.Claim
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{
		trips:         map[int64]models.Trip{},
		stops:         map[int64]models.TripStop{},
		members:       map[int64]models.TripMember{},
		reports:       map[int64]models.TripReport{},
		vehicles:      map[int64]models.Vehicle{},
		drivers:       map[int64]models.Driver{},
		notifications: map[int64]models.Notification{},
		claims:        map[int64]models.Claim{},
	}}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (st *memState) clone() *memState {
	return &memState{
		nextID:        st.nextID,
		trips:         cloneMap(st.trips),
		stops:         cloneMap(st.stops),
		members:       cloneMap(st.members),
		reports:       cloneMap(st.reports),
		vehicles:      cloneMap(st.vehicles),
		drivers:       cloneMap(st.drivers),
		notifications: cloneMap(st.notifications),
		claims:        cloneMap(st.claims),
	}
}

func (st *memState) id() int64 {
	st.nextID++
	return st.nextID
}

func (s *MemoryStore) Repos() Repos {
	return memReposFor(&memConn{s: s})
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(r Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snap
			panic(p)
		}
		if err != nil {
			s.st = snap
		}
	}()
	return fn(memReposFor(&memConn{s: s, inTx: true}))
}

// SeedVehicle inserts or replaces a vehicle. Vehicles and drivers are owned
// by the fleet service, so there is no create operation on the repositories.
func (s *MemoryStore) SeedVehicle(v models.Vehicle) models.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == 0 {
		v.ID = s.st.id()
	}
	s.st.vehicles[v.ID] = v
	return v
}

func (s *MemoryStore) SeedDriver(d models.Driver) models.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.st.id()
	}
	s.st.drivers[d.ID] = d
	return d
}

// memConn plays the role of DBTX: outside a transaction each call takes the
// store lock, inside one the lock is already held by InTx.
type memConn struct {
	s    *MemoryStore
	inTx bool
}

func (c *memConn) do(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.inTx {
		c.s.mu.Lock()
		defer c.s.mu.Unlock()
	}
	return fn(c.s.st)
}

func memReposFor(c *memConn) Repos {
	return Repos{
		Trips:         memTrips{c},
		Stops:         memStops{c},
		Members:       memMembers{c},
		Reports:       memReports{c},
		Vehicles:      memVehicles{c},
		Drivers:       memDrivers{c},
		Notifications: memNotifications{c},
		Claims:        memClaims{c},
	}
}

type memTrips struct{ c *memConn }

func (r memTrips) Create(ctx context.Context, trip *models.Trip) error {
	return r.c.do(ctx, func(st *memState) error {
		trip.ID = st.id()
		st.trips[trip.ID] = *trip
		return nil
	})
}

func (r memTrips) GetByID(ctx context.Context, orgID, id int64) (models.Trip, error) {
	var out models.Trip
	err := r.c.do(ctx, func(st *memState) error {
		t, ok := st.trips[id]
		if !ok || t.OrganizationID != orgID {
			return domain.NotFoundError{Resource: "trip"}
		}
		out = t
		return nil
	})
	return out, err
}

func (r memTrips) LockByID(ctx context.Context, orgID, id int64) (models.Trip, error) {
	return r.GetByID(ctx, orgID, id)
}

func (r memTrips) Update(ctx context.Context, trip models.Trip) error {
	return r.c.do(ctx, func(st *memState) error {
		if _, ok := st.trips[trip.ID]; !ok {
			return domain.NotFoundError{Resource: "trip"}
		}
		st.trips[trip.ID] = trip
		return nil
	})
}

func (r memTrips) List(ctx context.Context, orgID int64, f models.TripFilter) ([]models.Trip, error) {
	out := []models.Trip{}
	err := r.c.do(ctx, func(st *memState) error {
		for _, t := range st.trips {
			if t.OrganizationID != orgID {
				continue
			}
			if f.Status != "" && t.Status != f.Status {
				continue
			}
			if f.DriverID != nil && (t.DriverID == nil || *t.DriverID != *f.DriverID) {
				continue
			}
			if f.Date != nil && !sameDay(t.TripDate, *f.Date) {
				continue
			}
			out = append(out, t)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TripDate.Equal(out[j].TripDate) {
			return out[i].TripDate.After(out[j].TripDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type memStops struct{ c *memConn }

func (r memStops) Create(ctx context.Context, stop *models.TripStop) error {
	return r.c.do(ctx, func(st *memState) error {
		for _, s := range st.stops {
			if s.TripID == stop.TripID && s.StopOrder == stop.StopOrder {
				return domain.ConflictError{Resource: "trip stop", Msg: fmt.Sprintf("stop order %d already used", stop.StopOrder)}
			}
		}
		stop.ID = st.id()
		st.stops[stop.ID] = *stop
		return nil
	})
}

func (r memStops) ListByTrip(ctx context.Context, tripID int64) ([]models.TripStop, error) {
	out := []models.TripStop{}
	err := r.c.do(ctx, func(st *memState) error {
		for _, s := range st.stops {
			if s.TripID == tripID {
				out = append(out, s)
			}
		}
		return nil
	})
	domain.SortStops(out)
	return out, err
}

func (r memStops) Update(ctx context.Context, stop models.TripStop) error {
	return r.c.do(ctx, func(st *memState) error {
		if _, ok := st.stops[stop.ID]; !ok {
			return domain.NotFoundError{Resource: "trip stop"}
		}
		st.stops[stop.ID] = stop
		return nil
	})
}

type memMembers struct{ c *memConn }

func (r memMembers) Create(ctx context.Context, m *models.TripMember) error {
	return r.c.do(ctx, func(st *memState) error {
		for _, existing := range st.members {
			if existing.TripID == m.TripID && existing.MemberID == m.MemberID {
				return domain.ConflictError{Resource: "trip member", Msg: fmt.Sprintf("member %d already on trip", m.MemberID)}
			}
		}
		m.ID = st.id()
		st.members[m.ID] = *m
		return nil
	})
}

func (r memMembers) ListByTrip(ctx context.Context, tripID int64) ([]models.TripMember, error) {
	out := []models.TripMember{}
	err := r.c.do(ctx, func(st *memState) error {
		for _, m := range st.members {
			if m.TripID == tripID {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r memMembers) GetByID(ctx context.Context, tripID, id int64) (models.TripMember, error) {
	var out models.TripMember
	err := r.c.do(ctx, func(st *memState) error {
		m, ok := st.members[id]
		if !ok || m.TripID != tripID {
			return domain.NotFoundError{Resource: "trip member"}
		}
		out = m
		return nil
	})
	return out, err
}

func (r memMembers) Update(ctx context.Context, m models.TripMember) error {
	return r.c.do(ctx, func(st *memState) error {
		if _, ok := st.members[m.ID]; !ok {
			return domain.NotFoundError{Resource: "trip member"}
		}
		st.members[m.ID] = m
		return nil
	})
}

type memReports struct{ c *memConn }

func (r memReports) GetByTrip(ctx context.Context, tripID int64) (models.TripReport, error) {
	var out models.TripReport
	err := r.c.do(ctx, func(st *memState) error {
		for _, rep := range st.reports {
			if rep.TripID == tripID {
				out = rep
				return nil
			}
		}
		return domain.NotFoundError{Resource: "trip report"}
	})
	return out, err
}

func (r memReports) LockByTrip(ctx context.Context, tripID int64) (models.TripReport, error) {
	return r.GetByTrip(ctx, tripID)
}

func (r memReports) Create(ctx context.Context, rep *models.TripReport) error {
	return r.c.do(ctx, func(st *memState) error {
		for _, existing := range st.reports {
			if existing.TripID == rep.TripID {
				return domain.ConflictError{Resource: "trip report", Msg: "report already exists for trip"}
			}
		}
		rep.ID = st.id()
		st.reports[rep.ID] = *rep
		return nil
	})
}

func (r memReports) Update(ctx context.Context, rep models.TripReport) error {
	return r.c.do(ctx, func(st *memState) error {
		existing, ok := st.reports[rep.ID]
		if !ok {
			return domain.NotFoundError{Resource: "trip report"}
		}
		if existing.Submitted() {
			return nil
		}
		rep.PDFFilePath = existing.PDFFilePath
		st.reports[rep.ID] = rep
		return nil
	})
}

func (r memReports) SetPDFPath(ctx context.Context, id int64, path string) error {
	return r.c.do(ctx, func(st *memState) error {
		rep, ok := st.reports[id]
		if !ok {
			return domain.NotFoundError{Resource: "trip report"}
		}
		rep.PDFFilePath = &path
		st.reports[id] = rep
		return nil
	})
}

type memVehicles struct{ c *memConn }

func (r memVehicles) GetByID(ctx context.Context, orgID, id int64) (models.Vehicle, error) {
	var out models.Vehicle
	err := r.c.do(ctx, func(st *memState) error {
		v, ok := st.vehicles[id]
		if !ok || v.OrganizationID != orgID {
			return domain.NotFoundError{Resource: "vehicle"}
		}
		out = v
		return nil
	})
	return out, err
}

func (r memVehicles) LockByID(ctx context.Context, orgID, id int64) (models.Vehicle, error) {
	return r.GetByID(ctx, orgID, id)
}

func (r memVehicles) UpdateOdometer(ctx context.Context, id, odometer int64) error {
	return r.c.do(ctx, func(st *memState) error {
		v, ok := st.vehicles[id]
		if !ok {
			return domain.NotFoundError{Resource: "vehicle"}
		}
		v.Odometer = odometer
		st.vehicles[id] = v
		return nil
	})
}

type memDrivers struct{ c *memConn }

func (r memDrivers) GetByID(ctx context.Context, orgID, id int64) (models.Driver, error) {
	var out models.Driver
	err := r.c.do(ctx, func(st *memState) error {
		d, ok := st.drivers[id]
		if !ok || d.OrganizationID != orgID {
			return domain.NotFoundError{Resource: "driver"}
		}
		out = d
		return nil
	})
	return out, err
}

type memNotifications struct{ c *memConn }

func (r memNotifications) Create(ctx context.Context, n *models.Notification) error {
	return r.c.do(ctx, func(st *memState) error {
		n.ID = st.id()
		st.notifications[n.ID] = *n
		return nil
	})
}

func (r memNotifications) GetByID(ctx context.Context, orgID, id int64) (models.Notification, error) {
	var out models.Notification
	err := r.c.do(ctx, func(st *memState) error {
		n, ok := st.notifications[id]
		if !ok || n.OrganizationID != orgID {
			return domain.NotFoundError{Resource: "notification"}
		}
		out = n
		return nil
	})
	return out, err
}

func (r memNotifications) List(ctx context.Context, orgID int64, unreadOnly bool) ([]models.Notification, error) {
	out := []models.Notification{}
	err := r.c.do(ctx, func(st *memState) error {
		for _, n := range st.notifications {
			if n.OrganizationID != orgID || n.Status == models.NotificationArchived {
				continue
			}
			if unreadOnly && n.Status != models.NotificationUnread {
				continue
			}
			out = append(out, n)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r memNotifications) UpdateStatus(ctx context.Context, orgID, id int64, status models.NotificationStatus, readAt *time.Time) error {
	return r.c.do(ctx, func(st *memState) error {
		n, ok := st.notifications[id]
		if !ok || n.OrganizationID != orgID {
			return domain.NotFoundError{Resource: "notification"}
		}
		n.Status = status
		if n.ReadAt == nil && readAt != nil {
			t := *readAt
			n.ReadAt = &t
		}
		st.notifications[id] = n
		return nil
	})
}

func (r memNotifications) MarkAllRead(ctx context.Context, orgID int64, at time.Time) (int64, error) {
	var count int64
	err := r.c.do(ctx, func(st *memState) error {
		for id, n := range st.notifications {
			if n.OrganizationID != orgID || n.Status != models.NotificationUnread {
				continue
			}
			n.Status = models.NotificationRead
			readAt := at
			n.ReadAt = &readAt
			st.notifications[id] = n
			count++
		}
		return nil
	})
	return count, err
}

func (r memNotifications) CountUnread(ctx context.Context, orgID int64) (int64, error) {
	var count int64
	err := r.c.do(ctx, func(st *memState) error {
		for _, n := range st.notifications {
			if n.OrganizationID == orgID && n.Status == models.NotificationUnread {
				count++
			}
		}
		return nil
	})
	return count, err
}

type memClaims struct{ c *memConn }

func (r memClaims) Create(ctx context.Context, c *models.Claim) error {
	return r.c.do(ctx, func(st *memState) error {
		for _, existing := range st.claims {
			if existing.ClaimNumber == c.ClaimNumber {
				return domain.ConflictError{Resource: "claim", Msg: fmt.Sprintf("claim number %s already exists", c.ClaimNumber)}
			}
		}
		c.ID = st.id()
		st.claims[c.ID] = *c
		return nil
	})
}

func (r memClaims) GetByID(ctx context.Context, orgID, id int64) (models.Claim, error) {
	var out models.Claim
	err := r.c.do(ctx, func(st *memState) error {
		c, ok := st.claims[id]
		if !ok || c.OrganizationID != orgID {
			return domain.NotFoundError{Resource: "claim"}
		}
		out = c
		return nil
	})
	return out, err
}

func (r memClaims) ListByTrip(ctx context.Context, tripID int64) ([]models.Claim, error) {
	out := []models.Claim{}
	err := r.c.do(ctx, func(st *memState) error {
		for _, c := range st.claims {
			if c.TripID == tripID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r memClaims) List(ctx context.Context, orgID int64) ([]models.Claim, error) {
	out := []models.Claim{}
	err := r.c.do(ctx, func(st *memState) error {
		for _, c := range st.claims {
			if c.OrganizationID == orgID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r memClaims) UpdateStatus(ctx context.Context, id int64, status models.ClaimStatus) error {
	return r.c.do(ctx, func(st *memState) error {
		c, ok := st.claims[id]
		if !ok {
			return domain.NotFoundError{Resource: "claim"}
		}
		c.Status = status
		st.claims[id] = c
		return nil
	})
}
