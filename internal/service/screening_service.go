package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/clock"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// ScreeningService serves screening reads.  Every read sweeps expired
// screenings first so the returned status is current.
type ScreeningService struct {
	st           Stores
	availability *AvailabilityChecker
	updater      *ScreeningUpdater
	clock        clock.Clock
	opts         options
}

// NewScreeningService wires a ScreeningService.  updater may be nil.
func NewScreeningService(st Stores, updater *ScreeningUpdater, clk clock.Clock, opts ...Option) *ScreeningService {
	return &ScreeningService{
		st:           st,
		availability: NewAvailabilityChecker(st.Bookings),
		updater:      updater,
		clock:        clk,
		opts:         buildOptions(opts),
	}
}

// GetScreening returns a screening with its hall.
func (s *ScreeningService) GetScreening(ctx context.Context, id uint64) (*ScreeningDetail, error) {
	s.sweep(ctx)
	sc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	h, err := s.st.Halls.GetByID(ctx, sc.HallID)
	if err != nil && !errors.Is(err, repository.ErrHallNotFound) {
		return nil, failInternal(ctx, s.opts.log, "get screening hall", err)
	}
	now := s.clock.Now()
	return &ScreeningDetail{
		ScreeningSummary: *screeningSummary(sc, now.Location(), IsBookable(sc, now, s.opts.grace)),
		Hall:             hallSummary(h),
	}, nil
}

// SeatMap returns the seat grid of the screening's hall with every seat
// held by a live booking marked booked.
func (s *ScreeningService) SeatMap(ctx context.Context, id uint64) (*SeatMap, error) {
	s.sweep(ctx)
	if m, ok := s.cached(ctx, id); ok {
		return m, nil
	}
	sc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	gen, cacheable := s.generation(ctx, id)
	seats, err := s.st.Seats.ListByHall(ctx, sc.HallID)
	if err != nil {
		return nil, failInternal(ctx, s.opts.log, "seat map: seats", err)
	}
	held, err := s.availability.Held(ctx, sc.ID)
	if err != nil {
		return nil, failInternal(ctx, s.opts.log, "seat map: held seats", err)
	}
	m := buildSeatMap(sc, seats, held)
	if cacheable {
		s.store(ctx, m, gen)
	}
	return m, nil
}

func (s *ScreeningService) load(ctx context.Context, id uint64) (*model.Screening, error) {
	sc, err := s.st.Screenings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScreeningNotFound) {
			return nil, screeningNotFound()
		}
		return nil, failInternal(ctx, s.opts.log, "load screening", err)
	}
	return sc, nil
}

func (s *ScreeningService) sweep(ctx context.Context) {
	if s.updater == nil {
		return
	}
	if _, err := s.updater.Sweep(ctx); err != nil {
		s.opts.log.WithError(err).Warn("screening sweep before read failed")
	}
}

func (s *ScreeningService) cached(ctx context.Context, id uint64) (*SeatMap, bool) {
	if s.opts.seatMaps == nil {
		return nil, false
	}
	data, ok, err := s.opts.seatMaps.Get(ctx, id)
	if err != nil {
		s.opts.log.WithError(err).WithField("screening_id", id).Warn("seat map cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var m SeatMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return &m, true
}

// generation reads the cache generation before the held seats are
// loaded.  A booking committed in between bumps it and store is refused.
func (s *ScreeningService) generation(ctx context.Context, id uint64) (uint64, bool) {
	if s.opts.seatMaps == nil {
		return 0, false
	}
	gen, err := s.opts.seatMaps.Generation(ctx, id)
	if err != nil {
		s.opts.log.WithError(err).WithField("screening_id", id).Warn("seat map cache generation read failed")
		return 0, false
	}
	return gen, true
}

func (s *ScreeningService) store(ctx context.Context, m *SeatMap, gen uint64) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	stored, err := s.opts.seatMaps.Set(ctx, m.ScreeningID, gen, data)
	fields := logrus.Fields{"screening_id": m.ScreeningID, "generation": gen}
	if err != nil {
		s.opts.log.WithFields(fields).WithError(err).Warn("seat map cache write failed")
		return
	}
	if !stored {
		s.opts.log.WithFields(fields).Debug("seat map invalidated while loading, not cached")
	}
}
