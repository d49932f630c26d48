package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/clock"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/payment"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

const publishTimeout = 3 * time.Second

// BookingService owns creation, payment and cancellation of bookings.
type BookingService struct {
	st           Stores
	availability *AvailabilityChecker
	processor    payment.Processor
	clock        clock.Clock
	opts         options
}

// NewBookingService wires a BookingService.
func NewBookingService(st Stores, processor payment.Processor, clk clock.Clock, opts ...Option) *BookingService {
	return &BookingService{
		st:           st,
		availability: NewAvailabilityChecker(st.Bookings),
		processor:    processor,
		clock:        clk,
		opts:         buildOptions(opts),
	}
}

// PayInput is the request of Pay.  TransactionRef is optional; when empty
// the processor reference is stored.
type PayInput struct {
	BookingID      uint64
	Method         string
	Amount         int64
	TransactionRef string
}

// CreateBooking reserves seatIDs of a screening for the caller.  The
// screening row is locked for the whole check-then-insert sequence and the
// booking_seats unique index rejects any insert that slips past it, so of
// two overlapping requests only the first to commit succeeds.
func (s *BookingService) CreateBooking(ctx context.Context, caller Caller, screeningID uint64, seatIDs []uint64) (*BookingDetail, error) {
	if err := s.validateSeatIDs(seatIDs); err != nil {
		return nil, err
	}
	if screeningID == 0 {
		return nil, invalid("screening_id is required")
	}
	if caller.UserID == 0 {
		return nil, invalid("caller is not identified")
	}
	var (
		booking   *model.Booking
		screening *model.Screening
		seats     []model.Seat
		hall      *model.Hall
	)
	err := s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		sc, err := s.st.Screenings.GetByIDForUpdate(ctx, screeningID)
		if err != nil {
			if errors.Is(err, repository.ErrScreeningNotFound) {
				return screeningNotFound()
			}
			return err
		}
		now := s.clock.Now()
		if !IsBookable(sc, now, s.opts.grace) {
			return newError(KindUnbookable, CodeNotBookable, "screening is no longer open for booking")
		}

		found, err := s.st.Seats.ListByIDs(ctx, seatIDs)
		if err != nil {
			return err
		}
		inHall := make(map[uint64]bool, len(found))
		for _, seat := range found {
			if seat.HallID == sc.HallID {
				inHall[seat.ID] = true
			}
		}
		var foreign []uint64
		for _, id := range seatIDs {
			if !inHall[id] {
				foreign = append(foreign, id)
			}
		}
		if len(foreign) > 0 {
			e := newError(KindInvalidRequest, CodeSeatNotInHall, "seats do not belong to the screening's hall")
			e.SeatIDs = foreign
			return e
		}

		conflicts, err := s.availability.FindConflicts(ctx, screeningID, seatIDs)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return seatConflict(conflicts)
		}

		h, err := s.st.Halls.GetByID(ctx, sc.HallID)
		if err != nil && !errors.Is(err, repository.ErrHallNotFound) {
			return err
		}

		ids := append([]uint64(nil), seatIDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		b := &model.Booking{
			UserID:        caller.UserID,
			ScreeningID:   sc.ID,
			Status:        model.BookingPending,
			PaymentStatus: model.PaymentPending,
			TotalAmount:   sc.Price * int64(len(ids)),
			CreatedAt:     now.UTC(),
			UpdatedAt:     now.UTC(),
			SeatIDs:       ids,
		}
		if err := s.st.Bookings.Create(ctx, b); err != nil {
			if errors.Is(err, repository.ErrDuplicateSeat) {
				e := seatConflict(ids)
				e.Err = err
				return e
			}
			return err
		}
		booking, screening, seats, hall = b, sc, found, h
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateSeat) {
		err = s.narrowSeatConflict(ctx, screeningID, err)
	}
	if err != nil {
		return nil, s.fail(ctx, "create booking", err)
	}

	s.opts.log.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"user_id":      booking.UserID,
		"screening_id": booking.ScreeningID,
		"seats":        len(booking.SeatIDs),
	}).Info("booking created")
	s.invalidateSeatMap(ctx, booking.ScreeningID)
	s.publish(ctx, queue.EventBookingCreated, booking)

	return s.assemble(booking, screening, hall, seats), nil
}

// Pay confirms a booking after the payment processor accepts the charge.
// The booking is first claimed as PROCESSING so a concurrent Pay gets
// PAYMENT_IN_PROGRESS instead of charging twice.  The processor runs
// outside any transaction.  A Cancel that lands while the charge is in
// flight still wins: the booking stays cancelled and the charge is left
// for the processor's refund flow.
func (s *BookingService) Pay(ctx context.Context, caller Caller, in PayInput) (*BookingDetail, error) {
	b, err := s.st.Bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, bookingNotFound()
		}
		return nil, s.fail(ctx, "pay: load booking", err)
	}
	if !CanModify(caller.UserID, caller.IsAdmin, b) {
		return nil, forbidden()
	}
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if method == "" {
		return nil, invalid("payment method is required")
	}
	if in.Amount <= 0 {
		return nil, invalid("amount must be positive")
	}
	if err := payable(b); err != nil {
		return nil, err
	}
	if in.Amount != b.TotalAmount {
		return nil, newError(KindConflict, CodeAmountMismatch,
			"amount "+strconv.FormatInt(in.Amount, 10)+" does not match booking total "+strconv.FormatInt(b.TotalAmount, 10))
	}

	if err := s.claimPayment(ctx, b.ID); err != nil {
		return nil, s.fail(ctx, "pay: claim", err)
	}
	res, err := s.processor.Attempt(ctx, method, in.Amount)
	if err != nil {
		s.releasePayment(ctx, b.ID)
		return nil, s.fail(ctx, "pay: processor", err)
	}
	if !res.OK {
		s.releasePayment(ctx, b.ID)
		s.opts.log.WithFields(logrus.Fields{"booking_id": b.ID, "method": method}).Info("payment declined")
		return nil, newError(KindPaymentDeclined, CodePaymentDeclined, "payment was declined")
	}

	ref := strings.TrimSpace(in.TransactionRef)
	if ref == "" {
		ref = res.Reference
	}
	p := model.Payment{Method: method, TransactionID: ref, PaidAt: s.clock.Now().UTC()}
	err = s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.st.Bookings.MarkPaid(ctx, b.ID, p)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		cur, err := s.st.Bookings.GetByID(ctx, b.ID)
		if err != nil {
			return err
		}
		if perr := payable(cur); perr != nil {
			return perr
		}
		return newError(KindConflict, CodeAlreadyPaid, "booking is already paid")
	})
	if err != nil {
		s.releasePayment(ctx, b.ID)
		return nil, s.fail(ctx, "pay: confirm", err)
	}

	paid, err := s.st.Bookings.GetByID(ctx, b.ID)
	if err != nil {
		return nil, s.fail(ctx, "pay: reload booking", err)
	}
	s.opts.log.WithFields(logrus.Fields{
		"booking_id":     paid.ID,
		"method":         method,
		"transaction_id": ref,
	}).Info("booking paid")
	s.publish(ctx, queue.EventBookingPaid, paid)
	return s.detail(ctx, paid)
}

// PaySimple pays the full booking total with a system generated reference.
func (s *BookingService) PaySimple(ctx context.Context, caller Caller, bookingID uint64, method string) (*BookingDetail, error) {
	b, err := s.st.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, bookingNotFound()
		}
		return nil, s.fail(ctx, "pay simple: load booking", err)
	}
	if !CanModify(caller.UserID, caller.IsAdmin, b) {
		return nil, forbidden()
	}
	return s.Pay(ctx, caller, PayInput{
		BookingID:      bookingID,
		Method:         method,
		Amount:         b.TotalAmount,
		TransactionRef: "TXN-" + uuid.NewString(),
	})
}

// Cancel cancels a booking that has not been cancelled yet, as long as the
// screening has not started.  Paid bookings may be cancelled too; their
// payment status is left as is.
func (s *BookingService) Cancel(ctx context.Context, caller Caller, bookingID uint64) error {
	var cancelled *model.Booking
	err := s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.st.Bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return bookingNotFound()
			}
			return err
		}
		if !CanModify(caller.UserID, caller.IsAdmin, b) {
			return forbidden()
		}
		if b.Status == model.BookingCancelled {
			return newError(KindConflict, CodeAlreadyCancelled, "booking is already cancelled")
		}
		sc, err := s.st.Screenings.GetByID(ctx, b.ScreeningID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if HasStarted(sc, now) {
			return newError(KindUnbookable, CodeAlreadyStarted, "screening has already started")
		}
		ok, err := s.st.Bookings.MarkCancelled(ctx, b.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindConflict, CodeAlreadyCancelled, "booking is already cancelled")
		}
		b.Status = model.BookingCancelled
		b.UpdatedAt = now.UTC()
		cancelled = b
		return nil
	})
	if err != nil {
		return s.fail(ctx, "cancel booking", err)
	}
	s.opts.log.WithFields(logrus.Fields{
		"booking_id":   cancelled.ID,
		"screening_id": cancelled.ScreeningID,
		"by_admin":     caller.IsAdmin && caller.UserID != cancelled.UserID,
	}).Info("booking cancelled")
	s.invalidateSeatMap(ctx, cancelled.ScreeningID)
	s.publish(ctx, queue.EventBookingCancelled, cancelled)
	return nil
}

// GetBooking returns one booking visible to the caller.
func (s *BookingService) GetBooking(ctx context.Context, caller Caller, bookingID uint64) (*BookingDetail, error) {
	b, err := s.st.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, bookingNotFound()
		}
		return nil, s.fail(ctx, "get booking", err)
	}
	if !CanModify(caller.UserID, caller.IsAdmin, b) {
		return nil, forbidden()
	}
	return s.detail(ctx, b)
}

// ListMyBookings returns the caller's bookings, newest first.
func (s *BookingService) ListMyBookings(ctx context.Context, caller Caller) ([]BookingDetail, error) {
	list, err := s.st.Bookings.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, s.fail(ctx, "list my bookings", err)
	}
	return s.details(ctx, list)
}

// ListScreeningBookings returns every booking of a screening.  Admin only.
func (s *BookingService) ListScreeningBookings(ctx context.Context, caller Caller, screeningID uint64) ([]BookingDetail, error) {
	if !caller.IsAdmin {
		return nil, newError(KindForbidden, CodeForbidden, "admin role required")
	}
	if _, err := s.st.Screenings.GetByID(ctx, screeningID); err != nil {
		if errors.Is(err, repository.ErrScreeningNotFound) {
			return nil, screeningNotFound()
		}
		return nil, s.fail(ctx, "list screening bookings", err)
	}
	list, err := s.st.Bookings.ListByScreening(ctx, screeningID)
	if err != nil {
		return nil, s.fail(ctx, "list screening bookings", err)
	}
	return s.details(ctx, list)
}

func (s *BookingService) validateSeatIDs(seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return invalid("at least one seat is required")
	}
	if len(seatIDs) > s.opts.maxSeats {
		return invalid("at most " + strconv.Itoa(s.opts.maxSeats) + " seats per booking")
	}
	seen := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			return invalid("seat ids must be positive")
		}
		if _, dup := seen[id]; dup {
			e := invalid("duplicate seat id")
			e.SeatIDs = []uint64{id}
			return e
		}
		seen[id] = struct{}{}
	}
	return nil
}

// narrowSeatConflict replaces the requested seat list of a unique index
// conflict with the seats actually held.  The read runs after the failed
// transaction so it sees the booking that won.  When nothing shows up the
// full request is kept.
func (s *BookingService) narrowSeatConflict(ctx context.Context, screeningID uint64, err error) error {
	var se *Error
	if !errors.As(err, &se) {
		return err
	}
	held, ferr := s.availability.FindConflicts(ctx, screeningID, se.SeatIDs)
	if ferr != nil {
		s.opts.log.WithError(ferr).WithField("screening_id", screeningID).Warn("recheck seat conflict failed")
		return se
	}
	if len(held) > 0 {
		se.SeatIDs = held
	}
	return se
}

// claimPayment marks the booking PROCESSING or reports why it cannot be
// charged right now.
func (s *BookingService) claimPayment(ctx context.Context, id uint64) error {
	return s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now().UTC()
		ok, err := s.st.Bookings.ClaimPayment(ctx, id, now, now.Add(-PaymentClaimTTL))
		if err != nil || ok {
			return err
		}
		cur, err := s.st.Bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if perr := payable(cur); perr != nil {
			return perr
		}
		return newError(KindConflict, CodePaymentInProgress, "a payment for this booking is already in progress")
	})
}

// releasePayment returns a claimed booking to PENDING.  It runs even when
// the request context is done so a declined charge never pins the claim.
func (s *BookingService) releasePayment(ctx context.Context, id uint64) {
	ctx = context.WithoutCancel(ctx)
	if err := s.st.Bookings.ReleasePayment(ctx, id, s.clock.Now().UTC()); err != nil {
		s.opts.log.WithError(err).WithField("booking_id", id).Warn("release payment claim failed")
	}
}

// payable rejects cancelled and already paid bookings.
func payable(b *model.Booking) *Error {
	if b.Status == model.BookingCancelled {
		return newError(KindConflict, CodeBookingCancelled, "booking is cancelled")
	}
	if b.PaymentStatus == model.PaymentPaid {
		return newError(KindConflict, CodeAlreadyPaid, "booking is already paid")
	}
	return nil
}

// fail passes business errors through and turns everything else into a
// logged internal error.
func (s *BookingService) fail(ctx context.Context, op string, err error) error {
	return failInternal(ctx, s.opts.log, op, err)
}

func failInternal(ctx context.Context, log *logrus.Logger, op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.WithError(err).WithField("op", op).Warn("request aborted")
	} else {
		log.WithError(err).WithField("op", op).Error("operation failed")
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Err: err}
}

func (s *BookingService) invalidateSeatMap(ctx context.Context, screeningID uint64) {
	if s.opts.seatMaps == nil {
		return
	}
	if err := s.opts.seatMaps.Invalidate(ctx, screeningID); err != nil {
		s.opts.log.WithError(err).WithField("screening_id", screeningID).Warn("seat map cache invalidation failed")
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *model.Booking) {
	if s.opts.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		UserID:        b.UserID,
		ScreeningID:   b.ScreeningID,
		SeatIDs:       b.SeatIDs,
		TotalAmount:   b.TotalAmount,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		OccurredAt:    s.clock.Now().UTC(),
	}
	if b.TransactionID != nil {
		ev.TransactionID = *b.TransactionID
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.opts.events.Publish(pctx, ev); err != nil {
		s.opts.log.WithError(err).WithFields(logrus.Fields{
			"event":      eventType,
			"booking_id": b.ID,
		}).Warn("booking event not published")
	}
}

func (s *BookingService) detail(ctx context.Context, b *model.Booking) (*BookingDetail, error) {
	list, err := s.details(ctx, []model.Booking{*b})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// details assembles BookingDetail values, loading each screening and hall
// once and all seats in a single query.
func (s *BookingService) details(ctx context.Context, list []model.Booking) ([]BookingDetail, error) {
	out := make([]BookingDetail, 0, len(list))
	if len(list) == 0 {
		return out, nil
	}
	screenings := make(map[uint64]*model.Screening)
	halls := make(map[uint64]*model.Hall)
	var seatIDs []uint64
	for _, b := range list {
		seatIDs = append(seatIDs, b.SeatIDs...)
		if _, ok := screenings[b.ScreeningID]; ok {
			continue
		}
		sc, err := s.st.Screenings.GetByID(ctx, b.ScreeningID)
		if err != nil {
			return nil, s.fail(ctx, "load booking screening", err)
		}
		screenings[b.ScreeningID] = sc
		if _, ok := halls[sc.HallID]; !ok {
			h, err := s.st.Halls.GetByID(ctx, sc.HallID)
			if err != nil && !errors.Is(err, repository.ErrHallNotFound) {
				return nil, s.fail(ctx, "load booking hall", err)
			}
			halls[sc.HallID] = h
		}
	}
	seats, err := s.st.Seats.ListByIDs(ctx, dedupe(seatIDs))
	if err != nil {
		return nil, s.fail(ctx, "load booking seats", err)
	}
	for i := range list {
		sc := screenings[list[i].ScreeningID]
		out = append(out, *s.assemble(&list[i], sc, halls[sc.HallID], seats))
	}
	return out, nil
}

// assemble builds the detail of b.  seats may hold more seats than b
// references; only b's seats are used, in seat order.
func (s *BookingService) assemble(b *model.Booking, sc *model.Screening, h *model.Hall, seats []model.Seat) *BookingDetail {
	loc := s.clock.Now().Location()
	mine := make(map[uint64]bool, len(b.SeatIDs))
	for _, id := range b.SeatIDs {
		mine[id] = true
	}
	d := &BookingDetail{
		ID:            b.ID,
		UserID:        b.UserID,
		ScreeningID:   b.ScreeningID,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TotalAmount:   b.TotalAmount,
		PaymentMethod: b.PaymentMethod,
		TransactionID: b.TransactionID,
		CreatedAt:     b.CreatedAt.In(loc),
		Seats:         []SeatSummary{},
		Hall:          hallSummary(h),
	}
	if b.PaidAt != nil {
		t := b.PaidAt.In(loc)
		d.PaidAt = &t
	}
	if sc != nil {
		d.Screening = screeningSummary(sc, loc, IsBookable(sc, s.clock.Now(), s.opts.grace))
	}
	ordered := append([]model.Seat(nil), seats...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].RowLabel != ordered[j].RowLabel {
			return ordered[i].RowLabel < ordered[j].RowLabel
		}
		return ordered[i].SeatNumber < ordered[j].SeatNumber
	})
	for _, seat := range ordered {
		if mine[seat.ID] {
			d.Seats = append(d.Seats, seatSummary(seat))
			delete(mine, seat.ID)
		}
	}
	return d
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
