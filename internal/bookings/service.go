package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"samba-tours/internal/apperr"
	"samba-tours/internal/cart"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/payments"
	"samba-tours/internal/realtime"
	"samba-tours/internal/utils"
)

const (
	changeTable       = "bookings"
	referenceAttempts = 5
)

type BookingFilter struct {
	Status        string
	PaymentStatus string
	Search        string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

type BookingDB interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	GetBookingByPaymentIntent(ctx context.Context, intentID string) (*models.Booking, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, int, error)
	UpdateBooking(ctx context.Context, b *models.Booking, columns ...string) error
	DeleteBooking(ctx context.Context, id string) error
}

type TourLookup interface {
	GetTour(ctx context.Context, id string) (*models.Tour, error)
}

type CartSource interface {
	Get(ctx context.Context, id string) (cart.Cart, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	DB       BookingDB
	Tours    TourLookup
	Carts    CartSource
	Payments payments.Gateway
	Emitter  *realtime.Emitter
	Logger   *logger.Logger
	Currency string
	now      func() time.Time
}

func NewService(db BookingDB, tours TourLookup, carts CartSource, gateway payments.Gateway, emitter *realtime.Emitter, log *logger.Logger, currency string) *Service {
	return &Service{
		DB:       db,
		Tours:    tours,
		Carts:    carts,
		Payments: gateway,
		Emitter:  emitter,
		Logger:   log,
		Currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CustomerInput struct {
	CustomerName    string `json:"customer_name" validate:"required,min=2,max=200"`
	CustomerEmail   string `json:"customer_email" validate:"required,email,max=254"`
	CustomerPhone   string `json:"customer_phone" validate:"max=40"`
	CustomerCountry string `json:"customer_country" validate:"max=100"`
	SpecialRequests string `json:"special_requests" validate:"max=2000"`
}

type ItemInput struct {
	TourID     string `json:"tour_id" validate:"required"`
	TravelDate string `json:"travel_date" validate:"required"`
	Travelers  int    `json:"travelers" validate:"gte=1,lte=50"`
}

// BookingInput is the public booking form. Item prices are always taken
// from the tours.
type BookingInput struct {
	CustomerInput
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type BookingUpdate struct {
	CustomerInput
}

type CheckoutResult struct {
	Booking      *models.Booking  `json:"booking"`
	Payment      *payments.Intent `json:"payment,omitempty"`
	PaymentError string           `json:"payment_error,omitempty"`
}

func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (*models.Booking, error) {
	return s.create(ctx, in, "")
}

func (s *Service) create(ctx context.Context, in BookingInput, cartID string) (*models.Booking, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	now := s.now()
	booking := &models.Booking{
		ID:              utils.GenerateID(),
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerEmail:   strings.ToLower(strings.TrimSpace(in.CustomerEmail)),
		CustomerPhone:   strings.TrimSpace(in.CustomerPhone),
		CustomerCountry: strings.TrimSpace(in.CustomerCountry),
		SpecialRequests: in.SpecialRequests,
		Status:          models.BookingStatusPending,
		PaymentStatus:   models.PaymentStatusUnpaid,
		Currency:        s.Currency,
		CartID:          cartID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	total := decimal.Zero
	for i, it := range in.Items {
		item, err := s.priceItem(ctx, booking.ID, it, now)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		booking.Items = append(booking.Items, item)
		total = total.Add(item.Subtotal)
	}
	booking.TotalAmount = total

	ref, err := s.newReference(ctx)
	if err != nil {
		return nil, err
	}
	booking.Reference = ref

	if err := s.DB.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.Logger.LogBooking("CREATE", booking.Reference, fmt.Sprintf("%d items, total %s %s", len(booking.Items), booking.TotalAmount.StringFixed(2), booking.Currency))
	s.Emitter.Emit(ctx, changeTable, realtime.Insert, booking.ID, booking)
	return booking, nil
}

func (s *Service) priceItem(ctx context.Context, bookingID string, in ItemInput, now time.Time) (models.BookingItem, error) {
	date, err := time.Parse(utils.DateLayout, in.TravelDate)
	if err != nil {
		return models.BookingItem{}, apperr.Invalid("travel_date", "Must be a date in YYYY-MM-DD format")
	}
	if date.Before(utils.DayStart(now)) {
		return models.BookingItem{}, apperr.Invalid("travel_date", "Must not be in the past")
	}

	tour, err := s.Tours.GetTour(ctx, in.TourID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.BookingItem{}, apperr.Invalid("tour_id", "Unknown tour")
	}
	if err != nil {
		return models.BookingItem{}, err
	}
	if tour.Status != models.TourStatusPublished {
		return models.BookingItem{}, apperr.Invalid("tour_id", "Tour is not available for booking")
	}
	if tour.MaxGroupSize > 0 && in.Travelers > tour.MaxGroupSize {
		return models.BookingItem{}, apperr.Invalid("travelers", fmt.Sprintf("Must be at most %d for this tour", tour.MaxGroupSize))
	}

	return models.BookingItem{
		ID:         utils.GenerateID(),
		BookingID:  bookingID,
		TourID:     tour.ID,
		TourTitle:  tour.Title,
		TravelDate: date,
		Travelers:  in.Travelers,
		UnitPrice:  tour.Price,
		Subtotal:   tour.Price.Mul(decimal.NewFromInt(int64(in.Travelers))),
	}, nil
}

func (s *Service) newReference(ctx context.Context) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		ref := utils.GenerateReference()
		taken, err := s.DB.ReferenceExists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("check reference: %w", err)
		}
		if !taken {
			return ref, nil
		}
	}
	return "", fmt.Errorf("no free booking reference after %d attempts: %w", referenceAttempts, apperr.ErrConflict)
}

func (s *Service) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.DB.GetBooking(ctx, id)
}

// GetBookingByReference is the customer lookup. A wrong email is reported the
// same way as an unknown reference.
func (s *Service) GetBookingByReference(ctx context.Context, reference, email string) (*models.Booking, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" || strings.TrimSpace(email) == "" {
		return nil, apperr.Invalid("reference", "Reference and email are required")
	}
	b, err := s.DB.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(b.CustomerEmail, strings.TrimSpace(email)) {
		s.Logger.LogSecurity("BOOKING_LOOKUP", fmt.Sprintf("Email mismatch for booking %s", reference))
		return nil, apperr.NotFound("booking", reference)
	}
	return b, nil
}

func (s *Service) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, int, error) {
	if f.Status != "" && !contains(models.BookingStatuses, f.Status) {
		return nil, 0, apperr.Invalid("status", "Must be one of: "+strings.Join(models.BookingStatuses, " "))
	}
	if f.PaymentStatus != "" && !contains(models.PaymentStatuses, f.PaymentStatus) {
		return nil, 0, apperr.Invalid("payment_status", "Must be one of: "+strings.Join(models.PaymentStatuses, " "))
	}
	return s.DB.ListBookings(ctx, f)
}

// UpdateBookingStatus accepts any status value. Cancelling a booking with an
// open payment also cancels the intent, best effort.
func (s *Service) UpdateBookingStatus(ctx context.Context, id, status string) (*models.Booking, error) {
	if !contains(models.BookingStatuses, status) {
		return nil, apperr.Invalid("status", "Must be one of: "+strings.Join(models.BookingStatuses, " "))
	}
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Status = status
	b.UpdatedAt = s.now()
	if err := s.DB.UpdateBooking(ctx, b, "status", "updated_at"); err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	if status == models.BookingStatusCancelled && b.PaymentStatus == models.PaymentStatusPending && b.PaymentIntentID != "" && s.Payments != nil {
		if err := s.Payments.CancelIntent(ctx, b.PaymentIntentID); err != nil {
			s.Logger.Warn("PAYMENT", fmt.Sprintf("Booking %s cancelled but intent %s is still open: %v", b.Reference, b.PaymentIntentID, err))
		}
	}

	s.Logger.LogBooking("STATUS", b.Reference, "status set to "+status)
	s.Emitter.Emit(ctx, changeTable, realtime.Update, b.ID, b)
	return b, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id, status string) (*models.Booking, error) {
	if !contains(models.PaymentStatuses, status) {
		return nil, apperr.Invalid("payment_status", "Must be one of: "+strings.Join(models.PaymentStatuses, " "))
	}
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	b.PaymentStatus = status
	b.UpdatedAt = s.now()
	if err := s.DB.UpdateBooking(ctx, b, "payment_status", "updated_at"); err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	s.Logger.LogBooking("PAYMENT", b.Reference, "payment status set to "+status)
	s.Emitter.Emit(ctx, changeTable, realtime.Update, b.ID, b)
	return b, nil
}

func (s *Service) UpdateBooking(ctx context.Context, id string, in BookingUpdate) (*models.Booking, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	b.CustomerName = strings.TrimSpace(in.CustomerName)
	b.CustomerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	b.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	b.CustomerCountry = strings.TrimSpace(in.CustomerCountry)
	b.SpecialRequests = in.SpecialRequests
	b.UpdatedAt = s.now()

	err = s.DB.UpdateBooking(ctx, b, "customer_name", "customer_email", "customer_phone", "customer_country", "special_requests", "updated_at")
	if err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}
	s.Emitter.Emit(ctx, changeTable, realtime.Update, b.ID, b)
	return b, nil
}

func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	if err := s.DB.DeleteBooking(ctx, id); err != nil {
		return err
	}
	s.Logger.LogBooking("DELETE", id, "booking deleted")
	s.Emitter.Emit(ctx, changeTable, realtime.Delete, id, nil)
	return nil
}

// CheckoutCart books every line of the cart and opens a payment for the
// total. A gateway failure leaves the booking pending and unpaid and is
// reported in the result instead of failing the checkout.
func (s *Service) CheckoutCart(ctx context.Context, cartID string, customer CustomerInput) (*CheckoutResult, error) {
	c, err := s.Carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, apperr.Invalid("cart", "Cart is empty")
	}

	in := BookingInput{CustomerInput: customer}
	for _, item := range c.Items {
		in.Items = append(in.Items, ItemInput{TourID: item.TourID, TravelDate: item.TravelDate, Travelers: item.Travelers})
	}
	booking, err := s.create(ctx, in, cartID)
	if err != nil {
		return nil, err
	}
	result := &CheckoutResult{Booking: booking}

	if s.Payments != nil {
		intent, err := s.Payments.CreateIntent(ctx, payments.IntentRequest{
			BookingID: booking.ID,
			Reference: booking.Reference,
			Email:     booking.CustomerEmail,
			Amount:    booking.TotalAmount,
			Currency:  booking.Currency,
		})
		if err != nil {
			s.Logger.Error("PAYMENT", fmt.Sprintf("Checkout of cart %s: booking %s created without payment: %v", cartID, booking.Reference, err))
			result.PaymentError = "Payment could not be started"
		} else {
			booking.PaymentIntentID = intent.ID
			booking.PaymentStatus = models.PaymentStatusPending
			booking.UpdatedAt = s.now()
			if err := s.DB.UpdateBooking(ctx, booking, "payment_intent_id", "payment_status", "updated_at"); err != nil {
				return nil, fmt.Errorf("attach payment intent: %w", err)
			}
			result.Payment = intent
		}
	}

	if err := s.Carts.Delete(ctx, cartID); err != nil {
		s.Logger.Warn("CART", fmt.Sprintf("Cart %s checked out but not cleared: %v", cartID, err))
	}
	return result, nil
}

// ApplyPayment records a verified gateway outcome. A paid booking is also
// confirmed.
func (s *Service) ApplyPayment(ctx context.Context, ev payments.WebhookEvent) error {
	var (
		b   *models.Booking
		err error
	)
	if ev.BookingID != "" {
		b, err = s.DB.GetBooking(ctx, ev.BookingID)
	} else {
		b, err = s.DB.GetBookingByPaymentIntent(ctx, ev.IntentID)
	}
	if err != nil {
		return err
	}

	columns := []string{"payment_status", "updated_at"}
	switch ev.Outcome {
	case payments.OutcomeSucceeded:
		b.PaymentStatus = models.PaymentStatusPaid
		b.Status = models.BookingStatusConfirmed
		columns = append(columns, "status")
	case payments.OutcomeFailed:
		b.PaymentStatus = models.PaymentStatusFailed
	case payments.OutcomeRefunded:
		b.PaymentStatus = models.PaymentStatusRefunded
	default:
		return nil
	}
	if ev.IntentID != "" && b.PaymentIntentID == "" {
		b.PaymentIntentID = ev.IntentID
		columns = append(columns, "payment_intent_id")
	}
	b.UpdatedAt = s.now()

	if err := s.DB.UpdateBooking(ctx, b, columns...); err != nil {
		return fmt.Errorf("apply payment to booking %s: %w", b.ID, err)
	}
	s.Logger.LogBooking("PAYMENT", b.Reference, fmt.Sprintf("gateway reported %s", ev.Outcome))
	s.Emitter.Emit(ctx, changeTable, realtime.Update, b.ID, b)
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
