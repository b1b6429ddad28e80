// Package analytics aggregates bookings, tours, posts and visitors for the
// admin dashboard and reports.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/utils"
	"samba-tours/internal/visitors"
)

const maxRangeDays = 366

// VisitorSource supplies visitor numbers kept outside the relational store.
type VisitorSource interface {
	ActiveVisitors(ctx context.Context) (int, error)
	Stats(ctx context.Context, from, to time.Time) (*visitors.Stats, error)
}

// Service runs aggregation queries straight against the database.
type Service struct {
	db       *bun.DB
	Visitors VisitorSource
	Logger   *logger.Logger
}

func NewService(db *bun.DB, visitorSource VisitorSource, log *logger.Logger) *Service {
	return &Service{db: db, Visitors: visitorSource, Logger: log}
}

type StatusCount struct {
	Status string `bun:"status" json:"status"`
	Count  int    `bun:"count" json:"count"`
}

type Dashboard struct {
	TotalTours       int             `json:"total_tours"`
	ToursByStatus    []StatusCount   `json:"tours_by_status"`
	TotalBookings    int             `json:"total_bookings"`
	BookingsByStatus []StatusCount   `json:"bookings_by_status"`
	Revenue          decimal.Decimal `json:"revenue"`
	PendingRevenue   decimal.Decimal `json:"pending_revenue"`
	PublishedPosts   int             `json:"published_posts"`
	Subscribers      int             `json:"subscribers"`
	UnreadMessages   int             `json:"unread_messages"`
	TotalVisitors    int             `json:"total_visitors"`
	ActiveVisitors   int             `json:"active_visitors"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

type DailyRevenue struct {
	Date     string          `json:"date"`
	Revenue  decimal.Decimal `json:"revenue"`
	Bookings int             `json:"bookings"`
}

type RevenueReport struct {
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	Total    decimal.Decimal `json:"total"`
	Bookings int             `json:"bookings"`
	Daily    []DailyRevenue  `json:"daily"`
}

type TopTour struct {
	TourID    string          `bun:"tour_id" json:"tour_id"`
	Title     string          `bun:"title" json:"title"`
	Bookings  int             `bun:"bookings" json:"bookings"`
	Travelers int             `bun:"travelers" json:"travelers"`
	Revenue   decimal.Decimal `bun:"revenue" json:"revenue"`
}

type PopularPost struct {
	ID    string `bun:"id" json:"id"`
	Slug  string `bun:"slug" json:"slug"`
	Title string `bun:"title" json:"title"`
	Views int    `bun:"views" json:"views"`
	Likes int    `bun:"likes" json:"likes"`
}

func (s *Service) count(ctx context.Context, model interface{}, where string, args ...interface{}) (int, error) {
	q := s.db.NewSelect().Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	return q.Count(ctx)
}

func (s *Service) sum(ctx context.Context, query string, args ...interface{}) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := s.db.NewRaw(query, args...).Scan(ctx, &total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}

func (s *Service) statusCounts(ctx context.Context, table, column string) ([]StatusCount, error) {
	out := []StatusCount{}
	err := s.db.NewSelect().
		TableExpr("?", bun.Ident(table)).
		ColumnExpr("? AS status", bun.Ident(column)).
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("?", bun.Ident(column)).
		OrderExpr("? ASC", bun.Ident(column)).
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("count %s by %s: %w", table, column, err)
	}
	return out, nil
}

func total(counts []StatusCount) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{GeneratedAt: time.Now().UTC()}
	var err error

	if d.ToursByStatus, err = s.statusCounts(ctx, "tours", "status"); err != nil {
		return nil, err
	}
	d.TotalTours = total(d.ToursByStatus)
	if d.BookingsByStatus, err = s.statusCounts(ctx, "bookings", "status"); err != nil {
		return nil, err
	}
	d.TotalBookings = total(d.BookingsByStatus)

	d.Revenue, err = s.sum(ctx, "SELECT SUM(total_amount) FROM bookings WHERE payment_status = ?", models.PaymentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	d.PendingRevenue, err = s.sum(ctx,
		"SELECT SUM(total_amount) FROM bookings WHERE payment_status IN (?, ?) AND status <> ?",
		models.PaymentStatusUnpaid, models.PaymentStatusPending, models.BookingStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("sum pending revenue: %w", err)
	}

	if d.PublishedPosts, err = s.count(ctx, (*models.BlogPost)(nil), "status = ?", models.PostStatusPublished); err != nil {
		return nil, err
	}
	if d.Subscribers, err = s.count(ctx, (*models.NewsletterSubscriber)(nil), "status = ?", models.SubscriberSubscribed); err != nil {
		return nil, err
	}
	if d.UnreadMessages, err = s.count(ctx, (*models.ContactMessage)(nil), "read = ?", false); err != nil {
		return nil, err
	}
	if d.TotalVisitors, err = s.count(ctx, (*models.Visitor)(nil), ""); err != nil {
		return nil, err
	}
	if s.Visitors != nil {
		if d.ActiveVisitors, err = s.Visitors.ActiveVisitors(ctx); err != nil {
			// The dashboard still renders without the live count.
			s.Logger.Warn("ANALYTICS", fmt.Sprintf("Active visitor count unavailable: %v", err))
		}
	}
	return d, nil
}

func checkRange(from, to time.Time) error {
	if !to.After(from) {
		return apperr.Invalid("to", "Must be after from")
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return apperr.Invalid("from", fmt.Sprintf("Range must not exceed %d days", maxRangeDays))
	}
	return nil
}

// Revenue buckets non-cancelled bookings created in [from, to) by UTC day.
// Every day of the range is present; revenue only counts paid bookings.
func (s *Service) Revenue(ctx context.Context, from, to time.Time) (*RevenueReport, error) {
	from, to = utils.DayStart(from), utils.DayStart(to)
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	var rows []models.Booking
	err := s.db.NewSelect().
		Model(&rows).
		Column("created_at", "total_amount", "payment_status").
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Where("status <> ?", models.BookingStatusCancelled).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookings for revenue: %w", err)
	}

	report := &RevenueReport{From: from, To: to, Total: decimal.Zero, Daily: []DailyRevenue{}}
	index := map[string]int{}
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(utils.DateLayout)
		index[key] = len(report.Daily)
		report.Daily = append(report.Daily, DailyRevenue{Date: key, Revenue: decimal.Zero})
	}
	for _, b := range rows {
		i, ok := index[b.CreatedAt.UTC().Format(utils.DateLayout)]
		if !ok {
			continue
		}
		report.Daily[i].Bookings++
		report.Bookings++
		if b.PaymentStatus == models.PaymentStatusPaid {
			report.Daily[i].Revenue = report.Daily[i].Revenue.Add(b.TotalAmount)
			report.Total = report.Total.Add(b.TotalAmount)
		}
	}
	return report, nil
}

func (s *Service) BookingStatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	return s.statusCounts(ctx, "bookings", "status")
}

func (s *Service) PaymentStatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	return s.statusCounts(ctx, "bookings", "payment_status")
}

// TopTours ranks tours by travelers booked across non-cancelled bookings.
func (s *Service) TopTours(ctx context.Context, limit int) ([]TopTour, error) {
	out := []TopTour{}
	err := s.db.NewRaw(`
		SELECT
			bi.tour_id,
			MAX(bi.tour_title) AS title,
			COUNT(DISTINCT bi.booking_id) AS bookings,
			SUM(bi.travelers) AS travelers,
			SUM(bi.subtotal) AS revenue
		FROM booking_items AS bi
		JOIN bookings AS b ON b.id = bi.booking_id
		WHERE b.status <> ?
		GROUP BY bi.tour_id
		ORDER BY travelers DESC, revenue DESC
		LIMIT ?`, models.BookingStatusCancelled, clamp(limit)).Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("top tours: %w", err)
	}
	return out, nil
}

func (s *Service) PopularPosts(ctx context.Context, limit int) ([]PopularPost, error) {
	out := []PopularPost{}
	err := s.db.NewSelect().
		Model((*models.BlogPost)(nil)).
		Column("id", "slug", "title", "views", "likes").
		Where("status = ?", models.PostStatusPublished).
		Order("views DESC", "likes DESC", "title ASC").
		Limit(clamp(limit)).
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("popular posts: %w", err)
	}
	return out, nil
}

func clamp(limit int) int {
	if limit <= 0 {
		return 5
	}
	if limit > 50 {
		return 50
	}
	return limit
}
