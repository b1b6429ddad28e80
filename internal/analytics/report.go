package analytics

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"samba-tours/internal/models"
	"samba-tours/internal/visitors"
)

const reportTopLimit = 10

type Report struct {
	From          time.Time        `json:"from"`
	To            time.Time        `json:"to"`
	Dashboard     *Dashboard       `json:"dashboard"`
	Revenue       *RevenueReport   `json:"revenue"`
	BookingStatus []StatusCount    `json:"booking_status"`
	PaymentStatus []StatusCount    `json:"payment_status"`
	TopTours      []TopTour        `json:"top_tours"`
	PopularPosts  []PopularPost    `json:"popular_posts"`
	Visitors      *visitors.Stats  `json:"visitors,omitempty"`
	Bookings      []models.Booking `json:"bookings"`
}

// Report gathers everything the admin report shows for [from, to).
func (s *Service) Report(ctx context.Context, from, to time.Time) (*Report, error) {
	rev, err := s.Revenue(ctx, from, to)
	if err != nil {
		return nil, err
	}
	r := &Report{From: rev.From, To: rev.To, Revenue: rev}

	if r.Dashboard, err = s.Dashboard(ctx); err != nil {
		return nil, err
	}
	if r.BookingStatus, err = s.BookingStatusBreakdown(ctx); err != nil {
		return nil, err
	}
	if r.PaymentStatus, err = s.PaymentStatusBreakdown(ctx); err != nil {
		return nil, err
	}
	if r.TopTours, err = s.TopTours(ctx, reportTopLimit); err != nil {
		return nil, err
	}
	if r.PopularPosts, err = s.PopularPosts(ctx, reportTopLimit); err != nil {
		return nil, err
	}
	if s.Visitors != nil {
		if r.Visitors, err = s.Visitors.Stats(ctx, rev.From, rev.To); err != nil {
			return nil, err
		}
	}

	r.Bookings = []models.Booking{}
	err = s.db.NewSelect().
		Model(&r.Bookings).
		Where("created_at >= ?", rev.From).
		Where("created_at < ?", rev.To).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load report bookings: %w", err)
	}
	return r, nil
}

// ExportReportXLSX writes the report as a workbook with Summary, Daily
// Revenue, Top Tours and Bookings sheets.
func ExportReportXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"Samba Tours report"},
		{"From", r.From.Format("2006-01-02")},
		{"To (exclusive)", r.To.Format("2006-01-02")},
		{},
		{"Revenue in range", r.Revenue.Total.InexactFloat64()},
		{"Bookings in range", r.Revenue.Bookings},
		{"Total revenue (paid)", r.Dashboard.Revenue.InexactFloat64()},
		{"Pending revenue", r.Dashboard.PendingRevenue.InexactFloat64()},
		{"Total bookings", r.Dashboard.TotalBookings},
		{"Total tours", r.Dashboard.TotalTours},
		{"Published posts", r.Dashboard.PublishedPosts},
		{"Newsletter subscribers", r.Dashboard.Subscribers},
		{"Unread messages", r.Dashboard.UnreadMessages},
		{"Visitors", r.Dashboard.TotalVisitors},
	}
	if r.Visitors != nil {
		summary = append(summary,
			[]interface{}{"Unique visitors in range", r.Visitors.UniqueVisitors},
			[]interface{}{"New visitors in range", r.Visitors.NewVisitors},
			[]interface{}{"Returning visitors in range", r.Visitors.ReturningVisitors},
		)
	}
	summary = append(summary, []interface{}{}, []interface{}{"Booking status", "Count"})
	for _, c := range r.BookingStatus {
		summary = append(summary, []interface{}{c.Status, c.Count})
	}
	summary = append(summary, []interface{}{}, []interface{}{"Payment status", "Count"})
	for _, c := range r.PaymentStatus {
		summary = append(summary, []interface{}{c.Status, c.Count})
	}
	if err := writeRows(f, "Summary", summary); err != nil {
		return err
	}
	if err := f.SetCellStyle("Summary", "A1", "A1", bold); err != nil {
		return err
	}

	daily := [][]interface{}{{"Date", "Bookings", "Revenue"}}
	for _, d := range r.Revenue.Daily {
		daily = append(daily, []interface{}{d.Date, d.Bookings, d.Revenue.InexactFloat64()})
	}
	if err := addSheet(f, "Daily Revenue", daily, bold); err != nil {
		return err
	}

	tours := [][]interface{}{{"Tour", "Bookings", "Travelers", "Revenue"}}
	for _, t := range r.TopTours {
		tours = append(tours, []interface{}{t.Title, t.Bookings, t.Travelers, t.Revenue.InexactFloat64()})
	}
	if err := addSheet(f, "Top Tours", tours, bold); err != nil {
		return err
	}

	bookings := [][]interface{}{{"Reference", "Created", "Customer", "Email", "Status", "Payment", "Total", "Currency"}}
	for _, b := range r.Bookings {
		bookings = append(bookings, []interface{}{
			b.Reference,
			b.CreatedAt.UTC().Format("2006-01-02 15:04"),
			b.CustomerName,
			b.CustomerEmail,
			b.Status,
			b.PaymentStatus,
			b.TotalAmount.InexactFloat64(),
			b.Currency,
		})
	}
	if err := addSheet(f, "Bookings", bookings, bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func addSheet(f *excelize.File, name string, rows [][]interface{}, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if err := writeRows(f, name, rows); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(name, "A1", last, headerStyle)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
