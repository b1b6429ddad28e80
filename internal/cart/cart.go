// Package cart holds the shopping cart: a pure reducer over cart actions and
// a Redis store that keeps each cart for a limited time.
package cart

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"samba-tours/internal/apperr"
	"samba-tours/internal/utils"
)

type CartItem struct {
	TourID     string          `json:"tour_id"`
	Slug       string          `json:"slug"`
	Title      string          `json:"title"`
	Image      string          `json:"image"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Travelers  int             `json:"travelers"`
	TravelDate string          `json:"travel_date"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Travelers)))
}

type Cart struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Totals struct {
	ItemCount int             `json:"item_count"`
	Travelers int             `json:"travelers"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func (c Cart) Totals() Totals {
	t := Totals{Subtotal: decimal.Zero}
	for _, item := range c.Items {
		t.ItemCount++
		t.Travelers += item.Travelers
		t.Subtotal = t.Subtotal.Add(item.Subtotal())
	}
	return t
}

type ActionType string

const (
	ActionAddItem         ActionType = "ADD_ITEM"
	ActionRemoveItem      ActionType = "REMOVE_ITEM"
	ActionUpdateTravelers ActionType = "UPDATE_TRAVELERS"
	ActionUpdateDate      ActionType = "UPDATE_DATE"
	ActionClear           ActionType = "CLEAR"
	ActionLoad            ActionType = "LOAD"
)

const maxTravelersPerBooking = 50

// Action is one cart mutation. Which fields are read depends on Type:
// ADD_ITEM uses Item, LOAD uses Items, the others address a line by TourID
// and TravelDate.
type Action struct {
	Type       ActionType `json:"type"`
	Item       *CartItem  `json:"item,omitempty"`
	Items      []CartItem `json:"items,omitempty"`
	TourID     string     `json:"tour_id,omitempty"`
	TravelDate string     `json:"travel_date,omitempty"`
	NewDate    string     `json:"new_date,omitempty"`
	Travelers  int        `json:"travelers,omitempty"`
}

// Reduce applies a to c and returns the new cart. c is not modified.
func Reduce(c Cart, a Action) (Cart, error) {
	next := Cart{ID: c.ID, UpdatedAt: c.UpdatedAt, Items: append([]CartItem(nil), c.Items...)}

	switch a.Type {
	case ActionAddItem:
		if a.Item == nil {
			return c, apperr.Invalid("item", "This field is required")
		}
		if err := checkItem(*a.Item); err != nil {
			return c, err
		}
		if i := next.find(a.Item.TourID, a.Item.TravelDate); i >= 0 {
			next.Items[i].Travelers += a.Item.Travelers
			if next.Items[i].Travelers > maxTravelersPerBooking {
				return c, apperr.Invalid("travelers", fmt.Sprintf("Must be at most %d", maxTravelersPerBooking))
			}
		} else {
			next.Items = append(next.Items, *a.Item)
		}

	case ActionRemoveItem:
		i := next.find(a.TourID, a.TravelDate)
		if i < 0 {
			return c, apperr.NotFound("cart item", a.TourID)
		}
		next.Items = append(next.Items[:i], next.Items[i+1:]...)

	case ActionUpdateTravelers:
		i := next.find(a.TourID, a.TravelDate)
		if i < 0 {
			return c, apperr.NotFound("cart item", a.TourID)
		}
		if a.Travelers <= 0 {
			next.Items = append(next.Items[:i], next.Items[i+1:]...)
			break
		}
		if a.Travelers > maxTravelersPerBooking {
			return c, apperr.Invalid("travelers", fmt.Sprintf("Must be at most %d", maxTravelersPerBooking))
		}
		next.Items[i].Travelers = a.Travelers

	case ActionUpdateDate:
		i := next.find(a.TourID, a.TravelDate)
		if i < 0 {
			return c, apperr.NotFound("cart item", a.TourID)
		}
		if _, err := time.Parse(utils.DateLayout, a.NewDate); err != nil {
			return c, apperr.Invalid("new_date", "Must be a date in YYYY-MM-DD format")
		}
		// Moving onto a date the tour already has merges the two lines.
		if j := next.find(a.TourID, a.NewDate); j >= 0 && j != i {
			next.Items[j].Travelers += next.Items[i].Travelers
			if next.Items[j].Travelers > maxTravelersPerBooking {
				return c, apperr.Invalid("travelers", fmt.Sprintf("Must be at most %d", maxTravelersPerBooking))
			}
			next.Items = append(next.Items[:i], next.Items[i+1:]...)
			break
		}
		next.Items[i].TravelDate = a.NewDate

	case ActionClear:
		next.Items = nil

	case ActionLoad:
		for _, item := range a.Items {
			if err := checkItem(item); err != nil {
				return c, err
			}
		}
		next.Items = append([]CartItem(nil), a.Items...)

	default:
		return c, apperr.Invalid("type", fmt.Sprintf("Unknown cart action %q", a.Type))
	}

	if next.Items == nil {
		next.Items = []CartItem{}
	}
	return next, nil
}

func (c Cart) find(tourID, date string) int {
	for i, item := range c.Items {
		if item.TourID == tourID && item.TravelDate == date {
			return i
		}
	}
	return -1
}

func checkItem(item CartItem) error {
	if item.TourID == "" {
		return apperr.Invalid("tour_id", "This field is required")
	}
	if item.Travelers < 1 || item.Travelers > maxTravelersPerBooking {
		return apperr.Invalid("travelers", fmt.Sprintf("Must be between 1 and %d", maxTravelersPerBooking))
	}
	if _, err := time.Parse(utils.DateLayout, item.TravelDate); err != nil {
		return apperr.Invalid("travel_date", "Must be a date in YYYY-MM-DD format")
	}
	if item.UnitPrice.IsNegative() {
		return apperr.Invalid("unit_price", "Must not be negative")
	}
	return nil
}
