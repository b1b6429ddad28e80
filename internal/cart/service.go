package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/realtime"
)

const changeTable = "carts"

type TourLookup interface {
	GetTour(ctx context.Context, id string) (*models.Tour, error)
}

// Service runs actions against stored carts. Added lines take their title,
// image and price from the tour, not from the client.
type Service struct {
	Store   Store
	Tours   TourLookup
	Emitter *realtime.Emitter
	Logger  *logger.Logger
}

func NewService(store Store, tours TourLookup, emitter *realtime.Emitter, log *logger.Logger) *Service {
	return &Service{Store: store, Tours: tours, Emitter: emitter, Logger: log}
}

func (s *Service) NewCart(ctx context.Context) (Cart, error) {
	c, err := s.Store.Save(ctx, Cart{ID: uuid.NewString(), Items: []CartItem{}})
	if err != nil {
		return Cart{}, err
	}
	s.Emitter.Emit(ctx, changeTable, realtime.Insert, c.ID, c)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if err := checkID(id); err != nil {
		return Cart{}, err
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) Dispatch(ctx context.Context, id string, a Action) (Cart, error) {
	if err := checkID(id); err != nil {
		return Cart{}, err
	}
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return Cart{}, err
	}

	switch a.Type {
	case ActionAddItem:
		if a.Item != nil {
			item, err := s.priced(ctx, *a.Item)
			if err != nil {
				return Cart{}, err
			}
			a.Item = &item
		}
	case ActionLoad:
		items := make([]CartItem, 0, len(a.Items))
		for _, it := range a.Items {
			item, err := s.priced(ctx, it)
			if err != nil {
				return Cart{}, err
			}
			items = append(items, item)
		}
		a.Items = items
	}

	next, err := Reduce(current, a)
	if err != nil {
		return Cart{}, err
	}
	saved, err := s.Store.Save(ctx, next)
	if err != nil {
		return Cart{}, err
	}
	s.Logger.Debug("CART", fmt.Sprintf("Cart %s: %s, %d lines", id, a.Type, len(saved.Items)))
	s.Emitter.Emit(ctx, changeTable, realtime.Update, id, saved)
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.Emitter.Emit(ctx, changeTable, realtime.Delete, id, nil)
	return nil
}

func (s *Service) priced(ctx context.Context, item CartItem) (CartItem, error) {
	if s.Tours == nil || item.TourID == "" {
		return item, nil
	}
	tour, err := s.Tours.GetTour(ctx, item.TourID)
	if err != nil {
		return CartItem{}, err
	}
	if tour.Status != models.TourStatusPublished {
		return CartItem{}, apperr.Invalid("tour_id", "Tour is not available for booking")
	}
	if tour.MaxGroupSize > 0 && item.Travelers > tour.MaxGroupSize {
		return CartItem{}, apperr.Invalid("travelers", fmt.Sprintf("Must be at most %d for this tour", tour.MaxGroupSize))
	}
	item.Slug = tour.Slug
	item.Title = tour.Title
	item.Image = tour.CoverImage
	item.UnitPrice = tour.Price
	return item, nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Invalid("cart_id", "Must be a UUID")
	}
	return nil
}
