package sim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"droneDeliveryRouting/internal/notify"
	"droneDeliveryRouting/models"
	"droneDeliveryRouting/repository"
)

// ErrStopNotFound reports a stop that vanished between planning and
// execution.
var ErrStopNotFound = errors.New("route stop not found")

// StopCommit performs one stop transition as a single atomic unit of
// work, independent of whatever surrounds the route's lifecycle. The
// simulator runs for minutes; committing per stop lets observers see
// progress immediately, and a failure in one stop's unit of work never
// touches previously committed stops.
type StopCommit struct {
	db        *sql.DB
	publisher notify.Publisher
}

func NewStopCommit(db *sql.DB, publisher notify.Publisher) *StopCommit {
	return &StopCommit{db: db, publisher: publisher}
}

// CommitArrival transitions a PENDING stop to ARRIVED and commits. A DROP
// stop whose linked orders are all no longer deliverable is marked
// SKIPPED instead; the caller sees the final status on the returned stop.
func (s *StopCommit) CommitArrival(ctx context.Context, stopID int64) (*models.RouteStop, error) {
	var committed *models.RouteStop
	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		routes := repository.NewRouteRepository(tx)
		orders := repository.NewOrderRepository(tx)

		stop, err := routes.GetStopByID(ctx, stopID)
		if err != nil {
			return fmt.Errorf("load stop %d: %w", stopID, err)
		}
		if stop == nil {
			return fmt.Errorf("%w: id=%d", ErrStopNotFound, stopID)
		}

		if stop.Type == models.StopTypeDrop {
			deliverable, err := countDeliverable(ctx, orders, stop.OrderIDs)
			if err != nil {
				return err
			}
			if deliverable == 0 {
				if err := stop.Skip(); err != nil {
					return err
				}
				log.Printf("stop %d (seq %d) skipped: no deliverable orders", stop.ID, stop.Seq)
				committed = stop
				return routes.UpdateStop(ctx, stop)
			}
		}

		if err := stop.Arrive(time.Now().UTC()); err != nil {
			return err
		}
		committed = stop
		return routes.UpdateStop(ctx, stop)
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// CommitDeparture transitions an ARRIVED stop to DEPARTED and commits.
// For DROP stops it also fulfills every linked order still in ASSIGNED
// state inside the same unit of work; one completion notification per
// fulfilled order is published after the commit succeeds.
func (s *StopCommit) CommitDeparture(ctx context.Context, stopID int64) (*models.RouteStop, error) {
	var committed *models.RouteStop
	var events []notify.CompletionEvent

	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		events = events[:0]
		routes := repository.NewRouteRepository(tx)
		orderRepo := repository.NewOrderRepository(tx)

		stop, err := routes.GetStopByID(ctx, stopID)
		if err != nil {
			return fmt.Errorf("load stop %d: %w", stopID, err)
		}
		if stop == nil {
			return fmt.Errorf("%w: id=%d", ErrStopNotFound, stopID)
		}
		now := time.Now().UTC()
		if err := stop.Depart(now); err != nil {
			return err
		}
		if err := routes.UpdateStop(ctx, stop); err != nil {
			return err
		}

		if stop.Type == models.StopTypeDrop {
			linked, err := orderRepo.GetByIDs(ctx, stop.OrderIDs)
			if err != nil {
				return fmt.Errorf("load orders for stop %d: %w", stopID, err)
			}
			for _, o := range linked {
				if o.Status != models.OrderStatusAssigned {
					continue
				}
				if err := orderRepo.UpdateStatus(ctx, o.ID, models.OrderStatusFulfilled); err != nil {
					return fmt.Errorf("fulfill order %d: %w", o.ID, err)
				}
				events = append(events, notify.CompletionEvent{
					OrderID:     o.ID,
					Status:      string(models.OrderStatusFulfilled),
					Message:     "Your delivery has arrived!",
					CompletedAt: now,
				})
			}
		}
		committed = stop
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Notifications only fire once the unit of work has committed.
	for _, ev := range events {
		s.publisher.Publish(notify.OrderTopic(ev.OrderID), ev)
		log.Printf("order %d fulfilled at stop %d", ev.OrderID, stopID)
	}
	return committed, nil
}

func countDeliverable(ctx context.Context, orders *repository.OrderRepository, ids []int64) (int, error) {
	linked, err := orders.GetByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load linked orders: %w", err)
	}
	n := 0
	for _, o := range linked {
		if o.Status == models.OrderStatusAssigned {
			n++
		}
	}
	return n, nil
}
