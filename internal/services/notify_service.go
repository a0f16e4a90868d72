package services

import (
	"context"
	"fmt"
	"log/slog"

	"ticketmarket/utils"

	pubnub "github.com/pubnub/go"
)

// NotifyService pushes real-time updates to customer and organizer
// channels after a state change commits. Every publish is best-effort:
// the transaction has already committed, so failures are logged and the
// circuit breaker keeps a dead PubNub endpoint from stacking goroutines.
type NotifyService struct {
	pubnub  *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewNotifyService(pn *pubnub.PubNub) *NotifyService {
	return &NotifyService{
		pubnub:  pn,
		breaker: utils.NewCircuitBreaker("pubnub"),
	}
}

func (s *NotifyService) publish(channel string, message map[string]any) {
	if s == nil || s.pubnub == nil {
		return
	}

	go func() {
		err := s.breaker.Do(context.Background(), func(ctx context.Context) error {
			_, _, err := s.pubnub.Publish().
				Channel(channel).
				Message(message).
				Execute()
			return err
		})
		if err != nil {
			slog.Warn("notify: publish failed", "channel", channel, "type", message["type"], "error", err)
		}
	}()
}

func customerChannel(customerID string) string {
	return fmt.Sprintf("customer-%s", customerID)
}

func eventChannel(eventID string) string {
	return fmt.Sprintf("event-%s", eventID)
}

// OrderPaid notifies the purchaser that payment settled and their tickets
// are issued.
func (s *NotifyService) OrderPaid(orderID, customerID string, ticketCount int) {
	if customerID == "" {
		return
	}
	s.publish(customerChannel(customerID), map[string]any{
		"type":         "order_paid",
		"order_id":     orderID,
		"ticket_count": ticketCount,
	})
}

// OrderCancelled tells the purchaser their pending order was cancelled,
// whether by them or by the expiry sweep.
func (s *NotifyService) OrderCancelled(orderID, customerID, reason string) {
	if customerID == "" {
		return
	}
	s.publish(customerChannel(customerID), map[string]any{
		"type":     "order_cancelled",
		"order_id": orderID,
		"reason":   reason,
	})
}

// OrderRefunded tells the purchaser the refund was recorded and their
// tickets voided.
func (s *NotifyService) OrderRefunded(orderID, customerID string) {
	if customerID == "" {
		return
	}
	s.publish(customerChannel(customerID), map[string]any{
		"type":     "order_refunded",
		"order_id": orderID,
	})
}

// TicketCheckedIn fans a gate admission out to the event channel so the
// organizer dashboard ticks in real time.
func (s *NotifyService) TicketCheckedIn(ticketID, eventID, holderName string) {
	s.publish(eventChannel(eventID), map[string]any{
		"type":        "ticket_checked_in",
		"ticket_id":   ticketID,
		"holder_name": holderName,
	})
}

// EventStatusChanged broadcasts a lifecycle change (cancelled, ended,
// approved) with the count of tickets swept by the cascade.
func (s *NotifyService) EventStatusChanged(eventID, status string, affectedTickets int64) {
	s.publish(eventChannel(eventID), map[string]any{
		"type":             "event_status_changed",
		"event_id":         eventID,
		"status":           status,
		"affected_tickets": affectedTickets,
	})
}
