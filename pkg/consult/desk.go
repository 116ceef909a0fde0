// Package consult drives one consultation from the user's input to a
// stored result, turning every failure into a message fit for display.
package consult

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"strategist/pkg/advice"
	"strategist/pkg/history"
)

// Fetcher is the part of the advice client the desk needs.
type Fetcher interface {
	FetchAdvice(ctx context.Context, query, password string) (*advice.StrategyAdvice, error)
}

// Outcome is what the user sees after a submission. Err is nil on success;
// Message is always set when Err is not.
type Outcome struct {
	Advice  *advice.StrategyAdvice
	Item    *advice.HistoryItem
	Err     error
	Message string
}

type Desk struct {
	fetcher Fetcher
	history *history.Store
	now     func() time.Time
	log     *slog.Logger
}

func NewDesk(f Fetcher, h *history.Store) *Desk {
	return &Desk{fetcher: f, history: h, now: time.Now, log: slog.Default()}
}

// Submit asks for advice and records it. History is only written after a
// complete success. An empty password is left to the fetcher, which may
// hold a session token in its place.
func (d *Desk) Submit(ctx context.Context, query, password string) Outcome {
	if strings.TrimSpace(query) == "" {
		return failed(advice.ErrEmptyQuery)
	}

	a, err := d.fetcher.FetchAdvice(ctx, query, password)
	if err != nil {
		d.log.Error("consultation failed", "code", advice.Code(err), "err", err)
		return failed(err)
	}

	out := Outcome{Advice: a}
	item, err := d.history.Append(query, *a, d.now())
	if err != nil {
		// the advice is still shown; only the record is lost
		d.log.Warn("history append failed", "err", err)
		return out
	}
	out.Item = &item
	return out
}

// Select shows a past consultation without contacting the gateway.
func (d *Desk) Select(id string) Outcome {
	item, ok, err := d.history.Get(id)
	if err != nil {
		return failed(err)
	}
	if !ok {
		return failed(fmt.Errorf("%w: no history entry %s", errNotFound, id))
	}
	a := item.Advice
	return Outcome{Advice: &a, Item: &item}
}

var errNotFound = errors.New("not found")

// History lists past consultations, most recent first.
func (d *Desk) History() ([]advice.HistoryItem, error) { return d.history.LoadAll() }

func (d *Desk) Clear() error { return d.history.Clear() }

func failed(err error) Outcome {
	msg := advice.Message(err)
	if errors.Is(err, errNotFound) {
		msg = "That consultation is no longer in your history."
	}
	return Outcome{Err: err, Message: msg}
}
