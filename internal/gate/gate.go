// Package gate runs the dedup, authorization and dispatch pipeline for one
// webhook event.
package gate

import (
	"context"
	"fmt"

	"farcaster-trader/internal/dispatcher"
	"farcaster-trader/internal/model"

	"go.uber.org/zap"
)

// Outcome is the terminal result of Process for one event.
type Outcome string

const (
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeDispatched   Outcome = "dispatched"
	OutcomeQueued       Outcome = "queued"
)

type Store interface {
	CheckAndMark(ctx context.Context, key model.EventKey) (bool, error)
}

type Authorizer interface {
	IsAuthorized(username string) bool
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatcher.Request) (dispatcher.Result, error)
}

// Enqueuer accepts dispatch work for asynchronous processing.
type Enqueuer interface {
	Add(req dispatcher.Request) error
}

type Gate struct {
	log   *zap.Logger
	store Store
	auth  Authorizer
	disp  Dispatcher
	queue Enqueuer
}

// New builds a Gate. With a nil queue dispatch runs inside Process.
func New(log *zap.Logger, s Store, a Authorizer, d Dispatcher, q Enqueuer) *Gate {
	return &Gate{log: log, store: s, auth: a, disp: d, queue: q}
}

// Process marks the event as seen before anything else, so a failure later
// in the pipeline is not retried on redelivery.
func (g *Gate) Process(ctx context.Context, ev model.CastEvent) (Outcome, error) {
	key := ev.Key()
	author := ev.Data.Author
	log := g.log.With(
		zap.String("event_key", string(key)),
		zap.String("type", ev.Type),
		zap.String("username", author.Username))

	isNew, err := g.store.CheckAndMark(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check event %s: %w", key, err)
	}
	if !isNew {
		log.Info("duplicate event dropped")
		return OutcomeDuplicate, nil
	}

	if ev.Type != model.CastCreated {
		log.Info("event type ignored")
		return OutcomeIgnored, nil
	}

	if !g.auth.IsAuthorized(author.Username) {
		log.Info("unauthorized sender dropped")
		return OutcomeUnauthorized, nil
	}

	log.Info("cast received",
		zap.String("display_name", author.DisplayName),
		zap.String("text", ev.Data.Text))

	req := dispatcher.Request{Key: key, Username: author.Username, Text: ev.Data.Text}
	if g.queue != nil {
		if err := g.queue.Add(req); err != nil {
			log.Error("dispatch not queued", zap.Error(err))
			return "", fmt.Errorf("queue dispatch %s: %w", key, err)
		}
		return OutcomeQueued, nil
	}

	if _, err := g.disp.Dispatch(ctx, req); err != nil {
		log.Error("dispatch failed", zap.Error(err))
		return "", fmt.Errorf("dispatch %s: %w", key, err)
	}
	return OutcomeDispatched, nil
}
