// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/cfrecall/internal/recall"
)

// DateLayout is the YYYYMMDD form used in file names and partitions.
const DateLayout = "20060102"

// ErrInvalidDate is returned for dates not in YYYYMMDD form.
var ErrInvalidDate = errors.New("invalid date")

// Batch is one day of interactions.
type Batch struct {
	Date         string
	Interactions []recall.Interaction
	// Skipped counts rows dropped for a missing user, item or signal.
	Skipped int
	// Source names where the rows came from: a file path, a table, or "none".
	Source string
}

// Empty reports whether the batch carries no interactions.
func (b Batch) Empty() bool { return len(b.Interactions) == 0 }

// Source fetches the interactions for a date (YYYYMMDD).
type Source interface {
	Fetch(ctx context.Context, date string) (Batch, error)
}

// ParseDate parses a YYYYMMDD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate formats t as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current date minus lagDays, formatted YYYYMMDD.
func Today(now time.Time, lagDays int) string {
	return FormatDate(now.AddDate(0, 0, -lagDays))
}

// DateRange returns every date from start to end inclusive. End before
// start yields nil.
func DateRange(start, end string) ([]string, error) {
	s, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return nil, err
	}

	var dates []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		dates = append(dates, FormatDate(d))
	}
	return dates, nil
}
