// Package calendar renders a user's events as an iCalendar feed.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/emersion/go-ical"
)

const productID = "-//slotswap//EN"

// ErrEmpty is returned when there are no events to export. A VCALENDAR
// needs at least one component.
var ErrEmpty = errors.New("calendar is empty")

// Encode writes events as a VCALENDAR to w. Events in a pending swap are
// marked TENTATIVE so calendar clients show them as unsettled.
func Encode(w io.Writer, events []model.Event, now time.Time) error {
	if len(events) == 0 {
		return ErrEmpty
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	for i := range events {
		cal.Children = append(cal.Children, toICal(&events[i], now))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func toICal(e *model.Event, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, e.ID+"@slotswap")
	ve.Props.SetText(ical.PropSummary, e.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
	ve.Props.SetText(ical.PropCategories, string(e.Status))

	status := "CONFIRMED"
	if e.Status == model.StatusSwapPending {
		status = "TENTATIVE"
	}
	ve.Props.SetText(ical.PropStatus, status)
	return ve
}
