package calendar

import (
	"bytes"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	req := require.New(t)
	start := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "e1", Title: "Morning shift", StartTime: start, EndTime: start.Add(2 * time.Hour), Status: model.StatusBusy},
		{ID: "e2", Title: "Late shift", StartTime: start.Add(8 * time.Hour), EndTime: start.Add(10 * time.Hour), Status: model.StatusSwapPending},
	}

	var buf bytes.Buffer
	req.NoError(Encode(&buf, events, start.Add(-time.Hour)))
	req.Contains(buf.String(), "BEGIN:VCALENDAR")

	cal, err := ical.NewDecoder(&buf).Decode()
	req.NoError(err)
	vevents := cal.Events()
	req.Len(vevents, 2)

	summary, err := vevents[0].Props.Text(ical.PropSummary)
	req.NoError(err)
	req.Equal("Morning shift", summary)

	dtstart, err := vevents[0].DateTimeStart(time.UTC)
	req.NoError(err)
	req.True(start.Equal(dtstart))

	status, err := vevents[1].Props.Text(ical.PropStatus)
	req.NoError(err)
	req.Equal("TENTATIVE", status)
}

func TestEncode_NoEvents(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	err := Encode(&buf, nil, time.Now())
	req.ErrorIs(err, ErrEmpty)
	req.Zero(buf.Len())
}
