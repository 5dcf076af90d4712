// Package notify renders detected events into channel messages and delivers
// them. The watch core only decides what to send and when; everything about
// rendering and transport lives here.
package notify

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/tomasfh/compwatch/internal/utils"
	"github.com/tomasfh/compwatch/pkg/comp"
)

// Channel is one configured delivery target.
type Channel interface {
	Name() string
	SendNew(ctx context.Context, comps []comp.Competition) error
	SendRegistrationUpcoming(ctx context.Context, c comp.Competition) error
	SendRegistrationOpen(ctx context.Context, c comp.Competition) error
	SendCapacityAlert(ctx context.Context, c comp.Competition, liveCount int) error
}

// Dispatcher fans an event out to every configured channel. A dispatch
// counts as delivered when at least one channel accepted it.
type Dispatcher struct {
	channels []Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

// Channels reports how many channels are configured.
func (d *Dispatcher) Channels() int { return len(d.channels) }

func (d *Dispatcher) NotifyNew(ctx context.Context, comps []comp.Competition) bool {
	return d.send(func(ch Channel) error { return ch.SendNew(ctx, comps) })
}

func (d *Dispatcher) NotifyRegistrationUpcoming(ctx context.Context, c comp.Competition) bool {
	return d.send(func(ch Channel) error { return ch.SendRegistrationUpcoming(ctx, c) })
}

func (d *Dispatcher) NotifyRegistrationOpen(ctx context.Context, c comp.Competition) bool {
	return d.send(func(ch Channel) error { return ch.SendRegistrationOpen(ctx, c) })
}

func (d *Dispatcher) NotifyCapacityAlert(ctx context.Context, c comp.Competition, liveCount int) bool {
	return d.send(func(ch Channel) error { return ch.SendCapacityAlert(ctx, c, liveCount) })
}

func (d *Dispatcher) send(deliver func(Channel) error) bool {
	delivered := false
	for _, ch := range d.channels {
		if err := deliver(ch); err != nil {
			utils.Log.Warnf("Delivery to %s failed: %v", ch.Name(), err)
			continue
		}
		delivered = true
	}
	return delivered
}

// newHTTPClient builds the retrying client both channels use.
func newHTTPClient(timeout time.Duration) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 2
	retryClient.HTTPClient.Timeout = timeout
	return retryClient
}

// dateLine renders the competition dates the way announcements show them:
// a single date, or a range with the inclusive day count.
func dateLine(c comp.Competition) string {
	start := c.StartDate.Format("2006-01-02")
	end := c.EndDate.Format("2006-01-02")
	if start == end {
		return start
	}
	return start + " → " + end
}
