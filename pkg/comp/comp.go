package comp

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

const dateLayout = "2006-01-02"

// Competition is one tracked competition from the upstream listing.
// Optional instants (registration window) are the zero time.Time when the
// upstream omits them or serves something unparseable; callers must check
// with IsZero before doing window arithmetic.
type Competition struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	City              string    `json:"city"`
	URL               string    `json:"url"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	RegistrationOpen  time.Time `json:"registration_open,omitempty"`
	RegistrationClose time.Time `json:"registration_close,omitempty"`
	CompetitorLimit   int       `json:"competitor_limit,omitempty"`
	EventIDs          []string  `json:"event_ids,omitempty"`
}

// HasLimit reports whether the competition declared a competitor cap.
func (c Competition) HasLimit() bool {
	return c.CompetitorLimit > 0
}

// Days is the competition length in days, inclusive of both ends.
func (c Competition) Days() int {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return 0
	}
	return int(c.EndDate.Sub(c.StartDate).Hours()/24) + 1
}

// IDs returns the id set of a competition list.
func IDs(comps []Competition) map[string]bool {
	ids := make(map[string]bool, len(comps))
	for _, c := range comps {
		ids[c.ID] = true
	}
	return ids
}

// Parse builds a Competition from one raw listing element. It fails when the
// id or the start/end dates are missing or unparseable; a broken
// registration window is tolerated and left as the zero time, so the rest of
// the record stays usable.
func Parse(raw gjson.Result) (Competition, error) {
	id := raw.Get("id").String()
	if id == "" {
		return Competition{}, fmt.Errorf("competition element has no id")
	}

	start, err := time.Parse(dateLayout, raw.Get("start_date").String())
	if err != nil {
		return Competition{}, fmt.Errorf("competition %s: bad start_date: %w", id, err)
	}
	end, err := time.Parse(dateLayout, raw.Get("end_date").String())
	if err != nil {
		return Competition{}, fmt.Errorf("competition %s: bad end_date: %w", id, err)
	}

	c := Competition{
		ID:              id,
		Name:            raw.Get("name").String(),
		City:            raw.Get("city").String(),
		URL:             raw.Get("url").String(),
		StartDate:       start,
		EndDate:         end,
		CompetitorLimit: int(raw.Get("competitor_limit").Int()),
	}

	if v := raw.Get("registration_open").String(); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.RegistrationOpen = t.UTC()
		}
	}
	if v := raw.Get("registration_close").String(); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.RegistrationClose = t.UTC()
		}
	}
	for _, ev := range raw.Get("event_ids").Array() {
		c.EventIDs = append(c.EventIDs, ev.String())
	}

	return c, nil
}
