package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"timesheets/internal/core"
)

// RoutingKeyPrefix prefixes the routing key of every timesheet event.
const RoutingKeyPrefix = "timesheet."

// TimesheetEvent announces a timesheet status change. It carries ids only;
// consumers load what they need from the database.
type TimesheetEvent struct {
	TimesheetID string               `json:"timesheet_id"`
	UserID      string               `json:"user_id"`
	WeekStart   string               `json:"week_start"`
	Status      core.TimesheetStatus `json:"status"`
	ActorID     string               `json:"actor_id,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

// NewTimesheetEvent describes the current state of ts as changed by actorID.
func NewTimesheetEvent(ts core.Timesheet, actorID string) *TimesheetEvent {
	return &TimesheetEvent{
		TimesheetID: ts.ID,
		UserID:      ts.UserID,
		WeekStart:   ts.WeekStart.String(),
		Status:      ts.Status,
		ActorID:     actorID,
		Reason:      ts.RejectionReason,
		Timestamp:   time.Now(),
	}
}

// RoutingKey is "timesheet.<status>".
func (e *TimesheetEvent) RoutingKey() string {
	return RoutingKeyFor(e.Status)
}

func RoutingKeyFor(status core.TimesheetStatus) string {
	return RoutingKeyPrefix + string(status)
}

func (e *TimesheetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TimesheetEventFromJSON(data []byte) (*TimesheetEvent, error) {
	var e TimesheetEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.TimesheetID == "" {
		return nil, fmt.Errorf("timesheet event without timesheet_id")
	}
	if !e.Status.Valid() {
		return nil, fmt.Errorf("timesheet event with invalid status %q", e.Status)
	}
	return &e, nil
}
