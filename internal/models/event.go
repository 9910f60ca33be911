package models

// EventColumns is the attribute header written for event tables, in order
var EventColumns = []string{"COUNTRY", "ACTOR1", "EVENT_TYPE", "EVENT_DATE", "LONGITUDE", "LATITUDE"}

// EventRecord represents one conflict event row
type EventRecord struct {
	Country   string  `json:"country"`
	Actor1    string  `json:"actor1"`
	EventType string  `json:"event_type"`
	EventDate string  `json:"event_date"` // "<day> <MonthName> <year>" in raw data
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}
