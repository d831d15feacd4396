package store

import (
	"github.com/trustbrokerd/trustbroker/internal/request"
)

// requestRow is the gorm-mapped row for the "requests" table; the schema
// itself is owned by the embedded migrations, not by AutoMigrate.
type requestRow struct {
	ID            uint64 `gorm:"column:id;primaryKey"`
	ApplicationID string `gorm:"column:application_id"`
	Feature       uint64 `gorm:"column:feature"`
	Timestamp     int64  `gorm:"column:timestamp"`
	Answer        int    `gorm:"column:answer"`
}

func (requestRow) TableName() string { return "requests" }

func (row requestRow) toRequest() request.Request {
	return request.Request{
		From:    request.ApplicationID(row.ApplicationID),
		Feature: request.Feature(row.Feature),
		When:    row.Timestamp,
		Answer:  request.Answer(row.Answer != 0),
	}
}

func fromRequest(r request.Request) requestRow {
	answer := 0
	if r.Answer {
		answer = 1
	}
	return requestRow{
		ApplicationID: string(r.From),
		Feature:       uint64(r.Feature),
		Timestamp:     r.When,
		Answer:        answer,
	}
}
