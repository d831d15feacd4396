package store

import (
	"fmt"

	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/trusterr"
)

// Query filters the Store's past decisions. Its lifecycle is
// armed -> (has_more_results <-> eor) | error:
//
//   - Predicates compose as conjunctions and may be set only while armed
//     or between executions.
//   - Execute is required before Current/Next/Erase.
//   - Erase removes the record the cursor points at and advances.
//
// A Query holds a back-reference to its Store and must not outlive it.
type Query struct {
	store *Store

	appID    *request.ApplicationID
	feature  *request.Feature
	interval *[2]int64
	answer   *request.Answer

	executed bool
	err      error
	rows     []requestRow
	idx      int
}

// ForApplicationID restricts results to the given application id.
func (q *Query) ForApplicationID(id request.ApplicationID) *Query {
	q.appID = &id
	return q
}

// ForFeature restricts results to the given feature.
func (q *Query) ForFeature(f request.Feature) *Query {
	q.feature = &f
	return q
}

// ForInterval restricts results to lo <= when <= hi (inclusive both ends).
func (q *Query) ForInterval(lo, hi int64) *Query {
	q.interval = &[2]int64{lo, hi}
	return q
}

// ForAnswer restricts results to the given answer.
func (q *Query) ForAnswer(a request.Answer) *Query {
	q.answer = &a
	return q
}

// All clears every predicate, matching everything.
func (q *Query) All() *Query {
	q.appID = nil
	q.feature = nil
	q.interval = nil
	q.answer = nil
	return q
}

// Execute runs the query against a snapshot of the store consistent with
// all writes that happen-before this call. Results enumerate in
// descending `when` order, so the most recent matching decision is always
// seen first — deliberately, not as an artifact of insertion order.
func (q *Query) Execute() error {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	db := q.store.db.Model(&requestRow{})
	if q.appID != nil {
		db = db.Where("application_id = ?", string(*q.appID))
	}
	if q.feature != nil {
		db = db.Where("feature = ?", uint64(*q.feature))
	}
	if q.interval != nil {
		db = db.Where("timestamp >= ? AND timestamp <= ?", q.interval[0], q.interval[1])
	}
	if q.answer != nil {
		v := 0
		if *q.answer {
			v = 1
		}
		db = db.Where("answer = ?", v)
	}

	var rows []requestRow
	if err := db.Order("timestamp DESC").Find(&rows).Error; err != nil {
		q.err = fmt.Errorf("%w: %v", trusterr.ErrQueryInErrorState, err)
		return q.err
	}

	q.rows = rows
	q.idx = 0
	q.executed = true
	return nil
}

// HasMore reports whether Current/Erase can be called without error.
func (q *Query) HasMore() bool {
	return q.executed && q.err == nil && q.idx < len(q.rows)
}

// IsEOR reports end-of-results: executed, no error, and the cursor has
// advanced past the last row.
func (q *Query) IsEOR() bool {
	return q.executed && q.err == nil && q.idx >= len(q.rows)
}

// Current returns the request the cursor currently points at.
func (q *Query) Current() (request.Request, error) {
	if err := q.requireReady(); err != nil {
		return request.Request{}, err
	}
	if !q.HasMore() {
		return request.Request{}, trusterr.ErrNoCurrentResult
	}
	return q.rows[q.idx].toRequest(), nil
}

// Next advances the cursor by one position.
func (q *Query) Next() error {
	if err := q.requireReady(); err != nil {
		return err
	}
	if !q.HasMore() {
		return trusterr.ErrNoCurrentResult
	}
	q.idx++
	return nil
}

// Erase removes the record the cursor points at and advances.
func (q *Query) Erase() error {
	if err := q.requireReady(); err != nil {
		return err
	}
	if !q.HasMore() {
		return trusterr.ErrNoCurrentResult
	}

	row := q.rows[q.idx]

	q.store.mu.Lock()
	err := q.store.db.Delete(&requestRow{}, "id = ?", row.ID).Error
	q.store.mu.Unlock()
	if err != nil {
		q.err = fmt.Errorf("%w: %v", trusterr.ErrQueryInErrorState, err)
		return q.err
	}

	q.rows = append(q.rows[:q.idx], q.rows[q.idx+1:]...)
	return nil
}

func (q *Query) requireReady() error {
	if q.err != nil {
		return q.err
	}
	if !q.executed {
		return trusterr.ErrQueryInErrorState
	}
	return nil
}
