package service

import "github.com/diagnosis/stays/services/stays/internal/domain"

// Clock returns the current calendar date. Completion of stays is derived
// from it.
type Clock func() domain.Date

func (c Clock) today() domain.Date {
	if c == nil {
		return domain.Today()
	}
	return c()
}
