// Package checksvctest provides in-memory stand-ins for the checker
// service's optional backends.
package checksvctest

import (
	"context"
	"net/http"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/proto"
)

// Definitions is a small rule set: "e-mail" should be "email".
func Definitions() terminology.Definitions {
	return terminology.Definitions{
		Prefilter: true,
		Rules: []terminology.RuleDefinition{
			{Accept: "email", Groups: []terminology.GroupDefinition{
				{Patterns: []terminology.PatternDefinition{{Text: "e-mail"}}},
			}},
		},
	}
}

// Engine returns an engine with Definitions compiled in.
func Engine() (*checker.Engine, error) {
	rs, err := terminology.Compile(Definitions())
	if err != nil {
		return nil, err
	}
	return checker.New(rs), nil
}

// Store keeps reports in memory.
type Store struct {
	mu      sync.Mutex
	reports []proto.CheckResponse
	Err     error
}

func (s *Store) Save(_ context.Context, resp *proto.CheckResponse) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	r := *resp
	r.ReportID = int64(len(s.reports) + 1)
	s.reports = append(s.reports, r)
	return r.ReportID, nil
}

func (s *Store) Get(_ context.Context, id int64) (*proto.CheckResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.reports)) {
		return nil, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "report %d not found", id)
	}
	r := s.reports[id-1]
	return &r, nil
}

func (s *Store) List(_ context.Context, page proto.Pagination) ([]proto.ReportSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []proto.ReportSummary
	for i := len(s.reports) - 1 - int(page.Offset); i >= 0 && len(out) < int(page.Limit); i-- {
		r := s.reports[i]
		out = append(out, proto.ReportSummary{
			ID:             r.ReportID,
			Title:          r.Title,
			RuleSetVersion: r.RuleSetVersion,
			Units:          r.Units,
			Errors:         r.Errors,
			Warnings:       r.Warnings,
		})
	}
	return out, nil
}
