package checksvc

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/proto"
)

// RegisterRPC exposes the service as StyleService on srv.
func (s *Service) RegisterRPC(srv *grpc.Server) {
	srv.Register("StyleService.Check", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.CheckRequest
		if err := decodeParams(raw, &req); err != nil {
			return nil, err
		}
		res, err := s.Check(ctx, req)
		if err != nil {
			return nil, err
		}
		return res.Proto(), nil
	})
	srv.Register("StyleService.RuleSet", func(ctx context.Context, raw json.RawMessage) (any, error) {
		return s.RuleSet(), nil
	})
	srv.Register("StyleService.Reload", func(ctx context.Context, raw json.RawMessage) (any, error) {
		return s.Reload(ctx)
	})
	srv.Register("StyleService.ListReports", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var page proto.Pagination
		if err := decodeParams(raw, &page); err != nil {
			return nil, err
		}
		return s.ListReports(ctx, page)
	})
	srv.Register("StyleService.Health", func(ctx context.Context, raw json.RawMessage) (any, error) {
		if !s.RuleSet().Loaded && s.load != nil {
			return proto.HealthCheckResponse{Status: "NOT_SERVING"}, nil
		}
		return proto.HealthCheckResponse{Status: "SERVING"}, nil
	})
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decoding params: %w", apperrors.ErrInvalidInput, err)
	}
	return nil
}
