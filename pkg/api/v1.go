package routing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/iziplay/saime-api/pkg/cache"
	"github.com/iziplay/saime-api/pkg/document"
	"github.com/iziplay/saime-api/pkg/identity"
	"github.com/iziplay/saime-api/pkg/lookup"
	"github.com/iziplay/saime-api/pkg/saime"
)

type PlainOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type LookupInput struct {
	Type     string `path:"type" pattern:"^(?i:v|e|dni)$" doc:"Document type: V, E or DNI (case-insensitive)"`
	Document string `path:"document" doc:"Document number, thousands separators allowed" example:"12345678"`
	Cache    bool   `query:"cache" default:"false" doc:"Store the fresh result in the encrypted cache"`
}

type LookupOutput struct {
	Body identity.Record
}

type StatsOutput struct {
	Body struct {
		Lookups lookup.Counters `json:"lookups"`
		Cache   *cache.Stats    `json:"cache,omitempty"`
	}
}

func Setup(api huma.API, svc *lookup.Service, jwtSecret string) {
	api.UseMiddleware(authMiddleware(api, jwtSecret))

	huma.Register(api, huma.Operation{
		OperationID: "HealthCheck",
		Method:      "GET",
		Path:        "/healthz",
		Summary:     "Health check",
		Description: "Check if the API is running",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*PlainOutput, error) {
		return &PlainOutput{
			ContentType: "text/plain",
			Body:        []byte("OK"),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetStatistics",
		Method:      "GET",
		Path:        "/api/v1/statistics",
		Summary:     "Get statistics",
		Description: "Get lookup counters and the content of the cache backend",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *struct{}) (*StatsOutput, error) {
		resp := &StatsOutput{}
		resp.Body.Lookups = svc.Stats()

		stats, err := svc.CacheStats(ctx)
		switch {
		case err == nil:
			resp.Body.Cache = &stats
		case !errors.Is(err, errors.ErrUnsupported):
			return nil, huma.Error503ServiceUnavailable("cache statistics are unavailable, please retry later", err)
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "LookupDocument",
		Method:      "GET",
		Path:        "/api/v1/saime/{type}/{document}",
		Summary:     "Look up a document",
		Description: "Get the identity registered for a document in the SAIME civil registry",
		Tags:        []string{"Lookup"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, input *LookupInput) (*LookupOutput, error) {
		docType, err := document.ParseType(input.Type)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid document type", err)
		}
		number, err := document.ParseNumber(input.Document)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid document number", err)
		}

		record, err := svc.Lookup(ctx, lookup.Request{
			Type:     docType,
			Document: number,
			Cache:    input.Cache,
		})
		if err != nil {
			if saime.IsTimeout(err) {
				return nil, huma.Error504GatewayTimeout("registry did not answer in time")
			}
			slog.Error("Lookup failed", "error", err)
			return nil, huma.Error502BadGateway("registry request failed")
		}

		return &LookupOutput{Body: record}, nil
	})
}
