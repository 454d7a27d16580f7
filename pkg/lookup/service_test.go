package lookup

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Fetcher,Store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/iziplay/saime-api/pkg/cache"
	"github.com/iziplay/saime-api/pkg/document"
	"github.com/iziplay/saime-api/pkg/identity"
	"github.com/iziplay/saime-api/pkg/lookup/mocks"
	"github.com/iziplay/saime-api/pkg/metrics"
	"github.com/iziplay/saime-api/pkg/saime"
)

const (
	signature = "f39269ca65f373d7d3aa71ae13a5e09739b7d8ef"
	entropy   = "780ff1dee0d1695f3ebe69137732355ebe1be7251f481f5f46dd7149114a4969"
)

const registryPage = `
<form id="dregistro-form">
<input name="Dregistro[letra]" id="Dregistro_letra" type="text" value="V">
<input name="Dregistro[num_cedula]" type="text" value="12345678">
<input name="Dregistro[primernombre]" type="text" value="JUAN">
<input name="Dregistro[segundonombre]" type="text" value="">
<input name="Dregistro[primerapellido]" type="text" value="PEREZ">
<input name="Dregistro[segundoapellido]" type="text" value="GOMEZ">
<input name="Dregistro[fecha_nac]" type="text" value="15/3/1990">
<input name="Dregistro[sexo]" type="text" value="M">
</form>
`

var juan = identity.Record{
	Nationality:   "V",
	Document:      "12345678",
	FirstName:     "JUAN",
	MiddleName:    "-",
	FirstSurname:  "PEREZ",
	SecondSurname: "GOMEZ",
	BirthDate:     "15 de marzo de 1990",
	Gender:        "Hombre",
}

type ServiceSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockFetcher *mocks.MockFetcher
	mockStore   *mocks.MockStore
	metrics     *metrics.Metrics
	service     *Service
	ctx         context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockFetcher = mocks.NewMockFetcher(s.ctrl)
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()

	var err error
	s.service, err = New(
		s.mockFetcher,
		WithStore(s.mockStore),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TestNew() {
	s.Run("nil fetcher returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "fetcher is required")
	})

	s.Run("store is optional", func() {
		svc, err := New(s.mockFetcher)
		s.NoError(err)
		s.Nil(svc.store)
	})
}

func (s *ServiceSuite) TestCacheHit() {
	payload, err := json.Marshal(juan)
	s.Require().NoError(err)

	s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return(payload, nil)

	record, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678})
	s.Require().NoError(err)
	s.Equal(juan, record)

	counters := s.service.Stats()
	s.Equal(int64(1), counters.Lookups)
	s.Equal(int64(1), counters.CacheHits)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues(metrics.OutcomeHit)))
}

func (s *ServiceSuite) TestCacheHitPartialEntry() {
	s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return([]byte(`{"document":"12345678"}`), nil)

	record, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678})
	s.Require().NoError(err)

	want := identity.Empty()
	want.Document = "12345678"
	s.Equal(want, record)
}

func (s *ServiceSuite) TestCacheMiss() {
	s.Run("missing entry fetches without writing", func() {
		s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return(nil, cache.ErrNotFound)
		s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(registryPage, nil)

		record, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678})
		s.Require().NoError(err)
		s.Equal(juan, record)
	})

	s.Run("undecryptable entry is a miss", func() {
		s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return(nil, errors.New("open cache entry: decryption failed"))
		s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(registryPage, nil)

		record, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678})
		s.Require().NoError(err)
		s.Equal(juan, record)
	})

	s.Run("corrupt entry is a miss", func() {
		s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return([]byte("{not json"), nil)
		s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(registryPage, nil)

		record, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678})
		s.Require().NoError(err)
		s.Equal(juan, record)
	})

	s.Equal(int64(3), s.service.Stats().CacheMisses)
}

func (s *ServiceSuite) TestCacheWrite() {
	s.Run("stores the record when asked", func() {
		want, err := json.Marshal(juan)
		s.Require().NoError(err)

		s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return(nil, cache.ErrNotFound)
		s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(registryPage, nil)
		s.mockStore.EXPECT().Write(gomock.Any(), signature, want, entropy).Return(nil)

		record, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678, Cache: true})
		s.Require().NoError(err)
		s.Equal(juan, record)
	})

	s.Run("write failure still returns the record", func() {
		s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return(nil, cache.ErrNotFound)
		s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(registryPage, nil)
		s.mockStore.EXPECT().Write(gomock.Any(), signature, gomock.Any(), entropy).Return(errors.New("disk full"))

		record, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678, Cache: true})
		s.Require().NoError(err)
		s.Equal(juan, record)
		s.Equal(int64(1), s.service.Stats().CacheWriteFailures)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheWriteFailures))
	})
}

func (s *ServiceSuite) TestFetchFailure() {
	upstream := &saime.FetchError{Category: saime.ErrorOutage, StatusCode: 503, Message: "registry failed"}

	s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return(nil, cache.ErrNotFound)
	s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return("", upstream)

	_, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678, Cache: true})
	s.Require().Error(err)

	var fe *saime.FetchError
	s.True(errors.As(err, &fe))
	s.Equal(saime.ErrorOutage, fe.Category)

	counters := s.service.Stats()
	s.Equal(int64(1), counters.Failures)
	s.Equal(int64(0), counters.Lookups)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues(metrics.OutcomeError)))
}

func (s *ServiceSuite) TestTypeIsNormalized() {
	s.mockStore.EXPECT().Read(gomock.Any(), signature, entropy).Return(nil, cache.ErrNotFound)
	s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(registryPage, nil)

	_, err := s.service.Lookup(s.ctx, Request{Type: " v ", Document: 12345678})
	s.NoError(err)
}

func (s *ServiceSuite) TestDeceased() {
	s.mockStore.EXPECT().Read(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, cache.ErrNotFound)
	s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").
		Return(registryPage+"<p>Ciudadano FALLECIDO</p>", nil)

	record, err := s.service.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678})
	s.Require().NoError(err)
	s.True(record.Deceased)
}

func (s *ServiceSuite) TestWithoutStore() {
	svc, err := New(s.mockFetcher)
	s.Require().NoError(err)

	s.mockFetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(registryPage, nil)

	record, err := svc.Lookup(s.ctx, Request{Type: document.TypeVenezuelan, Document: 12345678, Cache: true})
	s.Require().NoError(err)
	s.Equal(juan, record)

	_, err = svc.CacheStats(s.ctx)
	s.ErrorIs(err, errors.ErrUnsupported)
}
