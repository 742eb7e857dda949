package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

type ReportService struct {
	store    CatalogStore
	narrator Narrator
	log      *logrus.Entry
}

// NewReportService builds the analytics service. narrator may be nil, in
// which case reports carry figures only.
func NewReportService(store CatalogStore, narrator Narrator) *ReportService {
	return &ReportService{
		store:    store,
		narrator: narrator,
		log:      logrus.WithField("component", "report"),
	}
}

func (s *ReportService) CatalogReport(ctx context.Context) Result[*models.CatalogReport] {
	ctx, span := tracer.Start(ctx, "ReportService.CatalogReport")
	defer span.End()

	storeCtx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	summaries, err := s.store.CategorySummaries(storeCtx)
	if err != nil {
		f := classify(err, "no catalog data")
		record(span, f)
		return FailWith[*models.CatalogReport](f)
	}
	report := models.NewCatalogReport(summaries)

	if s.narrator != nil && len(report.Categories) > 0 {
		narrative, err := s.narrator.GenerateCatalogReport(ctx, report.Categories)
		if err != nil {
			s.log.WithError(err).Warn("catalog narrative unavailable")
		} else {
			report.Narrative = narrative
		}
	}
	return Ok(report)
}
