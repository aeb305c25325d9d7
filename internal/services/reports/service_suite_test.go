package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	reportsmocks "github.com/ponyxpress/ponyxpress/internal/services/reports/mocks"
)

type ReportsSuite struct {
	suite.Suite

	repo *reportsmocks.MockRepository
	svc  *Service

	admin   *models.Account
	carrier *models.Account
}

func (s *ReportsSuite) SetupTest() {
	s.repo = &reportsmocks.MockRepository{}
	s.svc = New(s.repo, time.UTC)
	s.admin = &models.Account{ID: 1, Role: models.RoleAdmin, Active: true}
	s.carrier = &models.Account{ID: 2, Role: models.RoleCarrier, Active: true}
}

func (s *ReportsSuite) TestExportScansCSV() {
	lat, lng := 40.0, -74.5
	at := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)
	s.repo.On("ListScansForExport", mock.Anything, time.Time{}, time.Time{}).Return([]*models.ScanExportRow{
		{ScanEvent: models.ScanEvent{ID: 1, Barcode: "ABC123", SizeClass: "small", Latitude: &lat, Longitude: &lng, ScannedAt: at}, CarrierUsername: "carrier1"},
		{ScanEvent: models.ScanEvent{ID: 2, Barcode: "B,2", SizeClass: "big", ScannedAt: at}, CarrierUsername: "carrier1"},
	}, nil).Once()

	var buf bytes.Buffer
	s.Require().NoError(s.svc.ExportScansCSV(context.Background(), s.admin, &buf, time.Time{}, time.Time{}))

	recs, err := csv.NewReader(&buf).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(recs, 3)
	s.Require().Equal(scanHeader, recs[0])
	s.Require().Equal([]string{"2024-05-01", "carrier1", "ABC123", "small", "40", "-74.5", "2024-05-01T09:15:00Z"}, recs[1])
	s.Require().Equal("B,2", recs[2][2])
	s.Require().Equal("", recs[2][4])
}

func (s *ReportsSuite) TestExportDeliveryLogsCSV() {
	dist := 1234.56
	notes := "rain"
	s.repo.On("ListDeliveryLogs", mock.Anything).Return([]*models.DeliveryLog{
		{CarrierUsername: "carrier1", PackagesDelivered: 12, RouteDistance: &dist, Notes: &notes,
			DeliveryDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), CreatedAt: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)},
	}, nil).Once()

	var buf bytes.Buffer
	s.Require().NoError(s.svc.ExportDeliveryLogsCSV(context.Background(), s.admin, &buf))
	recs, err := csv.NewReader(&buf).ReadAll()
	s.Require().NoError(err)
	s.Require().Equal([]string{"2024-05-01", "carrier1", "12", "1234.6", "rain", "2024-05-01T18:00:00Z"}, recs[1])
}

func (s *ReportsSuite) TestExportRoutesCSV() {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC)
	s.repo.On("ListRoutesForExport", mock.Anything, from, to).Return([]*models.RouteExportRow{
		{RouteTrace: models.RouteTrace{ID: 1, RouteDate: from, PathData: []byte(`[[0,0],[0,1]]`), Status: models.RouteStatusActive, CreatedAt: created, UpdatedAt: updated}, CarrierUsername: "carrier1"},
		{RouteTrace: models.RouteTrace{ID: 2, RouteDate: to, PathData: []byte(`"pathB"`), Status: models.RouteStatusActive, CreatedAt: created, UpdatedAt: updated}, CarrierUsername: "carrier2"},
	}, nil).Once()

	var buf bytes.Buffer
	s.Require().NoError(s.svc.ExportRoutesCSV(context.Background(), s.admin, &buf, from, to))

	recs, err := csv.NewReader(&buf).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(recs, 3)
	s.Require().Equal(routeHeader, recs[0])
	s.Require().Equal([]string{"2024-05-01", "carrier1", "2", "111194.9", "2024-05-01T07:00:00Z", "2024-05-01T16:30:00Z"}, recs[1])
	// непрозрачный blob: точек и длины нет
	s.Require().Equal([]string{"2024-05-02", "carrier2", "", "", "2024-05-01T07:00:00Z", "2024-05-01T16:30:00Z"}, recs[2])
}

func (s *ReportsSuite) TestExportStopsCSV() {
	photo := "ab12.jpg"
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.repo.On("ListStopsForExport", mock.Anything).Return([]*models.StopExportRow{
		{MailboxStop: models.MailboxStop{ID: 1, Latitude: 40, Longitude: -74, PhotoRef: &photo, CreatedAt: at}, CarrierUsername: "carrier1"},
		{MailboxStop: models.MailboxStop{ID: 2, Latitude: 40.5, Longitude: -74.25, CreatedAt: at}, CarrierUsername: "carrier1"},
	}, nil).Once()

	var buf bytes.Buffer
	s.Require().NoError(s.svc.ExportStopsCSV(context.Background(), s.admin, &buf))

	recs, err := csv.NewReader(&buf).ReadAll()
	s.Require().NoError(err)
	s.Require().Equal(stopHeader, recs[0])
	s.Require().Equal([]string{"carrier1", "40", "-74", "ab12.jpg", "2024-05-01T09:00:00Z"}, recs[1])
	s.Require().Equal([]string{"carrier1", "40.5", "-74.25", "", "2024-05-01T09:00:00Z"}, recs[2])
}

func (s *ReportsSuite) TestExports_AdminOnly() {
	var buf bytes.Buffer
	err := s.svc.ExportScansCSV(context.Background(), s.carrier, &buf, time.Time{}, time.Time{})
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	s.Require().Equal("admin_only", models.CodeOf(err))
	err = s.svc.ExportDeliveryLogsCSV(context.Background(), nil, &buf)
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	err = s.svc.ExportRoutesCSV(context.Background(), s.carrier, &buf, time.Time{}, time.Time{})
	s.Require().Equal("admin_only", models.CodeOf(err))
	err = s.svc.ExportStopsCSV(context.Background(), &models.Account{ID: 3, Role: models.RoleSubstitute, Active: true}, &buf)
	s.Require().Equal("admin_only", models.CodeOf(err))
	_, err = s.svc.DeliveryLogs(context.Background(), &models.Account{ID: 3, Role: models.RoleSubstitute, Active: true})
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	_, err = s.svc.Summary(context.Background(), s.carrier, time.Now())
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	s.Require().Zero(buf.Len())
	s.repo.AssertNotCalled(s.T(), "ListScansForExport", mock.Anything, mock.Anything, mock.Anything)
	s.repo.AssertNotCalled(s.T(), "ListRoutesForExport", mock.Anything, mock.Anything, mock.Anything)
	s.repo.AssertNotCalled(s.T(), "ListStopsForExport", mock.Anything)
}

func (s *ReportsSuite) TestSummary_DayInLocation() {
	loc := time.FixedZone("UTC-5", -5*3600)
	svc := New(s.repo, loc)
	now := time.Date(2024, 5, 2, 2, 0, 0, 0, time.UTC) // 21:00 May 1 local
	wantDay := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	wantStart := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	s.repo.On("Summary", mock.Anything, wantDay, wantStart).Return(&models.Summary{Date: wantDay, ScansToday: 4}, nil).Once()

	sum, err := svc.Summary(context.Background(), s.admin, now)
	s.Require().NoError(err)
	s.Require().Equal(int64(4), sum.ScansToday)
	s.repo.AssertExpectations(s.T())
}

func (s *ReportsSuite) TestDeliveryLogs() {
	s.repo.On("ListDeliveryLogs", mock.Anything).Return([]*models.DeliveryLog{{ID: 1}}, nil).Once()
	out, err := s.svc.DeliveryLogs(context.Background(), s.admin)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
}

func TestReportsSuite(t *testing.T) {
	suite.Run(t, new(ReportsSuite))
}
