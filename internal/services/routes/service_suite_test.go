package routes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	brokermocks "github.com/ponyxpress/ponyxpress/internal/broker/mocks"
	"github.com/ponyxpress/ponyxpress/internal/broker/messages"
	cachemocks "github.com/ponyxpress/ponyxpress/internal/cache/mocks"
	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	routesmocks "github.com/ponyxpress/ponyxpress/internal/services/routes/mocks"
)

type LedgerSuite struct {
	suite.Suite

	repo   *routesmocks.MockRepository
	cache  *cachemocks.MockVersionedCache
	events *brokermocks.MockPublisher
	l      *Ledger

	day     time.Time
	admin   *models.Account
	carrier *models.Account
	sub     *models.Account
}

func (s *LedgerSuite) SetupTest() {
	s.repo = &routesmocks.MockRepository{}
	s.cache = &cachemocks.MockVersionedCache{}
	s.events = &brokermocks.MockPublisher{}
	s.l = New(s.repo, s.cache, time.Minute).WithEvents(s.events, "")

	s.day = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.admin = &models.Account{ID: 1, Role: models.RoleAdmin, Active: true}
	s.carrier = &models.Account{ID: 2, Role: models.RoleCarrier, Active: true}
	s.sub = &models.Account{ID: 3, Role: models.RoleSubstitute, Active: true}
}

func (s *LedgerSuite) TestSaveTrace_OK_InvalidatesAndPublishes() {
	path := json.RawMessage(`{"path":"A"}`)
	s.repo.On("SaveRouteTrace", mock.Anything, int64(2), s.day, path).Return(int64(10), nil).Once()
	s.cache.On("Bump", mock.Anything, "route:2:2024-05-01:ver", activeVersionTTL).Return(nil).Once()
	s.cache.On("Del", mock.Anything, []string{"route:2:2024-05-01:active"}).Return(nil).Once()
	s.events.On("PublishJSON", mock.Anything, messages.TopicRouteSaved, []byte("2"),
		mock.MatchedBy(func(ev messages.RouteSaved) bool {
			return ev.RouteID == 10 && ev.CarrierID == 2 && ev.Date == "2024-05-01"
		})).Return(nil).Once()

	id, err := s.l.SaveTrace(context.Background(), s.carrier, 2, s.day.Add(15*time.Hour), path)
	s.Require().NoError(err)
	s.Require().Equal(int64(10), id)
	s.repo.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
	s.events.AssertExpectations(s.T())
}

func (s *LedgerSuite) TestSaveTrace_CacheAndPublishFailuresIgnored() {
	path := json.RawMessage(`[1,2]`)
	s.repo.On("SaveRouteTrace", mock.Anything, int64(2), s.day, path).Return(int64(11), nil).Once()
	s.cache.On("Bump", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
	s.cache.On("Del", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
	s.events.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	id, err := s.l.SaveTrace(context.Background(), s.carrier, 2, s.day, path)
	s.Require().NoError(err)
	s.Require().Equal(int64(11), id)
}

func (s *LedgerSuite) TestSaveTrace_CrossCarrierDeniedBeforeStorage() {
	path := json.RawMessage(`{}`)
	for _, actor := range []*models.Account{s.carrier, s.sub, s.admin, nil} {
		_, err := s.l.SaveTrace(context.Background(), actor, 99, s.day, path)
		s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	}
	s.repo.AssertNotCalled(s.T(), "SaveRouteTrace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *LedgerSuite) TestSaveTrace_Validation() {
	_, err := s.l.SaveTrace(context.Background(), s.carrier, 2, s.day, nil)
	s.Require().ErrorIs(err, models.ErrEmptyPath)
	_, err = s.l.SaveTrace(context.Background(), s.carrier, 2, s.day, json.RawMessage(`null`))
	s.Require().ErrorIs(err, models.ErrEmptyPath)
	_, err = s.l.SaveTrace(context.Background(), s.carrier, 2, s.day, json.RawMessage(`{not json`))
	s.Require().ErrorIs(err, models.ErrInvalidPath)
	s.repo.AssertNotCalled(s.T(), "SaveRouteTrace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *LedgerSuite) TestSaveTrace_StorageUnavailable() {
	s.repo.On("SaveRouteTrace", mock.Anything, int64(2), s.day, mock.Anything).Return(int64(0), models.ErrStorageUnavailable).Once()

	_, err := s.l.SaveTrace(context.Background(), s.carrier, 2, s.day, json.RawMessage(`{}`))
	s.Require().Equal(models.KindStorageUnavailable, models.KindOf(err))
	s.cache.AssertNotCalled(s.T(), "Del", mock.Anything, mock.Anything)
	s.events.AssertNotCalled(s.T(), "PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *LedgerSuite) TestGetActive_CacheHit_NoDB() {
	r := &models.RouteTrace{ID: 5, CarrierID: 2, RouteDate: s.day, PathData: json.RawMessage(`{"path":"B"}`), Status: models.RouteStatusActive}
	b, _ := json.Marshal(r)
	s.cache.On("Get", mock.Anything, "route:2:2024-05-01:active").Return(b, true, nil).Once()

	got, ok, err := s.l.GetActive(context.Background(), s.carrier, 2, s.day)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal(int64(5), got.ID)
	s.repo.AssertNotCalled(s.T(), "GetActiveRoute", mock.Anything, mock.Anything, mock.Anything)
}

func (s *LedgerSuite) TestGetActive_MissLoadsAndSets() {
	r := &models.RouteTrace{ID: 6, CarrierID: 2, Status: models.RouteStatusActive}
	s.cache.On("Get", mock.Anything, "route:2:2024-05-01:active").Return(nil, false, nil).Once()
	s.cache.On("Version", mock.Anything, "route:2:2024-05-01:ver").Return(int64(3), nil).Once()
	s.repo.On("GetActiveRoute", mock.Anything, int64(2), s.day).Return(r, nil).Once()
	s.cache.On("SetIfVersion", mock.Anything, "route:2:2024-05-01:ver", int64(3), "route:2:2024-05-01:active", mock.Anything, time.Minute).
		Return(true, nil).Once()

	got, ok, err := s.l.GetActive(context.Background(), s.carrier, 2, s.day)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal(int64(6), got.ID)
	s.cache.AssertExpectations(s.T())
}

func (s *LedgerSuite) TestGetActive_CacheDown_NoFill() {
	r := &models.RouteTrace{ID: 6, CarrierID: 2, Status: models.RouteStatusActive}
	s.cache.On("Get", mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down")).Once()
	s.cache.On("Version", mock.Anything, mock.Anything).Return(int64(0), errors.New("redis down")).Once()
	s.repo.On("GetActiveRoute", mock.Anything, int64(2), s.day).Return(r, nil).Once()

	got, ok, err := s.l.GetActive(context.Background(), s.carrier, 2, s.day)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal(int64(6), got.ID)
	s.cache.AssertNotCalled(s.T(), "SetIfVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *LedgerSuite) TestGetActive_None() {
	s.cache.On("Get", mock.Anything, mock.Anything).Return(nil, false, nil).Once()
	s.cache.On("Version", mock.Anything, mock.Anything).Return(int64(0), nil).Once()
	s.repo.On("GetActiveRoute", mock.Anything, int64(2), s.day).Return(nil, models.ErrNotFound).Once()

	got, ok, err := s.l.GetActive(context.Background(), s.carrier, 2, s.day)
	s.Require().NoError(err)
	s.Require().False(ok)
	s.Require().Nil(got)
	s.cache.AssertNotCalled(s.T(), "SetIfVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *LedgerSuite) TestGetActive_Visibility() {
	s.cache.On("Get", mock.Anything, mock.Anything).Return(nil, false, nil)
	s.cache.On("Version", mock.Anything, mock.Anything).Return(int64(0), nil)
	s.repo.On("GetActiveRoute", mock.Anything, int64(2), s.day).Return(nil, models.ErrNotFound)

	_, _, err := s.l.GetActive(context.Background(), s.sub, 2, s.day)
	s.Require().NoError(err)

	_, _, err = s.l.GetActive(context.Background(), &models.Account{ID: 4, Role: models.RoleCarrier, Active: true}, 2, s.day)
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
}

func (s *LedgerSuite) TestListForDate_Split() {
	all := []*models.RouteTrace{{ID: 1}, {ID: 2}}
	s.repo.On("ListActiveRoutes", mock.Anything, s.day, (*int64)(nil)).Return(all, nil).Twice()
	own := int64(2)
	s.repo.On("ListActiveRoutes", mock.Anything, s.day, &own).Return(all[:1], nil).Once()

	out, err := s.l.ListForDate(context.Background(), s.admin, s.day)
	s.Require().NoError(err)
	s.Require().Len(out, 2)

	out, err = s.l.ListForDate(context.Background(), s.sub, s.day)
	s.Require().NoError(err)
	s.Require().Len(out, 2)

	out, err = s.l.ListForDate(context.Background(), s.carrier, s.day)
	s.Require().NoError(err)
	s.Require().Len(out, 1)

	_, err = s.l.ListForDate(context.Background(), nil, s.day)
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	s.repo.AssertExpectations(s.T())
}

func (s *LedgerSuite) TestHistory() {
	s.repo.On("RouteHistory", mock.Anything, int64(2), s.day).Return([]*models.RouteTrace{{ID: 2}, {ID: 1}}, nil).Once()

	out, err := s.l.History(context.Background(), s.carrier, 2, s.day)
	s.Require().NoError(err)
	s.Require().Len(out, 2)

	_, err = s.l.History(context.Background(), s.carrier, 7, s.day)
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}
