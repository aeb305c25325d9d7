package stops

import (
	"context"
	"math"
	"testing"

	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	stopsmocks "github.com/ponyxpress/ponyxpress/internal/services/stops/mocks"
)

type RegistrySuite struct {
	suite.Suite

	repo *stopsmocks.MockRepository
	r    *Registry

	admin   *models.Account
	carrier *models.Account
	sub     *models.Account
}

func (s *RegistrySuite) SetupTest() {
	s.repo = &stopsmocks.MockRepository{}
	s.r = New(s.repo)
	s.admin = &models.Account{ID: 1, Role: models.RoleAdmin, Active: true}
	s.carrier = &models.Account{ID: 2, Role: models.RoleCarrier, Active: true}
	s.sub = &models.Account{ID: 3, Role: models.RoleSubstitute, Active: true}
}

func (s *RegistrySuite) TestUpsert_CreatedThenExisting() {
	photo := "p1.jpg"
	s.repo.On("UpsertStop", mock.Anything, int64(2), 40.0, -74.0, &photo).Return(int64(7), true, nil).Once()
	s.repo.On("UpsertStop", mock.Anything, int64(2), 40.0, -74.0, (*string)(nil)).Return(int64(7), false, nil).Once()

	id, created, err := s.r.Upsert(context.Background(), s.carrier, 2, 40, -74, &photo)
	s.Require().NoError(err)
	s.Require().True(created)
	s.Require().Equal(int64(7), id)

	id, created, err = s.r.Upsert(context.Background(), s.carrier, 2, 40, -74, nil)
	s.Require().NoError(err)
	s.Require().False(created)
	s.Require().Equal(int64(7), id)
	s.repo.AssertExpectations(s.T())
}

func (s *RegistrySuite) TestUpsert_InvalidCoordinate() {
	for _, c := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -180.01}, {math.NaN(), 0}, {0, math.Inf(-1)}} {
		_, _, err := s.r.Upsert(context.Background(), s.carrier, 2, c[0], c[1], nil)
		s.Require().ErrorIs(err, models.ErrInvalidCoordinate)
	}
	s.repo.AssertNotCalled(s.T(), "UpsertStop", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *RegistrySuite) TestUpsert_Denied() {
	_, _, err := s.r.Upsert(context.Background(), s.carrier, 9, 1, 1, nil)
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	_, _, err = s.r.Upsert(context.Background(), s.sub, 9, 1, 1, nil)
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	_, _, err = s.r.Upsert(context.Background(), nil, 9, 1, 1, nil)
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))
	s.repo.AssertNotCalled(s.T(), "UpsertStop", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *RegistrySuite) TestUpsert_AdminMayManageAnyStop() {
	s.repo.On("UpsertStop", mock.Anything, int64(9), 1.0, 1.0, (*string)(nil)).Return(int64(1), true, nil).Once()
	_, _, err := s.r.Upsert(context.Background(), s.admin, 9, 1, 1, nil)
	s.Require().NoError(err)
}

func (s *RegistrySuite) TestList_Visibility() {
	all := []*models.MailboxStop{{ID: 1, CarrierID: 2}, {ID: 2, CarrierID: 9}}
	s.repo.On("ListStops", mock.Anything, (*int64)(nil)).Return(all, nil).Twice()
	own := int64(2)
	s.repo.On("ListStops", mock.Anything, &own).Return(all[:1], nil).Twice()
	nine := int64(9)
	s.repo.On("ListStops", mock.Anything, &nine).Return(all[1:], nil).Once()

	out, err := s.r.List(context.Background(), s.admin, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 2)

	out, err = s.r.List(context.Background(), s.sub, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 2)

	out, err = s.r.List(context.Background(), s.sub, &nine)
	s.Require().NoError(err)
	s.Require().Len(out, 1)

	out, err = s.r.List(context.Background(), s.carrier, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)

	out, err = s.r.List(context.Background(), s.carrier, &own)
	s.Require().NoError(err)
	s.Require().Len(out, 1)

	_, err = s.r.List(context.Background(), s.carrier, &nine)
	s.Require().Equal(models.KindAuthorizationDenied, models.KindOf(err))

	s.repo.AssertExpectations(s.T())
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}
