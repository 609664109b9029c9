package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

type RegistryTestSuite struct {
	suite.Suite
	registry Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) SetupTest() {
	s.registry = NewRegistry()
}

func (s *RegistryTestSuite) TestRegisterAndGet() {
	err := s.registry.Register(NewRSI())
	s.Require().NoError(err)

	provider, err := s.registry.Get("rsi")
	s.Require().NoError(err)
	s.Equal("rsi", provider.Type())
}

func (s *RegistryTestSuite) TestRegisterDuplicate() {
	s.Require().NoError(s.registry.Register(NewRSI()))

	err := s.registry.Register(NewRSI())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeIndicatorAlreadyExists))
}

func (s *RegistryTestSuite) TestGetUnknown() {
	_, err := s.registry.Get("vwap")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
}

func (s *RegistryTestSuite) TestRemove() {
	s.Require().NoError(s.registry.Register(NewSMA()))
	s.Require().NoError(s.registry.Remove("sma"))

	_, err := s.registry.Get("sma")
	s.Require().Error(err)

	err = s.registry.Remove("sma")
	s.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
}

func (s *RegistryTestSuite) TestDefaultRegistry() {
	r := NewDefaultRegistry()

	for _, name := range []string{"sma", "ema", "rsi", "macd", "bollinger", "atr", "stochastic", "close", "volume"} {
		provider, err := r.Get(name)
		s.Require().NoError(err, name)
		s.Equal(name, provider.Type())
	}

	s.Len(r.List(), 12)
}
