package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StatusSuite struct {
	suite.Suite
}

func TestStatusSuite(t *testing.T) {
	suite.Run(t, new(StatusSuite))
}

func (s *StatusSuite) TestTransitionMatrix() {
	cases := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"registered to sanitized", StatusRegistered, StatusSanitized, true},
		{"registered to recycled skips sanitization", StatusRegistered, StatusRecycled, false},
		{"registered to sold skips sanitization", StatusRegistered, StatusSold, false},
		{"sanitized to recycled", StatusSanitized, StatusRecycled, true},
		{"sanitized to sold", StatusSanitized, StatusSold, true},
		{"sanitized back to registered", StatusSanitized, StatusRegistered, false},
		{"recycled to sold", StatusRecycled, StatusSold, true},
		{"recycled back to sanitized", StatusRecycled, StatusSanitized, false},
		{"sold is terminal for sold", StatusSold, StatusSold, false},
		{"sold back to recycled", StatusSold, StatusRecycled, false},
		{"same state is not a transition", StatusRegistered, StatusRegistered, false},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func (s *StatusSuite) TestString() {
	s.Equal("REGISTERED", StatusRegistered.String())
	s.Equal("SANITIZED", StatusSanitized.String())
	s.Equal("RECYCLED", StatusRecycled.String())
	s.Equal("SOLD", StatusSold.String())
	s.Equal("UNKNOWN(42)", Status(42).String())
}

func (s *StatusSuite) TestJSONRoundTrip() {
	s.Run("marshals by name", func() {
		data, err := json.Marshal(StatusSanitized)
		s.Require().NoError(err)
		s.Equal(`"SANITIZED"`, string(data))
	})

	s.Run("unmarshals by name", func() {
		var status Status
		s.Require().NoError(json.Unmarshal([]byte(`"RECYCLED"`), &status))
		s.Equal(StatusRecycled, status)
	})

	s.Run("rejects unknown name", func() {
		var status Status
		s.Error(json.Unmarshal([]byte(`"SCRAPPED"`), &status))
	})

	s.Run("rejects unknown numeric value on marshal", func() {
		_, err := json.Marshal(Status(99))
		s.Error(err)
	})
}
