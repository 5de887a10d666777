package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApprovalRate(t *testing.T) {
	e := &Entity{TotalReports: 0, ApprovedReports: 0}
	assert.Equal(t, 0.0, e.ApprovalRate())

	e = &Entity{TotalReports: 4, ApprovedReports: 3}
	assert.InDelta(t, 0.75, e.ApprovalRate(), 1e-9)
}

func TestHighVolume(t *testing.T) {
	assert.False(t, (&Entity{TotalReports: 50}).HighVolume())
	assert.True(t, (&Entity{TotalReports: 51}).HighVolume())
}
