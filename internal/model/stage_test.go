package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStagePercent(t *testing.T) {
	tests := []struct {
		stage   Stage
		percent int
	}{
		{StageStarted, 0},
		{StageSplitting, 20},
		{StageLoadingNemo, 40},
		{StageTranscribing, 60},
		{StageAligning, 80},
		{StageFinished, 100},
	}

	last := -1
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			p, ok := tt.stage.Percent()
			assert.True(t, ok)
			assert.Equal(t, tt.percent, p)
			assert.Greater(t, p, last)
			last = p
		})
	}
}

func TestStagePercent_Unrecognized(t *testing.T) {
	for _, s := range []Stage{"", "uploading", "FINISHED", "done"} {
		p, ok := s.Percent()
		assert.False(t, ok, "stage %q should not map", s)
		assert.Zero(t, p)
		assert.False(t, s.Known())
	}
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageFinished.Terminal())
	for _, s := range []Stage{StageStarted, StageSplitting, StageLoadingNemo, StageTranscribing, StageAligning} {
		assert.False(t, s.Terminal(), "stage %q", s)
	}
}
