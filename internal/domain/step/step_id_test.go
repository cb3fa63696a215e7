package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStepID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{"simple", "apt:update", nil},
		{"three segments", "apt:package:curl", nil},
		{"with path chars", "files:render:etc/sysctl.d/99-airig.conf", nil},
		{"single segment", "bootstrap", nil},
		{"empty", "", ErrEmptyStepID},
		{"whitespace only", "   ", ErrEmptyStepID},
		{"leading colon", ":apt", ErrInvalidStepID},
		{"trailing colon", "apt:", ErrInvalidStepID},
		{"spaces", "apt :update", ErrInvalidStepID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, err := NewStepID(tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, id.String())
		})
	}
}

func TestStepID_Provider(t *testing.T) {
	id := MustNewStepID("sysctl:render:99-airig")
	assert.Equal(t, "sysctl", id.Provider())
}

func TestStepID_Equals(t *testing.T) {
	a := MustNewStepID("apt:update")
	b := MustNewStepID("apt:update")
	c := MustNewStepID("apt:upgrade")

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestStepID_IsZero(t *testing.T) {
	assert.True(t, StepID{}.IsZero())
	assert.False(t, MustNewStepID("a").IsZero())
}

func TestMustNewStepID_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNewStepID("") })
}
