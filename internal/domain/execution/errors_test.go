package execution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airig-sh/airig/internal/domain/backup"
	"github.com/airig-sh/airig/internal/domain/step"
)

func TestClassify(t *testing.T) {
	id := step.MustNewStepID("apt:update")

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "missing tool",
			err:  &exec.Error{Name: "ufw", Err: exec.ErrNotFound},
			want: KindToolMissing,
		},
		{
			name: "permission denied",
			err:  fmt.Errorf("write /etc/sysctl.d: %w", os.ErrPermission),
			want: KindPermissionDenied,
		},
		{
			name: "timeout",
			err:  context.DeadlineExceeded,
			want: KindTimeout,
		},
		{
			name: "backup io",
			err:  fmt.Errorf("snapshot /etc/docker/daemon.json: %w", backup.ErrBackupIO),
			want: KindBackup,
		},
		{
			name: "check failure",
			err:  &checkError{err: errors.New("dpkg-query exploded")},
			want: KindCheck,
		},
		{
			name: "plain tool failure",
			err:  errors.New("exit status 100"),
			want: KindToolFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stepErr := Classify(id, tt.err)
			assert.Equal(t, tt.want, stepErr.Kind)
			assert.Equal(t, id, stepErr.StepID)
			assert.ErrorIs(t, stepErr, tt.err)
		})
	}
}

func TestStepErrorMessage(t *testing.T) {
	err := Classify(step.MustNewStepID("service:enable:docker"), errors.New("unit not found"))
	assert.Contains(t, err.Error(), "service:enable:docker")
	assert.Contains(t, err.Error(), "tool-failed")
	assert.Contains(t, err.Error(), "unit not found")
}
