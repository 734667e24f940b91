package listgroups_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/potlab/ecx/internal/app/listgroups"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage/storagemock"
)

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		setupMocks func(repo *storagemock.MockRepository)
		expErr     bool
		expGroups  []model.RunGroup
	}{
		"Groups should be returned as stored": {
			setupMocks: func(repo *storagemock.MockRepository) {
				repo.On("ListGroups", mock.Anything).Return([]model.RunGroup{
					{ID: "grp-new"},
					{ID: "grp-old"},
				}, nil)
			},
			expGroups: []model.RunGroup{{ID: "grp-new"}, {ID: "grp-old"}},
		},

		"A storage failure should fail": {
			setupMocks: func(repo *storagemock.MockRepository) {
				repo.On("ListGroups", mock.Anything).Return(nil, errors.New("boom"))
			},
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			repo := storagemock.NewMockRepository(t)
			tt.setupMocks(repo)

			svc, err := listgroups.NewService(listgroups.ServiceConfig{
				Repository: repo,
				Logger:     log.Noop,
			})
			require.NoError(t, err)

			groups, err := svc.Run(context.Background(), listgroups.Request{})

			if tt.expErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expGroups, groups)
			}
		})
	}
}
