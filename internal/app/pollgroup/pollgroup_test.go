package pollgroup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/potlab/ecx/internal/app/pollgroup"
	"github.com/potlab/ecx/internal/box"
	"github.com/potlab/ecx/internal/box/boxmock"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		cfg    pollgroup.ServiceConfig
		expErr bool
		errMsg string
	}{
		"Valid config with all fields": {
			cfg: pollgroup.ServiceConfig{
				Boxes:      box.NewStaticRegistry(nil),
				Repository: &storagemock.MockRepository{},
				Logger:     log.Noop,
			},
		},
		"Missing box registry returns error": {
			cfg: pollgroup.ServiceConfig{
				Repository: &storagemock.MockRepository{},
			},
			expErr: true,
			errMsg: "box registry is required",
		},
		"Missing repository returns error": {
			cfg: pollgroup.ServiceConfig{
				Boxes: box.NewStaticRegistry(nil),
			},
			expErr: true,
			errMsg: "repository is required",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := pollgroup.NewService(tt.cfg)

			if tt.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, svc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	polledAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	groupWith := func(refs ...model.RunRef) *model.RunGroup {
		return &model.RunGroup{ID: "grp20260830093015123", Refs: refs}
	}

	refA1 := model.RunRef{GroupID: "grp20260830093015123", BoxID: "box-a", RunID: "run-1", WellID: "A1", Slot: "ch1"}
	refA2 := model.RunRef{GroupID: "grp20260830093015123", BoxID: "box-a", RunID: "run-2", WellID: "A2", Slot: "ch2"}
	refB1 := model.RunRef{GroupID: "grp20260830093015123", BoxID: "box-b", RunID: "run-3", WellID: "B1", Slot: "ch1"}

	tests := map[string]struct {
		setupMocks   func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient)
		boxIDs       []string
		expErr       bool
		errMsg       string
		validateSnap func(t *testing.T, snap *model.RunGroupSnapshot)
	}{
		"A group spread over two boxes should issue exactly one batched call per box": {
			boxIDs: []string{"box-a", "box-b"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(groupWith(refA1, refA2, refB1), nil)

				clients["box-a"].On("PollJobs", mock.Anything, []string{"run-1", "run-2"}).Once().
					Return([]box.JobPayload{
						{RunID: "run-1", Status: "running", ProgressPct: 40.0, CurrentMode: "cv"},
						{RunID: "run-2", Status: "queued"},
					}, nil)
				clients["box-b"].On("PollJobs", mock.Anything, []string{"run-3"}).Once().
					Return([]box.JobPayload{
						{RunID: "run-3", Status: "done", ProgressPct: 100.0},
					}, nil)
			},
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				require.Len(t, snap.Statuses, 3)
				// Statuses keep dispatch order, not reply order.
				assert.Equal(t, "run-1", snap.Statuses[0].RunID)
				assert.Equal(t, "run-2", snap.Statuses[1].RunID)
				assert.Equal(t, "run-3", snap.Statuses[2].RunID)
				assert.Equal(t, model.RunStateRunning, snap.Statuses[0].State)
				assert.Equal(t, 40.0, snap.Statuses[0].ProgressPct)
				assert.False(t, snap.AllDone)
				assert.Equal(t, polledAt, snap.PolledAt)
			},
		},

		"Well and slot context should be recovered from the run refs": {
			boxIDs: []string{"box-a"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(groupWith(refA1), nil)

				clients["box-a"].On("PollJobs", mock.Anything, []string{"run-1"}).
					Return([]box.JobPayload{{RunID: "run-1", Status: "running"}}, nil)
			},
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				require.Len(t, snap.Statuses, 1)
				assert.Equal(t, "A1", snap.Statuses[0].WellID)
				assert.Equal(t, "ch1", snap.Statuses[0].Slot)
				assert.Equal(t, "box-a", snap.Statuses[0].BoxID)
			},
		},

		"Old firmware payloads should be normalized into the canonical shape": {
			boxIDs: []string{"box-a"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(groupWith(refA1, refA2), nil)

				clients["box-a"].On("PollJobs", mock.Anything, []string{"run-1", "run-2"}).
					Return([]box.JobPayload{
						// Older firmware: numeric strings, single-mode field,
						// uppercase status.
						{RunID: "run-1", Status: "RUNNING", ProgressPct: "62.5", RemainingS: "30", LegacyMode: "cv"},
						// Missing everything optional.
						{RunID: "run-2"},
					}, nil)
			},
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				require.Len(t, snap.Statuses, 2)

				old := snap.Statuses[0]
				assert.Equal(t, model.RunStateRunning, old.State)
				assert.Equal(t, 62.5, old.ProgressPct)
				require.NotNil(t, old.RemainingS)
				assert.Equal(t, 30.0, *old.RemainingS)
				assert.Equal(t, "cv", old.CurrentMode)

				bare := snap.Statuses[1]
				assert.Equal(t, model.RunStateQueued, bare.State)
				assert.Equal(t, 0.0, bare.ProgressPct)
				assert.Nil(t, bare.RemainingS)
				assert.Equal(t, []string{}, bare.RemainingModes)
			},
		},

		"The multi mode field should win over the legacy single mode field": {
			boxIDs: []string{"box-a"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(groupWith(refA1), nil)

				clients["box-a"].On("PollJobs", mock.Anything, []string{"run-1"}).
					Return([]box.JobPayload{
						{RunID: "run-1", Status: "running", CurrentMode: "eis", LegacyMode: "cv", RemainingModes: []any{"ocp", "lsv"}},
					}, nil)
			},
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				require.Len(t, snap.Statuses, 1)
				assert.Equal(t, "eis", snap.Statuses[0].CurrentMode)
				assert.Equal(t, []string{"ocp", "lsv"}, snap.Statuses[0].RemainingModes)
			},
		},

		"A run the box no longer reports should simply be absent": {
			boxIDs: []string{"box-a"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(groupWith(refA1, refA2), nil)

				clients["box-a"].On("PollJobs", mock.Anything, []string{"run-1", "run-2"}).
					Return([]box.JobPayload{{RunID: "run-2", Status: "done"}}, nil)
			},
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				require.Len(t, snap.Statuses, 1)
				assert.Equal(t, "run-2", snap.Statuses[0].RunID)
			},
		},

		"A group with a failed and a done run should count as all done with the message kept": {
			boxIDs: []string{"box-a", "box-b"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(groupWith(refA1, refB1), nil)

				clients["box-a"].On("PollJobs", mock.Anything, []string{"run-1"}).
					Return([]box.JobPayload{
						{RunID: "run-1", Status: "failed", Message: "potentiostat overload on ch1"},
					}, nil)
				clients["box-b"].On("PollJobs", mock.Anything, []string{"run-3"}).
					Return([]box.JobPayload{{RunID: "run-3", Status: "done", ProgressPct: 100.0}}, nil)
			},
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				require.Len(t, snap.Statuses, 2)
				assert.True(t, snap.AllDone)
				assert.Equal(t, model.RunStateFailed, snap.Statuses[0].State)
				assert.Equal(t, "potentiostat overload on ch1", snap.Statuses[0].ErrorMessage)
			},
		},

		"One box failing should not drop the sibling boxes' results": {
			boxIDs: []string{"box-a", "box-b"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(groupWith(refA1, refB1), nil)

				clients["box-a"].On("PollJobs", mock.Anything, []string{"run-1"}).
					Return(nil, model.ErrTimeout)
				clients["box-b"].On("PollJobs", mock.Anything, []string{"run-3"}).
					Return([]box.JobPayload{{RunID: "run-3", Status: "running", ProgressPct: 80.0}}, nil)
			},
			expErr: true,
			errMsg: "box box-a",
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				require.Len(t, snap.Statuses, 1)
				assert.Equal(t, "run-3", snap.Statuses[0].RunID)
				assert.False(t, snap.AllDone)
			},
		},

		"A group with no refs should yield an empty snapshot": {
			boxIDs: []string{},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(groupWith(), nil)
			},
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				assert.Empty(t, snap.Statuses)
				assert.False(t, snap.AllDone)
				assert.Equal(t, "grp20260830093015123", snap.GroupID)
			},
		},

		"An unknown group should fail": {
			boxIDs: []string{},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("GetGroup", mock.Anything, "grp20260830093015123").
					Return(nil, model.ErrNotFound)
			},
			expErr: true,
			errMsg: "could not get group",
			validateSnap: func(t *testing.T, snap *model.RunGroupSnapshot) {
				assert.Nil(t, snap)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			repo := storagemock.NewMockRepository(t)
			clients := map[string]*boxmock.MockClient{}
			registryClients := map[string]box.Client{}
			for _, id := range tt.boxIDs {
				c := boxmock.NewMockClient(t)
				clients[id] = c
				registryClients[id] = c
			}
			tt.setupMocks(repo, clients)

			svc, err := pollgroup.NewService(pollgroup.ServiceConfig{
				Boxes:      box.NewStaticRegistry(registryClients),
				Repository: repo,
				Logger:     log.Noop,
				Now:        func() time.Time { return polledAt },
			})
			require.NoError(t, err)

			snap, err := svc.Run(context.Background(), pollgroup.Request{GroupID: "grp20260830093015123"})

			if tt.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
			if tt.validateSnap != nil {
				tt.validateSnap(t, snap)
			}
		})
	}
}

func TestServiceRunUnconfiguredBox(t *testing.T) {
	// A ref pointing at a box missing from the fleet is reported as that box's
	// failure while the configured boxes still answer.
	repo := storagemock.NewMockRepository(t)
	repo.On("GetGroup", mock.Anything, "grp1").Return(&model.RunGroup{
		ID: "grp1",
		Refs: []model.RunRef{
			{GroupID: "grp1", BoxID: "box-gone", RunID: "run-1"},
			{GroupID: "grp1", BoxID: "box-a", RunID: "run-2"},
		},
	}, nil)

	clientA := boxmock.NewMockClient(t)
	clientA.On("PollJobs", mock.Anything, []string{"run-2"}).
		Return([]box.JobPayload{{RunID: "run-2", Status: "done"}}, nil)

	svc, err := pollgroup.NewService(pollgroup.ServiceConfig{
		Boxes:      box.NewStaticRegistry(map[string]box.Client{"box-a": clientA}),
		Repository: repo,
		Logger:     log.Noop,
	})
	require.NoError(t, err)

	snap, err := svc.Run(context.Background(), pollgroup.Request{GroupID: "grp1"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrBoxNotConfigured))
	var boxErr *model.BoxOpError
	require.True(t, errors.As(err, &boxErr))
	assert.Equal(t, "box-gone", boxErr.BoxID)

	require.NotNil(t, snap)
	require.Len(t, snap.Statuses, 1)
	assert.Equal(t, "run-2", snap.Statuses[0].RunID)
}
