package startgroup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/potlab/ecx/internal/app/startgroup"
	"github.com/potlab/ecx/internal/box"
	"github.com/potlab/ecx/internal/box/boxmock"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		cfg    startgroup.ServiceConfig
		expErr bool
		errMsg string
	}{
		"Valid config with all fields": {
			cfg: startgroup.ServiceConfig{
				Boxes:      box.NewStaticRegistry(nil),
				Repository: &storagemock.MockRepository{},
				Logger:     log.Noop,
			},
		},
		"Missing box registry returns error": {
			cfg: startgroup.ServiceConfig{
				Repository: &storagemock.MockRepository{},
			},
			expErr: true,
			errMsg: "box registry is required",
		},
		"Missing repository returns error": {
			cfg: startgroup.ServiceConfig{
				Boxes: box.NewStaticRegistry(nil),
			},
			expErr: true,
			errMsg: "repository is required",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := startgroup.NewService(tt.cfg)

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
	t0 := time.Date(2026, 8, 30, 9, 30, 15, 123*int(time.Millisecond), time.UTC)
	const expGroupID = "grp20260830093015123"

	tests := map[string]struct {
		req         startgroup.Request
		boxIDs      []string
		setupMocks  func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient)
		expErr      bool
		errMsg      string
		validateRes func(t *testing.T, resp *startgroup.Response)
	}{
		"Dispatching a batch should create one run per entry, in entry order, under one group id": {
			req: startgroup.Request{
				ExperimentName: "corrosion sweep",
				Subdir:         "aug-30",
				Entries: []model.EntryDraft{
					{BoxID: "box-a", Slot: "ch1", WellID: "A1", Modes: []string{"cv"}},
					{BoxID: "box-b", Slot: "ch1", WellID: "B1", Modes: []string{"eis"}},
					{BoxID: "box-a", Slot: "ch2", WellID: "A2", Modes: []string{"ocp"}},
				},
			},
			boxIDs: []string{"box-a", "box-b"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("CreateGroup", mock.Anything, mock.Anything).Once().Return(nil)

				clients["box-a"].On("StartJob", mock.Anything, mock.MatchedBy(func(req box.StartJobRequest) bool {
					return req.Slot == "ch1"
				})).Once().Return("run-1", nil)
				clients["box-b"].On("StartJob", mock.Anything, mock.Anything).Once().Return("run-2", nil)
				clients["box-a"].On("StartJob", mock.Anything, mock.MatchedBy(func(req box.StartJobRequest) bool {
					return req.Slot == "ch2"
				})).Once().Return("run-3", nil)

				repo.On("AddRunRef", mock.Anything, mock.Anything).Times(3).Return(nil)
			},
			validateRes: func(t *testing.T, resp *startgroup.Response) {
				require.NotNil(t, resp.Group)
				assert.Equal(t, expGroupID, resp.Group.ID)
				assert.Equal(t, "corrosion sweep", resp.Group.ExperimentName)

				require.Len(t, resp.Group.Refs, 3)
				assert.Equal(t, model.RunRef{GroupID: expGroupID, BoxID: "box-a", RunID: "run-1", WellID: "A1", Slot: "ch1"}, resp.Group.Refs[0])
				assert.Equal(t, model.RunRef{GroupID: expGroupID, BoxID: "box-b", RunID: "run-2", WellID: "B1", Slot: "ch1"}, resp.Group.Refs[1])
				assert.Equal(t, model.RunRef{GroupID: expGroupID, BoxID: "box-a", RunID: "run-3", WellID: "A2", Slot: "ch2"}, resp.Group.Refs[2])
			},
		},

		"The start call should carry the shared batch context to every box": {
			req: startgroup.Request{
				ExperimentName: "exp",
				Subdir:         "sub",
				Entries: []model.EntryDraft{
					{BoxID: "box-a", Slot: "ch1", WellID: "A1", Modes: []string{"cv", "eis"}},
				},
			},
			boxIDs: []string{"box-a"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("CreateGroup", mock.Anything, mock.Anything).Return(nil)
				clients["box-a"].On("StartJob", mock.Anything, mock.MatchedBy(func(req box.StartJobRequest) bool {
					return req.GroupID == expGroupID &&
						req.ExperimentName == "exp" &&
						req.Subdir == "sub" &&
						req.ClientDateTime.Equal(t0) &&
						req.GeneratePlots
				})).Return("run-1", nil)
				repo.On("AddRunRef", mock.Anything, mock.Anything).Return(nil)
			},
			validateRes: func(t *testing.T, resp *startgroup.Response) {
				require.Len(t, resp.Group.Refs, 1)
			},
		},

		"A mid batch dispatch failure should abort the remaining entries keeping the started subset": {
			req: startgroup.Request{
				ExperimentName: "exp",
				Entries: []model.EntryDraft{
					{BoxID: "box-a", Slot: "ch1", WellID: "A1"},
					{BoxID: "box-b", Slot: "ch1", WellID: "B1"},
					{BoxID: "box-a", Slot: "ch2", WellID: "A2"},
				},
			},
			boxIDs: []string{"box-a", "box-b"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("CreateGroup", mock.Anything, mock.Anything).Return(nil)

				clients["box-a"].On("StartJob", mock.Anything, mock.Anything).Once().Return("run-1", nil)
				repo.On("AddRunRef", mock.Anything, mock.Anything).Once().Return(nil)

				// Second entry fails; no further start attempt may happen, in
				// particular not the third entry back on box-a.
				clients["box-b"].On("StartJob", mock.Anything, mock.Anything).Once().Return("", model.ErrNetwork)
			},
			expErr: true,
			errMsg: "entry 1 (box box-b, slot ch1)",
			validateRes: func(t *testing.T, resp *startgroup.Response) {
				// The partial group stays usable for status/cancel.
				require.NotNil(t, resp)
				require.NotNil(t, resp.Group)
				require.Len(t, resp.Group.Refs, 1)
				assert.Equal(t, "run-1", resp.Group.Refs[0].RunID)
			},
		},

		"An entry for an unconfigured box should abort the dispatch": {
			req: startgroup.Request{
				Entries: []model.EntryDraft{
					{BoxID: "box-gone", Slot: "ch1"},
				},
			},
			boxIDs: []string{"box-a"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("CreateGroup", mock.Anything, mock.Anything).Return(nil)
			},
			expErr: true,
			errMsg: "box not configured",
		},

		"An empty batch should fail without touching storage": {
			req:    startgroup.Request{},
			boxIDs: []string{},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
			},
			expErr: true,
			errMsg: "could not build start command",
		},

		"A group persistence failure should abort before any dispatch": {
			req: startgroup.Request{
				Entries: []model.EntryDraft{
					{BoxID: "box-a", Slot: "ch1"},
				},
			},
			boxIDs: []string{"box-a"},
			setupMocks: func(repo *storagemock.MockRepository, clients map[string]*boxmock.MockClient) {
				repo.On("CreateGroup", mock.Anything, mock.Anything).Return(errors.New("disk full"))
			},
			expErr: true,
			errMsg: "could not persist group",
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

			svc, err := startgroup.NewService(startgroup.ServiceConfig{
				Boxes:      box.NewStaticRegistry(registryClients),
				Repository: repo,
				Logger:     log.Noop,
				Now:        func() time.Time { return t0 },
			})
			require.NoError(t, err)

			resp, err := svc.Run(context.Background(), tt.req)

			if tt.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
			if tt.validateRes != nil {
				tt.validateRes(t, resp)
			}
		})
	}
}
