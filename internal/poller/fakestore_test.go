package poller

import (
	"context"
	"sync"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore"
)

// fakeStore is an in-memory stand-in for stagingstore.Store used across the
// poller package's tests. It is not safe for concurrent use beyond what the
// single-threaded orchestrator itself requires.
type fakeStore struct {
	mu sync.Mutex

	blocks             map[string]stagingstore.BlockRecord
	filesByBlock       map[string][]block.File
	dasGroups          []stagingstore.DasGroup
	uploadableByDas    map[string][]block.File
	completedWorkflows map[string]struct{}

	failCreateBlocks error
	failUpdateBlocks error
	failSetBinds     error

	createBlocksCalls int
	updateBlocksCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blocks:             make(map[string]stagingstore.BlockRecord),
		filesByBlock:       make(map[string][]block.File),
		uploadableByDas:    make(map[string][]block.File),
		completedWorkflows: make(map[string]struct{}),
	}
}

func (s *fakeStore) FindOpenBlocks(ctx context.Context, uploadOnlyMode bool) ([]stagingstore.BlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []stagingstore.BlockRecord
	for _, r := range s.blocks {
		if r.Status == block.Open {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) LoadBlocks(ctx context.Context, names []string, uploadOnlyMode bool) ([]stagingstore.BlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []stagingstore.BlockRecord
	for _, name := range names {
		if r, ok := s.blocks[name]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) LoadFilesOfBlock(ctx context.Context, name string) ([]block.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]block.File(nil), s.filesByBlock[name]...), nil
}

func (s *fakeStore) FindUploadableDasGroups(ctx context.Context) ([]stagingstore.DasGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stagingstore.DasGroup(nil), s.dasGroups...), nil
}

func (s *fakeStore) FindUploadableFilesByDas(ctx context.Context, dasID string) ([]block.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]block.File(nil), s.uploadableByDas[dasID]...), nil
}

func (s *fakeStore) GetCompletedWorkflows(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.completedWorkflows))
	for k := range s.completedWorkflows {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *fakeStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx stagingstore.Tx) error) error {
	return fn(ctx, &fakeTx{store: s})
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) CreateBlocks(ctx context.Context, blocks []stagingstore.BlockRecord) error {
	if t.store.failCreateBlocks != nil {
		return t.store.failCreateBlocks
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.createBlocksCalls++
	for _, b := range blocks {
		t.store.blocks[b.Name] = b
	}
	return nil
}

func (t *fakeTx) UpdateBlocks(ctx context.Context, blocks []stagingstore.BlockRecord, uploadOnlyMode bool) error {
	if t.store.failUpdateBlocks != nil {
		return t.store.failUpdateBlocks
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.updateBlocksCalls++
	for _, b := range blocks {
		t.store.blocks[b.Name] = b
	}
	return nil
}

func (t *fakeTx) SetBlockFiles(ctx context.Context, binds []block.Bind) error {
	if t.store.failSetBinds != nil {
		return t.store.failSetBinds
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, bind := range binds {
		for das, files := range t.store.uploadableByDas {
			for i := range files {
				if files[i].LFN == bind.LFN {
					files[i].Block = bind.BlockName
					t.store.filesByBlock[bind.BlockName] = append(t.store.filesByBlock[bind.BlockName], files[i])
				}
			}
			t.store.uploadableByDas[das] = files
		}
	}
	return nil
}

func (t *fakeTx) UpdateFileStatus(ctx context.Context, blockNames []string, newStatus block.Status) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	names := make(map[string]struct{}, len(blockNames))
	for _, n := range blockNames {
		names[n] = struct{}{}
	}
	for blockName, files := range t.store.filesByBlock {
		if _, ok := names[blockName]; !ok {
			continue
		}
		_ = files
	}
	return nil
}
