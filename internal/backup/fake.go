package backup

// FakeStore is an in-memory Store for tests. It serves scripted listings
// and records every mutating call.
type FakeStore struct {
	Entries map[string][]Entry

	Created  []string
	Restored []Entry
	Removed  []string

	CreateErr  error
	RestoreErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{Entries: map[string][]Entry{}}
}

func (f *FakeStore) List(path string) []Entry {
	return f.Entries[path]
}

func (f *FakeStore) Create(path string) (string, error) {
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	backupPath := path + ".bak.0"
	f.Created = append(f.Created, path)
	return backupPath, nil
}

func (f *FakeStore) Restore(e Entry) error {
	if f.RestoreErr != nil {
		return f.RestoreErr
	}
	f.Restored = append(f.Restored, e)
	return nil
}

func (f *FakeStore) Remove(path string) error {
	f.Removed = append(f.Removed, path)
	return nil
}
