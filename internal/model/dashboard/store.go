package dashboard

// Store exposes dashboard data for HTTP handlers.
type Store interface {
	Groups() []FaceGroup
	Assets() []DigitalAsset
	FindAsset(id string) (DigitalAsset, bool)
}

// MemoryStore implements Store with in-memory slices.
type MemoryStore struct {
	groups []FaceGroup
	assets []DigitalAsset
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied data.
func NewMemoryStore(groups []FaceGroup, assets []DigitalAsset) *MemoryStore {
	return &MemoryStore{
		groups: append([]FaceGroup(nil), groups...),
		assets: append([]DigitalAsset(nil), assets...),
	}
}

// Groups returns the face groups.
func (s *MemoryStore) Groups() []FaceGroup {
	return append([]FaceGroup(nil), s.groups...)
}

// Assets returns the registered assets.
func (s *MemoryStore) Assets() []DigitalAsset {
	return append([]DigitalAsset(nil), s.assets...)
}

// FindAsset looks up an asset by identifier.
func (s *MemoryStore) FindAsset(id string) (DigitalAsset, bool) {
	for _, item := range s.assets {
		if item.ID == id {
			return item, true
		}
	}
	return DigitalAsset{}, false
}
