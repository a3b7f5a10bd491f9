package exam

type positionKind int

const (
	standalone positionKind = iota
	root
	child
)

// ChunkPosition says where a document sits in its chunk group. It is
// resolved once from the stored fields; legacy children without chunk
// metadata are treated as index 2.
type ChunkPosition struct {
	kind  positionKind
	index int
}

func Standalone() ChunkPosition            { return ChunkPosition{kind: standalone, index: 1} }
func Root() ChunkPosition                  { return ChunkPosition{kind: root, index: 1} }
func Child(i int) ChunkPosition            { return ChunkPosition{kind: child, index: i} }
func (p ChunkPosition) IsRoot() bool       { return p.kind == root }
func (p ChunkPosition) IsChild() bool      { return p.kind == child }
func (p ChunkPosition) IsStandalone() bool { return p.kind == standalone }

// Index is the 1-based order of the document within its group.
func (p ChunkPosition) Index() int { return p.index }

func PositionOf(t Test) ChunkPosition {
	if t.ParentTestID != "" {
		if t.ChunkInfo != nil && t.ChunkInfo.Current > 0 {
			return Child(t.ChunkInfo.Current)
		}
		return Child(2)
	}
	if t.ChunkInfo != nil && t.ChunkInfo.Total > 1 {
		return Root()
	}
	return Standalone()
}
