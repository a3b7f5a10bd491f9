package exam

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// DefaultChunkBudget keeps a stored test document under 3.5 MiB.
const DefaultChunkBudget = 3_670_016

// chunkHeadroom is reserved in every chunk for the part suffix, chunk info
// and the length difference between generated child ids.
const chunkHeadroom = 64

// ChunkPayload is one piece of a split test, ready to be stored once the
// caller fills in ids and the parent reference.
type ChunkPayload struct {
	Title     string     `json:"title"`
	Sections  []Section  `json:"sections"`
	ChunkInfo *ChunkInfo `json:"chunkInfo,omitempty"`
}

// PayloadSize is the serialized size of v in bytes.
func PayloadSize(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}

// SplitIntoChunks splits sections into ordered payloads whose documents
// serialize within budget bytes. A payload that already fits comes back as
// a single chunk without ChunkInfo.
func SplitIntoChunks(sections []Section, title string, budget int) ([]ChunkPayload, error) {
	return SplitDocument(Test{Title: title, Sections: sections}, budget)
}

// SplitDocument splits base.Sections so that every document built from a
// payload with ChunkDocument, ids and parent reference included, serializes
// within budget bytes. base supplies every other stored field.
//
// Questions are packed greedily in order. A question that does not fit into
// an empty chunk is placed alone, and the split then fails with
// ErrChunkTooLarge since it cannot be divided further.
func SplitDocument(base Test, budget int) ([]ChunkPayload, error) {
	title, sections := base.Title, base.Sections
	whole := ChunkPayload{Title: title, Sections: sections}
	if PayloadSize(ChunkDocument(base, whole)) <= budget {
		return []ChunkPayload{whole}, nil
	}

	// The envelope is the stored document without questions. Children carry
	// the root id as their parent, so it is counted for every chunk.
	envelope := ChunkDocument(base, ChunkPayload{Title: title, Sections: []Section{}})
	envelope.SubjectsIncluded = SubjectsOf(sections)
	if envelope.ParentTestID == "" {
		envelope.ParentTestID = base.ID
	}

	// Sizes are tracked incrementally: compact JSON of a list is the sum of
	// its elements plus one comma between each pair.
	limit := budget - chunkHeadroom
	emptySize := PayloadSize(envelope)

	var (
		chunks  [][]Section
		current []Section
		curSize = emptySize
	)
	for _, sec := range sections {
		secEmpty := PayloadSize(Section{Subject: sec.Subject, MarksPerQuestion: sec.MarksPerQuestion, Questions: []Question{}})
		building := Section{Subject: sec.Subject, MarksPerQuestion: sec.MarksPerQuestion}
		buildSize := secEmpty
		for _, q := range sec.Questions {
			qSize := PayloadSize(q)
			nextBuild := buildSize + qSize
			if len(building.Questions) > 0 {
				nextBuild++
			}
			prospective := curSize + nextBuild
			if len(current) > 0 {
				prospective++
			}
			empty := len(current) == 0 && len(building.Questions) == 0
			if prospective <= limit || empty {
				building.Questions = append(building.Questions, q)
				buildSize = nextBuild
				continue
			}

			closed := current
			if len(building.Questions) > 0 {
				closed = append(closed, building)
			}
			chunks = append(chunks, closed)
			current, curSize = nil, emptySize
			building = Section{Subject: sec.Subject, MarksPerQuestion: sec.MarksPerQuestion, Questions: []Question{q}}
			buildSize = secEmpty + qSize
		}
		if len(building.Questions) > 0 {
			if len(current) > 0 {
				curSize++
			}
			current = append(current, building)
			curSize += buildSize
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	total := len(chunks)
	out := make([]ChunkPayload, total)
	for i, secs := range chunks {
		p := ChunkPayload{
			Title:     title,
			Sections:  secs,
			ChunkInfo: &ChunkInfo{Current: i + 1, Total: total},
		}
		doc := ChunkDocument(base, p)
		if i > 0 {
			p.Title = PartTitle(title, i+1, total)
			doc.Title = p.Title
			doc.ParentTestID = base.ID
		}
		if size := PayloadSize(doc); size > budget {
			return nil, newErr(KindChunkTooLarge,
				"Part %d of %d is %.1f MB and cannot be split further; reduce image sizes in that question",
				i+1, total, float64(size)/(1024*1024))
		}
		out[i] = p
	}
	return out, nil
}

// ChunkDocument is the document stored for payload p of a group built on
// base. Child ids and the parent reference are left to the caller.
func ChunkDocument(base Test, p ChunkPayload) Test {
	doc := base
	doc.Title = p.Title
	doc.Sections = p.Sections
	doc.SubjectsIncluded = SubjectsOf(p.Sections)
	doc.ChunkInfo = p.ChunkInfo
	return doc
}

// PartTitle is the title given to chunk i of n.
func PartTitle(title string, i, n int) string {
	return fmt.Sprintf("%s (Part %d/%d)", title, i, n)
}

var partSuffix = regexp.MustCompile(`(?i)\s*\(part \d+/\d+\)\s*$`)

// BaseTitle strips a "(Part i/n)" suffix.
func BaseTitle(title string) string {
	return partSuffix.ReplaceAllString(title, "")
}

// MergeChunkGroup reconstructs one logical test from every document of a
// chunk group. Documents are ordered by chunk index; ties keep input order.
// Each subject's questions are concatenated across chunks, in chunk order.
func MergeChunkGroup(docs []Test) (Test, error) {
	if len(docs) == 0 {
		return Test{}, NotFoundf("Test not found")
	}
	sorted := append([]Test(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return PositionOf(sorted[i]).Index() < PositionOf(sorted[j]).Index()
	})

	rootID := sorted[0].RootID()
	base := sorted[0]
	for _, d := range sorted {
		if d.ParentTestID == "" {
			base = d
			rootID = d.ID
			break
		}
	}

	merged := base
	merged.ID = rootID
	merged.Title = BaseTitle(base.Title)
	merged.ParentTestID = ""
	merged.ChunkInfo = nil
	merged.Approved, merged.Active, merged.ShowAnswerKey = true, true, true

	index := map[Subject]int{}
	var sections []Section
	for _, d := range sorted {
		merged.Approved = merged.Approved && d.Approved
		merged.Active = merged.Active && d.Active
		merged.ShowAnswerKey = merged.ShowAnswerKey && d.ShowAnswerKey
		if d.CreatedAt.Before(merged.CreatedAt) {
			merged.CreatedAt = d.CreatedAt
		}
		if d.UpdatedAt.After(merged.UpdatedAt) {
			merged.UpdatedAt = d.UpdatedAt
		}
		for _, s := range d.Sections {
			if k, ok := index[s.Subject]; ok {
				sections[k].Questions = append(sections[k].Questions, s.Questions...)
				continue
			}
			index[s.Subject] = len(sections)
			sections = append(sections, Section{
				Subject:          s.Subject,
				MarksPerQuestion: s.MarksPerQuestion,
				Questions:        append([]Question(nil), s.Questions...),
			})
		}
	}
	merged.Sections = sections
	merged.SubjectsIncluded = SubjectsOf(sections)
	return merged, nil
}

// GroupIDs returns the ids of docs, root first.
func GroupIDs(docs []Test) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.ParentTestID == "" {
			ids = append([]string{d.ID}, ids...)
			continue
		}
		ids = append(ids, d.ID)
	}
	return ids
}

// HasChunkIndex reports whether any document in docs already claims index i.
func HasChunkIndex(docs []Test, i int) bool {
	for _, d := range docs {
		if PositionOf(d).Index() == i {
			return true
		}
	}
	return false
}
