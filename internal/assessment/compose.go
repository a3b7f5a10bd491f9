package assessment

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/events"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// UpdateRequest is a PATCH of a test. Nil fields are left unchanged; a
// non-nil Content replaces the whole composition.
type UpdateRequest struct {
	Content       *exam.ComposeRequest `json:"content,omitempty"`
	Active        *bool                `json:"active,omitempty"`
	ShowAnswerKey *bool                `json:"showAnswerKey,omitempty"`
}

// Create validates and persists a new test, or one more part of a test the
// composer is uploading in several requests.
func (s *Service) Create(ctx context.Context, a Actor, req exam.ComposeRequest) (exam.Test, error) {
	if err := canCompose(a); err != nil {
		return exam.Test{}, err
	}
	composed, err := exam.ValidateComposedTest(req, a.Role)
	if err != nil {
		return exam.Test{}, err
	}
	if err := checkAssignedSubjects(a, composed.Sections); err != nil {
		return exam.Test{}, err
	}
	if composed.ParentTestID != "" {
		return s.appendPart(ctx, a, composed)
	}

	base := s.newDocument(a, composed)
	var chunks []exam.ChunkPayload
	if ci := composed.ChunkInfo; ci != nil && ci.Total > 1 {
		// first of several client-uploaded parts
		if ci.Current != 1 {
			return exam.Test{}, exam.Validationf("The first part of a multi-part upload must have chunk index 1")
		}
		chunks = []exam.ChunkPayload{{Title: composed.Title, Sections: composed.Sections, ChunkInfo: ci}}
		if err := s.checkBudget(exam.ChunkDocument(base, chunks[0])); err != nil {
			return exam.Test{}, err
		}
	} else {
		chunks, err = exam.SplitDocument(base, s.budget)
		if err != nil {
			return exam.Test{}, err
		}
	}

	if err := s.writeChunks(ctx, base, chunks, false); err != nil {
		return exam.Test{}, err
	}
	s.log.Info("test created",
		zap.String("test_id", base.ID),
		zap.Int("chunks", len(chunks)),
		zap.String("actor", a.ID),
		zap.String("role", string(a.Role)))
	s.publish(ctx, events.TestCreated, base.ID, map[string]any{"actor": a.ID, "role": a.Role, "chunks": len(chunks)})

	g, err := s.loadGroup(ctx, base.ID)
	if err != nil {
		return exam.Test{}, err
	}
	return g.merged, nil
}

// appendPart stores one client-uploaded part below an existing root.
func (s *Service) appendPart(ctx context.Context, a Actor, composed exam.ComposedTest) (exam.Test, error) {
	g, err := s.loadGroup(ctx, composed.ParentTestID)
	if err != nil {
		if exam.KindOf(err) == exam.KindNotFound {
			return exam.Test{}, exam.NotFoundf("Parent test not found")
		}
		return exam.Test{}, err
	}
	if !owns(a, g.merged) {
		return exam.Test{}, exam.Deniedf("You can only add parts to your own tests")
	}
	tr, err := exam.NextReviewState(exam.GroupSnapshot(g.docs), a.Role, exam.ActionEdit, "")
	if err != nil {
		return exam.Test{}, err
	}
	ci := composed.ChunkInfo
	if ci == nil {
		return exam.Test{}, exam.Validationf("Chunk info is required when uploading part of a test")
	}
	if ci.Current < 2 {
		return exam.Test{}, exam.Validationf("Additional parts must have a chunk index of 2 or more")
	}
	rootInfo := rootChunkInfo(g)
	if rootInfo == nil || rootInfo.Total < 2 {
		return exam.Test{}, exam.Validationf("Parts can only be added to a test uploaded in parts")
	}
	if ci.Total != rootInfo.Total || ci.Current > rootInfo.Total {
		return exam.Test{}, exam.Validationf("Part %d/%d does not match this test, which has %d parts", ci.Current, ci.Total, rootInfo.Total)
	}
	if exam.HasChunkIndex(g.docs, ci.Current) {
		return exam.Test{}, exam.Conflictf("Part %d of this test was already uploaded", ci.Current)
	}

	part := exam.ChunkPayload{
		Title:     exam.PartTitle(exam.BaseTitle(g.merged.Title), ci.Current, ci.Total),
		Sections:  composed.Sections,
		ChunkInfo: ci,
	}
	doc := exam.ChunkDocument(g.merged, part)
	doc.ID = s.newID()
	doc.ParentTestID = g.rootID
	doc.CreatedAt = s.now()
	doc.UpdatedAt = doc.CreatedAt
	tr.Fields.Apply(&doc)
	if err := s.checkBudget(doc); err != nil {
		return exam.Test{}, err
	}
	if err := s.store.CreateTest(ctx, doc); err != nil {
		return exam.Test{}, fmt.Errorf("create part %d of %s: %w", ci.Current, g.rootID, err)
	}
	// a teacher's new part is a resubmission for the whole group
	if err := s.applyToGroup(ctx, g, tr.Fields); err != nil {
		return exam.Test{}, err
	}
	s.invalidate(ctx, g.rootID)
	s.log.Info("test part added",
		zap.String("test_id", doc.ID),
		zap.String("root_id", g.rootID),
		zap.Int("part", ci.Current),
		zap.String("actor", a.ID))
	s.publish(ctx, events.TestUpdated, g.rootID, map[string]any{"actor": a.ID, "part": ci.Current})

	g, err = s.loadGroup(ctx, g.rootID)
	if err != nil {
		return exam.Test{}, err
	}
	return g.merged, nil
}

// Update edits the content or the group-wide flags of a test.
func (s *Service) Update(ctx context.Context, a Actor, id string, req UpdateRequest) (exam.Test, error) {
	if req.Content == nil && req.Active == nil && req.ShowAnswerKey == nil {
		return exam.Test{}, exam.Validationf("Nothing to update")
	}
	g, err := s.loadGroup(ctx, id)
	if err != nil {
		return exam.Test{}, err
	}
	snap := exam.GroupSnapshot(g.docs)

	var patch exam.TestPatch
	if req.Active != nil {
		action := exam.ActionDeactivate
		if *req.Active {
			action = exam.ActionActivate
		}
		tr, err := exam.NextReviewState(snap, a.Role, action, "")
		if err != nil {
			return exam.Test{}, err
		}
		patch.Active = tr.Fields.Active
	}
	if req.ShowAnswerKey != nil {
		action := exam.ActionHideAnswerKey
		if *req.ShowAnswerKey {
			action = exam.ActionShowAnswerKey
		}
		tr, err := exam.NextReviewState(snap, a.Role, action, "")
		if err != nil {
			return exam.Test{}, err
		}
		patch.ShowAnswerKey = tr.Fields.ShowAnswerKey
	}

	if req.Content != nil {
		if !owns(a, g.merged) {
			return exam.Test{}, exam.Deniedf("You can only edit your own tests")
		}
		tr, err := exam.NextReviewState(snap, a.Role, exam.ActionEdit, "")
		if err != nil {
			return exam.Test{}, err
		}
		patch.ReviewStatus = tr.Fields.ReviewStatus
		patch.ReviewComment = tr.Fields.ReviewComment
		if g, err = s.rewriteContent(ctx, a, g, *req.Content); err != nil {
			return exam.Test{}, err
		}
	}

	if err := s.applyToGroup(ctx, g, patch); err != nil {
		return exam.Test{}, err
	}
	s.log.Info("test updated",
		zap.String("test_id", id),
		zap.String("root_id", g.rootID),
		zap.Bool("content", req.Content != nil),
		zap.String("actor", a.ID))
	s.publish(ctx, events.TestUpdated, g.rootID, map[string]any{"actor": a.ID, "content": req.Content != nil})

	g, err = s.loadGroup(ctx, g.rootID)
	if err != nil {
		return exam.Test{}, err
	}
	return g.merged, nil
}

// rewriteContent validates the new composition against the whole test,
// re-splits it, rewrites the root in place and replaces every child part.
func (s *Service) rewriteContent(ctx context.Context, a Actor, g group, req exam.ComposeRequest) (group, error) {
	req.ChunkInfo = nil
	req.ParentTestID = ""
	composed, err := exam.ValidateComposedTest(req, a.Role)
	if err != nil {
		return group{}, err
	}
	if err := checkAssignedSubjects(a, composed.Sections); err != nil {
		return group{}, err
	}
	base := s.newDocument(a, composed)
	base.ID = g.rootID
	base.CreatedAt = g.merged.CreatedAt
	base.Approved = g.merged.Approved
	base.Active = g.merged.Active
	base.ShowAnswerKey = g.merged.ShowAnswerKey
	base.ReviewStatus = g.merged.ReviewStatus
	base.ReviewComment = g.merged.ReviewComment
	chunks, err := exam.SplitDocument(base, s.budget)
	if err != nil {
		return group{}, err
	}

	oldChildren := slices.DeleteFunc(g.ids(), func(id string) bool { return id == g.rootID })
	if err := s.writeChunks(ctx, base, chunks, true); err != nil {
		return group{}, err
	}
	if len(oldChildren) > 0 {
		// new children were created after the root rewrite; old ones go now
		if _, err := s.store.DeleteTests(ctx, oldChildren); err != nil {
			return group{}, fmt.Errorf("delete old parts of %s: %w", g.rootID, err)
		}
	}
	s.invalidate(ctx, g.rootID)
	return s.loadGroup(ctx, g.rootID)
}

// writeChunks persists chunks in order, root first. Each part is written
// only after the previous one succeeded. With replaceRoot the root
// document already exists and is overwritten.
func (s *Service) writeChunks(ctx context.Context, base exam.Test, chunks []exam.ChunkPayload, replaceRoot bool) error {
	for i, c := range chunks {
		doc := exam.ChunkDocument(base, c)
		if i > 0 {
			doc.ID = s.newID()
			doc.ParentTestID = base.ID
		}

		var err error
		if i == 0 && replaceRoot {
			err = s.store.ReplaceTest(ctx, doc)
		} else {
			err = s.store.CreateTest(ctx, doc)
		}
		if err != nil {
			return fmt.Errorf("write part %d of %d for %s: %w", i+1, len(chunks), base.ID, err)
		}
	}
	return nil
}

func (s *Service) newDocument(a Actor, c exam.ComposedTest) exam.Test {
	now := s.now()
	t := exam.Test{
		ID:                    s.newID(),
		Title:                 c.Title,
		CourseRef:             c.CourseRef,
		TestType:              c.TestType,
		Stream:                c.Stream,
		Sections:              c.Sections,
		SubjectsIncluded:      exam.SubjectsOf(c.Sections),
		SectionTimings:        c.SectionTimings,
		CustomDurationMinutes: c.CustomDurationMinutes,
		ShowAnswerKey:         c.ShowAnswerKey,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if t.TestType != exam.TestTypeMock {
		t.Stream = ""
	}
	switch a.Role {
	case exam.RoleTeacher:
		t.TeacherID = a.ID
		t.ShowAnswerKey = false
		t.ReviewStatus = exam.ReviewSubmittedToCoordinator
	default:
		t.CoordinatorID = a.ID
	}
	return t
}

// checkBudget measures a document exactly as it will be stored.
func (s *Service) checkBudget(doc exam.Test) error {
	if size := exam.PayloadSize(doc); size > s.budget {
		return &exam.Error{
			Kind: exam.KindChunkTooLarge,
			Msg:  fmt.Sprintf("This part is %.1f MB, over the %.1f MB limit; upload it in smaller parts", mb(size), mb(s.budget)),
		}
	}
	return nil
}

// rootChunkInfo is the chunk info of the group's root document.
func rootChunkInfo(g group) *exam.ChunkInfo {
	for _, d := range g.docs {
		if d.ID == g.rootID {
			return d.ChunkInfo
		}
	}
	return nil
}

func mb(n int) float64 { return float64(n) / (1024 * 1024) }

func canCompose(a Actor) error {
	switch a.Role {
	case exam.RoleCoordinator:
		return nil
	case exam.RoleTeacher:
		if !a.Approved {
			return exam.Deniedf("Your teacher account is awaiting approval")
		}
		return nil
	}
	return exam.Deniedf("Only teachers and coordinators can compose tests")
}

// checkAssignedSubjects keeps a teacher to the subjects they were assigned.
func checkAssignedSubjects(a Actor, sections []exam.Section) error {
	if a.Role != exam.RoleTeacher || len(a.Subjects) == 0 {
		return nil
	}
	for _, sec := range sections {
		if !slices.Contains(a.Subjects, sec.Subject) {
			return exam.Deniedf("You are not assigned to teach %s", sec.Subject)
		}
	}
	return nil
}
