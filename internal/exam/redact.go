package exam

// RedactForStudent returns a copy of t with correct answers and
// explanations removed. The stored test is not modified.
func RedactForStudent(t Test) Test {
	out := t
	out.Sections = make([]Section, len(t.Sections))
	for i, s := range t.Sections {
		qs := make([]Question, len(s.Questions))
		for j, q := range s.Questions {
			q.CorrectIndex = -1
			q.ExplanationText = ""
			q.ExplanationImage = ""
			q.Options = append([]Option(nil), q.Options...)
			qs[j] = q
		}
		out.Sections[i] = Section{Subject: s.Subject, MarksPerQuestion: s.MarksPerQuestion, Questions: qs}
	}
	out.ReviewComment = ""
	return out
}

// CanViewAnswerKey reports whether a student may see the answer key of sub.
// The key stays visible if it was shown at submission time or is shown now.
func CanViewAnswerKey(sub Submission, t Test) bool {
	return sub.AnswerKeyAtSubmit || t.ShowAnswerKey
}

// RedactSubmission strips correct answers and explanations from a
// submission's per-question results unless the answer key may be shown.
// Scores and the student's own answers are always kept.
func RedactSubmission(sub Submission, showKey bool) Submission {
	if showKey {
		return sub
	}
	out := sub
	out.SectionResults = make([]SectionResult, len(sub.SectionResults))
	for i, sr := range sub.SectionResults {
		qs := make([]QuestionResult, len(sr.Questions))
		for j, q := range sr.Questions {
			q.CorrectAnswer = nil
			q.ExplanationText = ""
			q.ExplanationImage = ""
			qs[j] = q
		}
		sr.Questions = qs
		out.SectionResults[i] = sr
	}
	return out
}
