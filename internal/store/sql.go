package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// SQL stores documents in the tables created by db.Open. Test and
// submission content is kept as JSON; the columns hold what queries filter
// or patch on.
type SQL struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

const testColumns = `doc_json, approved, active, show_answer_key, review_status, review_comment, updated_at`

func (s *SQL) CreateTest(ctx context.Context, t exam.Test) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tests
		(id, parent_id, chunk_current, course_ref, teacher_id, coordinator_id,
		 approved, active, show_answer_key, review_status, review_comment, doc_json, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		t.ID, t.ParentTestID, chunkCurrent(t), t.CourseRef, t.TeacherID, t.CoordinatorID,
		t.Approved, t.Active, t.ShowAnswerKey, string(t.ReviewStatus), t.ReviewComment,
		string(doc), t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano())
	if isUniqueViolation(err) {
		return exam.Conflictf("test %s already exists", t.ID)
	}
	return err
}

func (s *SQL) ReplaceTest(ctx context.Context, t exam.Test) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tests SET
		parent_id=$2, chunk_current=$3, course_ref=$4, teacher_id=$5, coordinator_id=$6,
		approved=$7, active=$8, show_answer_key=$9, review_status=$10, review_comment=$11,
		doc_json=$12, updated_at=$13
		WHERE id=$1`,
		t.ID, t.ParentTestID, chunkCurrent(t), t.CourseRef, t.TeacherID, t.CoordinatorID,
		t.Approved, t.Active, t.ShowAnswerKey, string(t.ReviewStatus), t.ReviewComment,
		string(doc), t.UpdatedAt.UnixNano())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return exam.NotFoundf("Test not found")
	}
	return nil
}

func (s *SQL) GetTest(ctx context.Context, id string) (exam.Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+testColumns+` FROM tests WHERE id=$1`, id)
	t, err := scanTest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return exam.Test{}, exam.NotFoundf("Test not found")
	}
	return t, err
}

func (s *SQL) TestGroup(ctx context.Context, rootID string) ([]exam.Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests
		WHERE id=$1 OR parent_id=$1
		ORDER BY created_at, chunk_current`, rootID)
	if err != nil {
		return nil, err
	}
	return collectTests(rows)
}

func (s *SQL) ListRootTests(ctx context.Context, f assessment.TestFilter) ([]exam.Test, error) {
	where := []string{"parent_id = ''"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.TeacherID != "" {
		where = append(where, "teacher_id = "+arg(f.TeacherID))
	}
	if f.CourseRef != "" {
		where = append(where, "course_ref = "+arg(f.CourseRef))
	}
	if f.ApprovedOnly {
		where = append(where, "approved = "+arg(true))
	}
	if f.ActiveOnly {
		where = append(where, "active = "+arg(true))
	}
	q := `SELECT ` + testColumns + ` FROM tests WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectTests(rows)
}

// UpdateTests patches the flag columns of every listed row in one
// transaction. Nothing is written if any id is missing.
func (s *SQL) UpdateTests(ctx context.Context, ids []string, p exam.TestPatch, at time.Time) error {
	if len(ids) == 0 || p.Empty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if p.Active != nil {
		sets = append(sets, "active = "+arg(*p.Active))
	}
	if p.ShowAnswerKey != nil {
		sets = append(sets, "show_answer_key = "+arg(*p.ShowAnswerKey))
	}
	if p.Approved != nil {
		sets = append(sets, "approved = "+arg(*p.Approved))
	}
	if p.ReviewStatus != nil {
		sets = append(sets, "review_status = "+arg(string(*p.ReviewStatus)))
	}
	if p.ReviewComment != nil {
		sets = append(sets, "review_comment = "+arg(*p.ReviewComment))
	}
	sets = append(sets, "updated_at = "+arg(at.UnixNano()))
	in := make([]string, len(ids))
	for i, id := range ids {
		in[i] = arg(id)
	}
	q := `UPDATE tests SET ` + strings.Join(sets, ", ") + ` WHERE id IN (` + strings.Join(in, ",") + `)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return exam.NotFoundf("%d of %d tests not found", len(ids)-int(n), len(ids))
	}
	return tx.Commit()
}

func (s *SQL) DeleteTests(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	in := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		in[i] = fmt.Sprintf("$%d", i+1)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id IN (`+strings.Join(in, ",")+`)`, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTest decodes doc_json and lays the flag columns over it; the columns
// are what UpdateTests writes.
func scanTest(sc scanner) (exam.Test, error) {
	var (
		doc, status, comment string
		approved, active     bool
		showKey              bool
		updated              int64
	)
	if err := sc.Scan(&doc, &approved, &active, &showKey, &status, &comment, &updated); err != nil {
		return exam.Test{}, err
	}
	var t exam.Test
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return exam.Test{}, fmt.Errorf("decode test: %w", err)
	}
	t.Approved = approved
	t.Active = active
	t.ShowAnswerKey = showKey
	t.ReviewStatus = exam.ReviewStatus(status)
	t.ReviewComment = comment
	t.UpdatedAt = time.Unix(0, updated).UTC()
	return t, nil
}

func collectTests(rows *sql.Rows) ([]exam.Test, error) {
	defer rows.Close()
	var out []exam.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func chunkCurrent(t exam.Test) int {
	if t.ChunkInfo == nil {
		return 0
	}
	return t.ChunkInfo.Current
}

// ---- submissions ----

func (s *SQL) CreateSubmission(ctx context.Context, sub exam.Submission) error {
	doc, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO submissions
		(id, test_id, student_id, total_score, total_max_score, percentage, doc_json, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		sub.ID, sub.TestID, sub.StudentID, sub.TotalScore, sub.TotalMaxScore, sub.Percentage,
		string(doc), sub.SubmittedAt.UnixNano())
	if isUniqueViolation(err) {
		return exam.Conflictf("submission for test %s by %s already exists", sub.TestID, sub.StudentID)
	}
	return err
}

func (s *SQL) GetSubmission(ctx context.Context, id string) (exam.Submission, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc_json FROM submissions WHERE id=$1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return exam.Submission{}, exam.NotFoundf("Submission not found")
	}
	if err != nil {
		return exam.Submission{}, err
	}
	var sub exam.Submission
	if err := json.Unmarshal([]byte(doc), &sub); err != nil {
		return exam.Submission{}, fmt.Errorf("decode submission: %w", err)
	}
	return sub, nil
}

func (s *SQL) ListSubmissions(ctx context.Context, f assessment.SubmissionFilter) ([]exam.Submission, error) {
	where := []string{"1=1"}
	var args []any
	if f.TestID != "" {
		args = append(args, f.TestID)
		where = append(where, fmt.Sprintf("test_id = $%d", len(args)))
	}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	rows, err := s.db.QueryContext(ctx, `SELECT doc_json FROM submissions WHERE `+
		strings.Join(where, " AND ")+` ORDER BY submitted_at DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.Submission
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var sub exam.Submission
		if err := json.Unmarshal([]byte(doc), &sub); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQL) DeleteSubmissionsForTest(ctx context.Context, testID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE test_id=$1`, testID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ---- users ----

const userColumns = `id, username, name, role, password_hash, approved, subjects_json, created_at`

func (s *SQL) CreateUser(ctx context.Context, u assessment.User) error {
	subjects, err := json.Marshal(u.Subjects)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Username, u.Name, string(u.Role), u.PasswordHash, u.Approved, string(subjects), u.CreatedAt.UnixNano())
	if isUniqueViolation(err) {
		return exam.Conflictf("username %s already exists", u.Username)
	}
	return err
}

func (s *SQL) GetUser(ctx context.Context, id string) (assessment.User, error) {
	return s.getUser(ctx, `id=$1`, id)
}

func (s *SQL) GetUserByUsername(ctx context.Context, username string) (assessment.User, error) {
	return s.getUser(ctx, `username=$1`, username)
}

func (s *SQL) getUser(ctx context.Context, where string, arg string) (assessment.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.User{}, exam.NotFoundf("User not found")
	}
	return u, err
}

func (s *SQL) ListUsers(ctx context.Context, role exam.Role) ([]assessment.User, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role=$1`
		args = append(args, string(role))
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY username`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []assessment.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQL) SetUserApproved(ctx context.Context, id string, approved bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET approved=$1 WHERE id=$2`, approved, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return exam.NotFoundf("User not found")
	}
	return nil
}

func scanUser(sc scanner) (assessment.User, error) {
	var (
		u        assessment.User
		role     string
		subjects string
		created  int64
	)
	if err := sc.Scan(&u.ID, &u.Username, &u.Name, &role, &u.PasswordHash, &u.Approved, &subjects, &created); err != nil {
		return assessment.User{}, err
	}
	u.Role = exam.Role(role)
	u.CreatedAt = time.Unix(0, created).UTC()
	if subjects != "" && subjects != "null" {
		if err := json.Unmarshal([]byte(subjects), &u.Subjects); err != nil {
			return assessment.User{}, fmt.Errorf("decode subjects: %w", err)
		}
	}
	return u, nil
}

// isUniqueViolation recognises duplicate-key errors from both pgx and the
// sqlite driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
