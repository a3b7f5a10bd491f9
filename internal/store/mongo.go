package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/db"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// Mongo keeps tests, submissions and users as documents in the collections
// prepared by db.OpenMongo.
type Mongo struct {
	tests       *mongo.Collection
	submissions *mongo.Collection
	users       *mongo.Collection
}

func NewMongo(mdb *mongo.Database) *Mongo {
	return &Mongo{
		tests:       mdb.Collection(db.CollTests),
		submissions: mdb.Collection(db.CollSubmissions),
		users:       mdb.Collection(db.CollUsers),
	}
}

func (m *Mongo) CreateTest(ctx context.Context, t exam.Test) error {
	_, err := m.tests.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return exam.Conflictf("test %s already exists", t.ID)
	}
	return err
}

func (m *Mongo) ReplaceTest(ctx context.Context, t exam.Test) error {
	res, err := m.tests.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return exam.NotFoundf("Test not found")
	}
	return nil
}

func (m *Mongo) GetTest(ctx context.Context, id string) (exam.Test, error) {
	var t exam.Test
	err := m.tests.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return exam.Test{}, exam.NotFoundf("Test not found")
	}
	return t, err
}

func (m *Mongo) TestGroup(ctx context.Context, rootID string) ([]exam.Test, error) {
	filter := bson.M{"$or": bson.A{bson.M{"_id": rootID}, bson.M{"parentTestRef": rootID}}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "chunkInfo.current", Value: 1}})
	return findTests(ctx, m.tests, filter, opts)
}

func (m *Mongo) ListRootTests(ctx context.Context, f assessment.TestFilter) ([]exam.Test, error) {
	// a missing parentTestRef matches null
	filter := bson.M{"parentTestRef": bson.M{"$in": bson.A{nil, ""}}}
	if f.TeacherID != "" {
		filter["teacherId"] = f.TeacherID
	}
	if f.CourseRef != "" {
		filter["courseRef"] = f.CourseRef
	}
	if f.ApprovedOnly {
		filter["approved"] = true
	}
	if f.ActiveOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	return findTests(ctx, m.tests, filter, opts)
}

func findTests(ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions) ([]exam.Test, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []exam.Test{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTests sets the patched fields on every listed document with one
// UpdateMany. Missing ids are reported before anything is written.
func (m *Mongo) UpdateTests(ctx context.Context, ids []string, p exam.TestPatch, at time.Time) error {
	if len(ids) == 0 || p.Empty() {
		return nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}
	n, err := m.tests.CountDocuments(ctx, filter)
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return exam.NotFoundf("%d of %d tests not found", len(ids)-int(n), len(ids))
	}

	set := bson.M{"updatedAt": at}
	if p.Active != nil {
		set["active"] = *p.Active
	}
	if p.ShowAnswerKey != nil {
		set["showAnswerKey"] = *p.ShowAnswerKey
	}
	if p.Approved != nil {
		set["approved"] = *p.Approved
	}
	if p.ReviewStatus != nil {
		set["reviewStatus"] = string(*p.ReviewStatus)
	}
	if p.ReviewComment != nil {
		set["reviewComment"] = *p.ReviewComment
	}
	_, err = m.tests.UpdateMany(ctx, filter, bson.M{"$set": set})
	return err
}

func (m *Mongo) DeleteTests(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := m.tests.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (m *Mongo) CreateSubmission(ctx context.Context, s exam.Submission) error {
	_, err := m.submissions.InsertOne(ctx, s)
	if mongo.IsDuplicateKeyError(err) {
		return exam.Conflictf("submission for test %s by %s already exists", s.TestID, s.StudentID)
	}
	return err
}

func (m *Mongo) GetSubmission(ctx context.Context, id string) (exam.Submission, error) {
	var s exam.Submission
	err := m.submissions.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return exam.Submission{}, exam.NotFoundf("Submission not found")
	}
	return s, err
}

func (m *Mongo) ListSubmissions(ctx context.Context, f assessment.SubmissionFilter) ([]exam.Submission, error) {
	filter := bson.M{}
	if f.TestID != "" {
		filter["testRef"] = f.TestID
	}
	if f.StudentID != "" {
		filter["studentRef"] = f.StudentID
	}
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := m.submissions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []exam.Submission{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) DeleteSubmissionsForTest(ctx context.Context, testID string) (int, error) {
	res, err := m.submissions.DeleteMany(ctx, bson.M{"testRef": testID})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (m *Mongo) CreateUser(ctx context.Context, u assessment.User) error {
	_, err := m.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return exam.Conflictf("username %s already exists", u.Username)
	}
	return err
}

func (m *Mongo) GetUser(ctx context.Context, id string) (assessment.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

func (m *Mongo) GetUserByUsername(ctx context.Context, username string) (assessment.User, error) {
	return m.findUser(ctx, bson.M{"username": username})
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (assessment.User, error) {
	var u assessment.User
	err := m.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return assessment.User{}, exam.NotFoundf("User not found")
	}
	return u, err
}

func (m *Mongo) ListUsers(ctx context.Context, role exam.Role) ([]assessment.User, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = string(role)
	}
	cur, err := m.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []assessment.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) SetUserApproved(ctx context.Context, id string, approved bool) error {
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"approved": approved}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return exam.NotFoundf("User not found")
	}
	return nil
}
