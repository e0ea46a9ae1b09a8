package repositories

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"skillsync/internal/models"
)

type userDocument struct {
	ID                bson.ObjectID `bson:"_id,omitempty"`
	Name              string        `bson:"name"`
	Email             string        `bson:"email"`
	Password          string        `bson:"password"`
	Branch            string        `bson:"branch"`
	PassingYear       *int          `bson:"passing_year"`
	KnownSkills       []string      `bson:"known_skills"`
	CareerPath        []string      `bson:"career_path"`
	Experience        bool          `bson:"experience"`
	LearningGoal      string        `bson:"learning_goal"`
	Availability      string        `bson:"availability"`
	Avatar            string        `bson:"avatar,omitempty"`
	IsOnboarded       bool          `bson:"isOnboarded"`
	IsVerified        bool          `bson:"isVerified"`
	VerifyToken       *string       `bson:"verifyToken"`
	VerifyTokenExpiry *time.Time    `bson:"verifyTokenExpiry"`
	CreatedAt         time.Time     `bson:"createdAt"`
	UpdatedAt         time.Time     `bson:"updatedAt"`
}

func (d userDocument) model() models.User {
	u := models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Branch:       d.Branch,
		PassingYear:  d.PassingYear,
		KnownSkills:  nonNil(d.KnownSkills),
		CareerPath:   nonNil(d.CareerPath),
		Experience:   d.Experience,
		LearningGoal: d.LearningGoal,
		Availability: d.Availability,
		Avatar:       d.Avatar,
		IsOnboarded:  d.IsOnboarded,
		IsVerified:   d.IsVerified,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.VerifyToken != nil {
		u.VerifyToken = *d.VerifyToken
	}
	if d.VerifyTokenExpiry != nil {
		u.VerifyTokenExpiry = *d.VerifyTokenExpiry
	}
	return u
}

type userMongoRepository struct {
	db *mongo.Database
}

// NewUserMongoRepository returns a UserRepository backed by the users collection.
// Call EnsureMongoIndexes first so email uniqueness holds.
func NewUserMongoRepository(db *mongo.Database) UserRepository {
	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	doc := userDocument{
		Name:         user.Name,
		Email:        user.Email,
		Password:     user.PasswordHash,
		Branch:       user.Branch,
		PassingYear:  user.PassingYear,
		KnownSkills:  nonNil(user.KnownSkills),
		CareerPath:   nonNil(user.CareerPath),
		Experience:   user.Experience,
		LearningGoal: user.LearningGoal,
		Availability: user.Availability,
		IsOnboarded:  user.IsOnboarded,
		IsVerified:   user.IsVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.VerifyToken != "" {
		token, expiry := user.VerifyToken, user.VerifyTokenExpiry
		doc.VerifyToken = &token
		doc.VerifyTokenExpiry = &expiry
	}

	result, err := r.db.Collection(userCollection).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return models.User{}, errors.New("failed to convert inserted ID to ObjectID")
	}
	doc.ID = objectID
	return doc.model(), nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) GetUserByVerifyToken(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"verifyToken": token})
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDocument
	err := r.db.Collection(userCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return doc.model(), nil
}

func (r *userMongoRepository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	result := make(map[string]models.User, len(ids))
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return result, nil
	}

	docs, err := r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		result[doc.ID.Hex()] = doc.model()
	}
	return result, nil
}

func (r *userMongoRepository) UpdateUser(ctx context.Context, id string, params UpdateUserParams) (models.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrUserNotFound
	}

	set := userUpdateDocument(params)
	set["updatedAt"] = time.Now().UTC()

	var doc userDocument
	err = r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.User{}, ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return models.User{}, ErrEmailTaken
	case err != nil:
		return models.User{}, err
	}
	return doc.model(), nil
}

// userUpdateDocument maps update params onto a $set document.
func userUpdateDocument(p UpdateUserParams) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Branch != nil {
		set["branch"] = *p.Branch
	}
	if p.ClearPassingYear {
		set["passing_year"] = nil
	} else if p.PassingYear != nil {
		set["passing_year"] = *p.PassingYear
	}
	if p.KnownSkills != nil {
		set["known_skills"] = p.KnownSkills
	}
	if p.CareerPath != nil {
		set["career_path"] = p.CareerPath
	}
	if p.Experience != nil {
		set["experience"] = *p.Experience
	}
	if p.LearningGoal != nil {
		set["learning_goal"] = *p.LearningGoal
	}
	if p.Availability != nil {
		set["availability"] = *p.Availability
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	if p.IsOnboarded != nil {
		set["isOnboarded"] = *p.IsOnboarded
	}
	if p.IsVerified != nil {
		set["isVerified"] = *p.IsVerified
	}
	if p.VerifyToken != nil {
		if *p.VerifyToken == "" {
			set["verifyToken"] = nil
			set["verifyTokenExpiry"] = nil
		} else {
			set["verifyToken"] = *p.VerifyToken
		}
	}
	if p.VerifyTokenExpiry != nil && (p.VerifyToken == nil || *p.VerifyToken != "") {
		set["verifyTokenExpiry"] = *p.VerifyTokenExpiry
	}
	return set
}

func (r *userMongoRepository) SearchUsers(ctx context.Context, filter models.UserSearchFilter) ([]models.User, error) {
	docs, err := r.find(ctx, userSearchDocument(filter),
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, doc.model())
	}
	return users, nil
}

func (r *userMongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]userDocument, error) {
	cursor, err := r.db.Collection(userCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// userSearchDocument translates a search filter into a Mongo query.
func userSearchDocument(f models.UserSearchFilter) bson.M {
	query := bson.M{}
	contains := func(s string) bson.Regex {
		return bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
	}

	if f.Name != nil {
		query["name"] = contains(*f.Name)
	}
	if f.Email != nil {
		query["email"] = contains(*f.Email)
	}
	if f.Branch != nil {
		query["branch"] = *f.Branch
	}
	if f.PassingYear != nil {
		query["passing_year"] = *f.PassingYear
	}
	if len(f.KnownSkills) > 0 {
		query["known_skills"] = bson.M{"$in": f.KnownSkills}
	}
	if len(f.CareerPath) > 0 {
		query["career_path"] = bson.M{"$in": f.CareerPath}
	}
	if f.Experience != nil {
		query["experience"] = *f.Experience
	}
	if f.LearningGoal != nil {
		query["learning_goal"] = contains(*f.LearningGoal)
	}
	if f.Availability != nil {
		query["availability"] = *f.Availability
	}
	if f.IsOnboarded != nil {
		query["isOnboarded"] = *f.IsOnboarded
	}
	if f.IsVerified != nil {
		query["isVerified"] = *f.IsVerified
	}
	return query
}
