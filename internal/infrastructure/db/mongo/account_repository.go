package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

const (
	collectionAccounts = "accounts"
	indexUsername      = "uniq_username"
	indexEmail         = "uniq_email"
)

// AccountRepository implements ports.AccountRepository on MongoDB. The
// unique indexes created by EnsureIndexes are what actually enforce
// username and email uniqueness.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	FullName     string             `bson:"full_name"`
	Birthday     *time.Time         `bson:"birthday,omitempty"`
	Gender       string             `bson:"gender,omitempty"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func toDomain(m *mongoAccount) *domain.Account {
	a := &domain.Account{
		ID:           m.ID.Hex(),
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FullName:     m.FullName,
		Gender:       m.Gender,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.Birthday != nil {
		b := m.Birthday.UTC()
		a.Birthday = &b
	}
	return a
}

func fromDomain(a *domain.Account) mongoAccount {
	return mongoAccount{
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		FullName:     a.FullName,
		Birthday:     a.Birthday,
		Gender:       a.Gender,
		Role:         string(a.Role),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// Create inserts a new account and returns it with its assigned ID.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := fromDomain(a)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateError(err)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert account: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return toDomain(&doc), nil
}

// UpdateProfile rewrites the profile fields only. Username, role and the
// password hash are never touched through this path.
func (r *AccountRepository) UpdateProfile(ctx context.Context, a *domain.Account) error {
	return r.updateFields(ctx, a.ID, profileSet(a))
}

// UpdatePasswordHash replaces the stored hash and nothing else.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return r.updateFields(ctx, id, bson.M{"password_hash": hash, "updated_at": at})
}

func profileSet(a *domain.Account) bson.M {
	set := bson.M{
		"email":      a.Email,
		"full_name":  a.FullName,
		"gender":     a.Gender,
		"updated_at": a.UpdatedAt,
	}
	if a.Birthday != nil {
		set["birthday"] = *a.Birthday
	}
	return set
}

func (r *AccountRepository) updateFields(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateError(err)
		}
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

// CountByRole groups accounts by role. Roles with no accounts are absent.
func (r *AccountRepository) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$role"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count by role: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Role  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("count by role: decode: %w", err)
	}

	out := make(map[domain.Role]int64, len(rows))
	for _, row := range rows {
		out[domain.Role(row.Role)] = row.Count
	}
	return out, nil
}

// EnsureIndexes creates the unique indexes on username and email.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexUsername),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexEmail),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	return nil
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoAccount
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return toDomain(&m), nil
}

func (r *AccountRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

// duplicateError maps a duplicate key error to the violated index.
func duplicateError(err error) error {
	if strings.Contains(err.Error(), indexEmail) {
		return domain.ErrEmailTaken
	}
	return domain.ErrUsernameTaken
}
