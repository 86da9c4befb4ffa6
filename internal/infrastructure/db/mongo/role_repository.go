package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/identitystore/identity-service/internal/core/domain"
)

const collectionRoles = "roles"

// RoleRepository keys role documents by name. It also holds the users
// collection so a deleted role can be pulled from every user embedding it.
type RoleRepository struct {
	col   *mongo.Collection
	users *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{
		col:   db.Collection(collectionRoles),
		users: db.Collection(collectionUsers),
	}
}

type roleRecord struct {
	Name        string `bson:"_id"`
	Description string `bson:"description"`
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, roleRecord{Name: role.Name, Description: role.Description})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoleExists
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *RoleRepository) FindAll(ctx context.Context) ([]domain.Role, error) {
	return r.find(ctx, bson.M{})
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec roleRecord
	if err := r.col.FindOne(ctx, bson.M{"_id": name}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{Name: rec.Name, Description: rec.Description}, nil
}

func (r *RoleRepository) FindAllByName(ctx context.Context, names []string) ([]domain.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": names}})
}

func (r *RoleRepository) find(ctx context.Context, filter bson.M) ([]domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	var recs []roleRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}

	out := make([]domain.Role, len(recs))
	for i, rec := range recs {
		out[i] = domain.Role{Name: rec.Name, Description: rec.Description}
	}
	return out, nil
}

// Delete removes the role, then detaches it from users. The two writes are
// not transactional; a crash in between leaves users holding a role that no
// longer resolves, which the next update of that user drops.
func (r *RoleRepository) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoleNotFound
	}

	_, err = r.users.UpdateMany(ctx,
		bson.M{"roles.name": name},
		bson.M{"$pull": bson.M{"roles": bson.M{"name": name}}},
	)
	if err != nil {
		return fmt.Errorf("detach role %s: %w", name, err)
	}
	return nil
}

func (r *RoleRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count roles: %w", err)
	}
	return n, nil
}
