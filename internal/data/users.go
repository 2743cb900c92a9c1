package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/metrics"
	"github.com/PaulBabatuyi/supportchat/internal/normalize"
)

// UsersStore reads display data from the storefront users collection. It is
// the user-lookup collaborator behind the admin conversation list.
type UsersStore struct {
	coll *mongo.Collection
}

var _ chat.UserDirectory = (*UsersStore)(nil)

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// LookupUsers resolves hex ObjectID user ids. Ids that are not valid
// ObjectIDs or have no user document are left out of the result.
func (u *UsersStore) LookupUsers(ctx context.Context, userIDs []string) (out map[string]chat.UserDisplay, err error) {
	defer func(start time.Time) { metrics.ObserveStore("lookup_users", start, err) }(time.Now())

	out = make(map[string]chat.UserDisplay, len(userIDs))

	ids := make(bson.A, 0, len(userIDs))
	for _, id := range userIDs {
		oid, convErr := bson.ObjectIDFromHex(normalize.UserID(id))
		if convErr != nil {
			continue
		}
		ids = append(ids, oid)
	}
	if len(ids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.D{
		{Key: "name", Value: 1},
		{Key: "email", Value: 1},
		{Key: "avatarUrl", Value: 1},
	})
	cursor, err := u.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}, opts)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	var users []userDoc
	if err = cursor.All(ctx, &users); err != nil {
		return nil, unavailable(err)
	}

	for _, usr := range users {
		out[usr.ID.Hex()] = chat.UserDisplay{
			Name:      usr.Name,
			Email:     normalize.Email(usr.Email),
			AvatarURL: usr.AvatarURL,
		}
	}
	return out, nil
}
