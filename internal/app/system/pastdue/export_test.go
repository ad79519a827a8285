package pastdue

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Sweeper) FlagProject(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	return s.flagProject(ctx, id, now)
}
