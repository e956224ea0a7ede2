package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	scanLockPrefix = "inv:lock:"      // one lock per config: inv:lock:{config_id}
	scanDonePrefix = "inv:done:"      // per-day completion: inv:done:{agent}:{project}:{yymmdd}
	stateTTL       = 48 * time.Hour   // state is only consulted within a day
	lockTTL        = 15 * time.Minute // generous upper bound for one config scan
)

// StateRepo keeps transient run state in Redis: per-config scan locks and
// per-day completion markers, so a re-triggered run does not re-notify work
// that already went out.
type StateRepo struct {
	client *redis.Client
}

func NewStateRepo(client *redis.Client) *StateRepo {
	return &StateRepo{client: client}
}

// AcquireLock takes the per-config scan lock. Returns false when another run
// holds it.
func (r *StateRepo) AcquireLock(ctx context.Context, configID int64) (bool, error) {
	return r.client.SetNX(ctx, fmt.Sprintf("%s%d", scanLockPrefix, configID), 1, lockTTL).Result()
}

// ReleaseLock drops the per-config scan lock.
func (r *StateRepo) ReleaseLock(ctx context.Context, configID int64) error {
	return r.client.Del(ctx, fmt.Sprintf("%s%d", scanLockPrefix, configID)).Err()
}

// MarkNotified records that the aggregated notification for an
// (agent, project) pair went out on the given day.
func (r *StateRepo) MarkNotified(ctx context.Context, agent, project, day string) error {
	return r.client.Set(ctx, doneKey(agent, project, day), 1, stateTTL).Err()
}

// WasNotified reports whether a notification already went out today.
func (r *StateRepo) WasNotified(ctx context.Context, agent, project, day string) (bool, error) {
	n, err := r.client.Exists(ctx, doneKey(agent, project, day)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func doneKey(agent, project, day string) string {
	return fmt.Sprintf("%s%s:%s:%s", scanDonePrefix, agent, project, day)
}
