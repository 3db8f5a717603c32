package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/voxdesk/VoxDesk/app/models"
	"github.com/voxdesk/VoxDesk/internal/pkg/cache"
	"github.com/voxdesk/VoxDesk/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const deliveriesKey = "webhook:counters:deliveries"

// Delivery outcomes tracked per provider.
const (
	OutcomeReceived  = "received"
	OutcomeDuplicate = "duplicate"
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// AddDelivery increments the pending delivery counter for a provider/outcome
// pair in Redis. Redis HINCRBY is atomic, so concurrent handlers never lose
// increments; this replaces any in-process counter map.
func AddDelivery(provider, outcome string) error {
	ctx := context.Background()
	field := provider + ":" + outcome
	return cache.GetClient().HIncrBy(ctx, deliveriesKey, field, 1).Err()
}

// FlushAll drains the pending counters and applies them to the
// webhook_delivery_stats table in one batch.
func FlushAll() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining so in-flight
	// increments land in the next flush instead of being lost.
	tmpKey := fmt.Sprintf("%s:tmp:%d", deliveriesKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", deliveriesKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		return err
	}

	fields, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if err := rdb.Del(ctx, tmpKey).Err(); err != nil {
		return err
	}

	db := database.GetDB()
	day := time.Now().UTC().Format("2006-01-02")
	for field, raw := range fields {
		provider, outcome, ok := splitField(field)
		if !ok {
			continue
		}
		count, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || count == 0 {
			continue
		}
		stat := &models.WebhookDeliveryStat{
			Provider: provider,
			Outcome:  outcome,
			Day:      day,
			Count:    count,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider"},
				{Name: "outcome"},
				{Name: "day"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count": gorm.Expr("count + ?", count),
			}),
		}).Create(stat).Error; err != nil {
			return err
		}
	}
	return nil
}

func splitField(field string) (provider, outcome string, ok bool) {
	parts := strings.SplitN(field, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
