package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-socket/internal/entity"
)

const (
	scoreboardKey = "tictactoe:scoreboard"
	resultsKey    = "tictactoe:results"

	// RecentLimit is how many finished games are kept in the results list.
	RecentLimit = 100
)

type ResultRepository interface {
	Save(ctx context.Context, result *entity.Result) error
	Scoreboard(ctx context.Context) (map[string]int64, error)
	Recent(ctx context.Context, count int64) ([]*entity.Result, error)
}

type dbResult struct {
	client *redis.Client
}

func NewResultRepository(client *redis.Client) ResultRepository {
	return &dbResult{
		client: client,
	}
}

// Save - bumps the scoreboard and prepends the result to the recent list.
func (that *dbResult) Save(ctx context.Context, result *entity.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal result: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, scoreboardKey, result.Winner, 1)
		pipe.LPush(ctx, resultsKey, resultJSON)
		pipe.LTrim(ctx, resultsKey, 0, RecentLimit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

func (that *dbResult) Scoreboard(ctx context.Context) (map[string]int64, error) {
	response, err := that.client.HGetAll(ctx, scoreboardKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get scoreboard: %w", err)
	}

	scoreboard := make(map[string]int64, len(response))
	for winner, raw := range response {
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse score for %s: %w", winner, err)
		}
		scoreboard[winner] = count
	}

	return scoreboard, nil
}

func (that *dbResult) Recent(ctx context.Context, count int64) ([]*entity.Result, error) {
	if count <= 0 {
		return nil, nil
	}

	response, err := that.client.LRange(ctx, resultsKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent results: %w", err)
	}

	results := make([]*entity.Result, 0, len(response))
	for _, raw := range response {
		var result entity.Result
		if err = json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		results = append(results, &result)
	}

	return results, nil
}
