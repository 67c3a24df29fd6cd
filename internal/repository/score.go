package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

var ErrUnknownOutcome = errors.New("unknown game outcome")

const scoreKey = "scoreboard"

const (
	fieldXWins = "x_wins"
	fieldOWins = "o_wins"
	fieldDraws = "draws"
)

// ScoreRepository keeps the cumulative outcome tally. The game engine only
// writes to it; reads serve the REST scoreboard endpoint.
type ScoreRepository interface {
	RecordOutcome(ctx context.Context, outcome string) error
	Totals(ctx context.Context) (*entity.Score, error)
}

type dbScore struct {
	client *redis.Client
}

func NewScoreRepository(client *redis.Client) ScoreRepository {
	return &dbScore{
		client: client,
	}
}

func (that *dbScore) RecordOutcome(ctx context.Context, outcome string) error {
	field, err := outcomeField(outcome)
	if err != nil {
		return err
	}

	if err = that.client.HIncrBy(ctx, scoreKey, field, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment scoreboard: %w", err)
	}

	return nil
}

func (that *dbScore) Totals(ctx context.Context) (*entity.Score, error) {
	fields, err := that.client.HGetAll(ctx, scoreKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read scoreboard: %w", err)
	}

	score := &entity.Score{}
	if score.XWins, err = parseCount(fields, fieldXWins); err != nil {
		return nil, err
	}
	if score.OWins, err = parseCount(fields, fieldOWins); err != nil {
		return nil, err
	}
	if score.Draws, err = parseCount(fields, fieldDraws); err != nil {
		return nil, err
	}

	return score, nil
}

func outcomeField(outcome string) (string, error) {
	switch outcome {
	case entity.PlayerX:
		return fieldXWins, nil
	case entity.PlayerO:
		return fieldOWins, nil
	case entity.PlayerTie:
		return fieldDraws, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
}

func parseCount(fields map[string]string, field string) (int64, error) {
	raw, ok := fields[field]
	if !ok {
		return 0, nil
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse scoreboard field %s: %w", field, err)
	}

	return count, nil
}
