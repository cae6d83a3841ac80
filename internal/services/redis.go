package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bart-backend/internal/config"
	"bart-backend/internal/models"
)

// RedisService keeps the live task state: sessions, resolved trials and the
// action audit log. Durable outputs go through the recorder, not here.
type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{client: client, ctx: ctx}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) SaveSession(session *models.TaskSession) error {
	session.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	key := fmt.Sprintf(KeySession, session.ID)
	if err := s.client.Set(s.ctx, key, data, TTLSession).Err(); err != nil {
		return fmt.Errorf("failed to save session: %v", err)
	}

	participantKey := fmt.Sprintf(KeyParticipantSession, session.ParticipantID)
	return s.client.Set(s.ctx, participantKey, session.ID, TTLSession).Err()
}

func (s *RedisService) GetSession(sessionID string) (*models.TaskSession, error) {
	key := fmt.Sprintf(KeySession, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	var session models.TaskSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}

	return &session, nil
}

// GetSessionByParticipant resolves a participant's current session, if any.
func (s *RedisService) GetSessionByParticipant(participantID string) (*models.TaskSession, error) {
	key := fmt.Sprintf(KeyParticipantSession, participantID)

	sessionID, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up participant session: %v", err)
	}
	return s.GetSession(sessionID)
}

// AppendTrial pushes a resolved trial onto the session's ordered trial list.
func (s *RedisService) AppendTrial(sessionID string, trial *models.Trial) error {
	data, err := json.Marshal(trial)
	if err != nil {
		return fmt.Errorf("failed to marshal trial: %v", err)
	}

	key := fmt.Sprintf(KeySessionTrials, sessionID)
	if err := s.client.RPush(s.ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append trial: %v", err)
	}
	s.client.Expire(s.ctx, key, TTLTrials)
	return nil
}

// GetTrials returns all resolved trials of a session in presentation order.
func (s *RedisService) GetTrials(sessionID string) ([]*models.Trial, error) {
	key := fmt.Sprintf(KeySessionTrials, sessionID)

	raw, err := s.client.LRange(s.ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get trials: %v", err)
	}

	trials := make([]*models.Trial, 0, len(raw))
	for _, item := range raw {
		var trial models.Trial
		if err := json.Unmarshal([]byte(item), &trial); err != nil {
			continue
		}
		trials = append(trials, &trial)
	}
	return trials, nil
}

// AppendEvent records one participant action in the audit log.
func (s *RedisService) AppendEvent(sessionID string, evt *models.TaskEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}

	key := fmt.Sprintf(KeySessionEvents, sessionID)
	if err := s.client.RPush(s.ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append event: %v", err)
	}
	s.client.Expire(s.ctx, key, TTLEvents)
	return nil
}

func (s *RedisService) GetEvents(sessionID string) ([]*models.TaskEvent, error) {
	key := fmt.Sprintf(KeySessionEvents, sessionID)

	raw, err := s.client.LRange(s.ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %v", err)
	}

	events := make([]*models.TaskEvent, 0, len(raw))
	for _, item := range raw {
		var evt models.TaskEvent
		if err := json.Unmarshal([]byte(item), &evt); err != nil {
			continue
		}
		events = append(events, &evt)
	}
	return events, nil
}

func (s *RedisService) CheckRateLimit(sessionID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, sessionID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

// DeleteSession removes a session and its trial/event lists; used by tests.
func (s *RedisService) DeleteSession(session *models.TaskSession) error {
	keys := []string{
		fmt.Sprintf(KeySession, session.ID),
		fmt.Sprintf(KeyParticipantSession, session.ParticipantID),
		fmt.Sprintf(KeySessionTrials, session.ID),
		fmt.Sprintf(KeySessionEvents, session.ID),
	}
	return s.client.Del(s.ctx, keys...).Err()
}
