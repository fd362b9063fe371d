package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ token.Store = (*RedisStore)(nil)

const defaultOpTimeout = 2 * time.Second

// RedisStore keeps the entries under <prefix>:credential and <prefix>:profile.
// Keys carry no TTL; the session lives until Clear.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	opTimeout time.Duration
	lock      sync.Mutex
}

// New creates a store scoped to prefix. A zero opTimeout uses two seconds.
func New(client redis.UniversalClient, prefix string, opTimeout time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	if prefix == "" {
		return nil, errors.New("[redisstore.New] prefix is required")
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		opTimeout: opTimeout,
	}, nil
}

func (s *RedisStore) key(entry string) string {
	return s.prefix + ":" + entry
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

// Save writes both keys in a single MULTI/EXEC transaction.
func (s *RedisStore) Save(cred token.Credential, profile *users.Profile) error {
	credData, profileData, err := token.EncodeEntries(cred, profile)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	ctx, cancel := s.ctx()
	defer cancel()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(token.CredentialEntry), credData, 0)
		pipe.Set(ctx, s.key(token.ProfileEntry), profileData, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis save: %w", token.ErrStorageFailure, err)
	}
	return nil
}

func (s *RedisStore) LoadCredential() *token.Credential {
	data := s.get(token.CredentialEntry)
	if data == nil {
		return nil
	}
	cred, err := token.DecodeCredential(data)
	if err != nil {
		log.Debug().Err(err).Str("prefix", s.prefix).Msg("redisstore: ignoring stored credential")
		return nil
	}
	return cred
}

func (s *RedisStore) LoadProfile() *users.Profile {
	data := s.get(token.ProfileEntry)
	if data == nil {
		return nil
	}
	profile, err := token.DecodeProfile(data)
	if err != nil {
		log.Debug().Err(err).Str("prefix", s.prefix).Msg("redisstore: ignoring stored profile")
		return nil
	}
	return profile
}

func (s *RedisStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.client.Del(ctx, s.key(token.CredentialEntry), s.key(token.ProfileEntry)).Err(); err != nil {
		return fmt.Errorf("[RedisStore.Clear] %w", err)
	}
	return nil
}

func (s *RedisStore) UpdateAccessToken(accessToken string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	ctx, cancel := s.ctx()
	defer cancel()

	data, err := s.client.Get(ctx, s.key(token.CredentialEntry)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: redis read credential: %w", token.ErrStorageFailure, err)
		}
		log.Warn().Str("prefix", s.prefix).Msg("redisstore: access token update without a stored credential")
		return nil
	}
	cred, err := token.DecodeCredential(data)
	if err != nil {
		log.Warn().Err(err).Str("prefix", s.prefix).Msg("redisstore: access token update over a malformed credential")
		return nil
	}
	updated, err := token.EncodeCredential(cred.WithAccessToken(accessToken))
	if err != nil {
		return fmt.Errorf("%w: %w", token.ErrStorageFailure, err)
	}
	if err := s.client.Set(ctx, s.key(token.CredentialEntry), updated, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis write credential: %w", token.ErrStorageFailure, err)
	}
	return nil
}

// get treats unreachable Redis the same as a missing key.
func (s *RedisStore) get(entry string) []byte {
	ctx, cancel := s.ctx()
	defer cancel()

	data, err := s.client.Get(ctx, s.key(entry)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", s.key(entry)).Msg("redisstore: read failed")
		}
		return nil
	}
	return data
}
