package interest

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const edgeKeyPrefix = "interest:out:"

// insertAndCheckReverse adds ARGV[1] to the sender's outgoing set and, when
// that was new, checks whether the recipient's set already holds the sender.
var insertAndCheckReverse = redis.NewScript(`
local added = redis.call('SADD', KEYS[1], ARGV[1])
if added == 0 then
	return {0, 0}
end
return {1, redis.call('SISMEMBER', KEYS[2], ARGV[2])}
`)

// RedisEdgeStore keeps each identity's outgoing likes in a set. The Lua script
// runs atomically on the server, which makes the store safe to share between
// processes.
type RedisEdgeStore struct {
	client *redis.Client
}

func NewRedisEdgeStore(client *redis.Client) *RedisEdgeStore {
	return &RedisEdgeStore{client: client}
}

func edgeKey(identity string) string { return edgeKeyPrefix + identity }

func (s *RedisEdgeStore) HasEdge(ctx context.Context, from, to string) (bool, error) {
	return s.client.SIsMember(ctx, edgeKey(from), to).Result()
}

func (s *RedisEdgeStore) InsertEdge(ctx context.Context, from, to string) (bool, error) {
	n, err := s.client.SAdd(ctx, edgeKey(from), to).Result()
	return n == 1, err
}

func (s *RedisEdgeStore) InsertAndCheckReverse(ctx context.Context, from, to string) (inserted, reverse bool, err error) {
	res, err := insertAndCheckReverse.Run(ctx, s.client,
		[]string{edgeKey(from), edgeKey(to)}, to, from).Int64Slice()
	if err != nil {
		return false, false, err
	}
	return res[0] == 1, res[1] == 1, nil
}

func (s *RedisEdgeStore) Close() error { return s.client.Close() }
